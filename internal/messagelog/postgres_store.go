package messagelog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is satisfied by *pgxpool.Pool and pgxmock pools.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore stores chat messages in the chat_messages table.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore initializes a store backed by a pgx pool.
func NewPostgresStore(db pgxQuerier) *PostgresStore {
	if db == nil {
		panic("messagelog: pgx pool required")
	}
	return &PostgresStore{db: db}
}

// Append inserts one record.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO chat_messages (id, role, text, source, session_id, ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.Exec(ctx, query,
		rec.ID,
		string(rec.Role),
		rec.Text,
		nullable(string(rec.Source)),
		nullable(rec.SessionID),
		nullable(rec.IP),
		rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("messagelog: insert failed: %w", err)
	}
	return nil
}

// List returns matching records newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Role != "" {
		add("role = $%d", string(filter.Role))
	}
	if filter.Source != "" {
		add("source = $%d", string(filter.Source))
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		add("created_at < $%d", filter.Until)
	}
	if !filter.BeforeAt.IsZero() {
		args = append(args, filter.BeforeAt, filter.BeforeID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d::uuid)", len(args)-1, len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, role, text, source, session_id, ip, created_at FROM chat_messages")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("messagelog: list failed: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			rec                   Record
			role                  string
			source, session, addr *string
		)
		if err := rows.Scan(&rec.ID, &role, &rec.Text, &source, &session, &addr, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("messagelog: scan failed: %w", err)
		}
		rec.Role = Role(role)
		rec.Source = Source(deref(source))
		rec.SessionID = deref(session)
		rec.IP = deref(addr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats aggregates counts for the dashboard.
func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	stats := Stats{Since: since, BySource: map[Source]int{}}

	rows, err := s.db.Query(ctx, `
		SELECT role, COALESCE(source, ''), COUNT(*)
		FROM chat_messages
		WHERE created_at >= $1
		GROUP BY role, source
	`, since)
	if err != nil {
		return Stats{}, fmt.Errorf("messagelog: stats failed: %w", err)
	}
	for rows.Next() {
		var (
			role, source string
			n            int
		)
		if err := rows.Scan(&role, &source, &n); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("messagelog: stats scan failed: %w", err)
		}
		switch Role(role) {
		case RoleUser:
			stats.User += n
		case RoleBot:
			stats.Bot += n
			if source != "" {
				stats.BySource[Source(source)] += n
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("messagelog: stats failed: %w", err)
	}

	daily, err := s.db.Query(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM chat_messages
		WHERE created_at >= $1 AND role = 'user'
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return Stats{}, fmt.Errorf("messagelog: daily stats failed: %w", err)
	}
	defer daily.Close()

	stats.Daily = []DailyCount{}
	for daily.Next() {
		var (
			day time.Time
			n   int
		)
		if err := daily.Scan(&day, &n); err != nil {
			return Stats{}, fmt.Errorf("messagelog: daily scan failed: %w", err)
		}
		stats.Daily = append(stats.Daily, DailyCount{Day: day.Format(time.DateOnly), Messages: n})
	}
	return stats, daily.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
