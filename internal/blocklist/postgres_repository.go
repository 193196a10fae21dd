package blocklist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresRepository stores blocked IPs in the blocked_ips table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository backed by database/sql.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("blocklist: sql db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]BlockedIP, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, ip, reason, created_at FROM blocked_ips ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("blocklist: select failed: %w", err)
	}
	defer rows.Close()

	out := []BlockedIP{}
	for rows.Next() {
		var b BlockedIP
		if err := rows.Scan(&b.ID, &b.IP, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("blocklist: scan failed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*BlockedIP, error) {
	ip, err := CanonicalIP(req.IP)
	if err != nil {
		return nil, err
	}
	b := BlockedIP{ID: uuid.NewString(), IP: ip, Reason: strings.TrimSpace(req.Reason)}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO blocked_ips (id, ip, reason)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, b.ID, b.IP, b.Reason).Scan(&b.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("blocklist: insert failed: %w", err)
	}
	return &b, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocked_ips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("blocklist: delete failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) IsBlocked(ctx context.Context, ip string) (bool, error) {
	canonical, err := CanonicalIP(ip)
	if err != nil {
		return false, nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_ips WHERE ip = $1)`, canonical,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("blocklist: lookup failed: %w", err)
	}
	return exists, nil
}
