package customreplies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const replyColumns = `id, trigger, keywords, response, active, created_at, updated_at`

// PostgresRepository stores replies in the custom_replies table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository initializes a repository backed by database/sql.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("customreplies: sql db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Reply, error) {
	return r.query(ctx, `SELECT `+replyColumns+` FROM custom_replies ORDER BY created_at ASC`)
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]Reply, error) {
	return r.query(ctx, `SELECT `+replyColumns+` FROM custom_replies WHERE active ORDER BY created_at ASC`)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]Reply, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("customreplies: select failed: %w", err)
	}
	defer rows.Close()

	out := []Reply{}
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customreplies: select failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Reply, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+replyColumns+` FROM custom_replies WHERE id = $1`, id)
	return scanReply(row)
}

func (r *PostgresRepository) Create(ctx context.Context, in *ReplyInput) (*Reply, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO custom_replies (id, trigger, keywords, response, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+replyColumns,
		uuid.NewString(), in.Trigger, pq.Array(in.Keywords), in.Response, in.IsActive(),
	)
	reply, err := scanReply(row)
	if err != nil {
		return nil, fmt.Errorf("customreplies: insert failed: %w", err)
	}
	return reply, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, in *ReplyInput) (*Reply, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE custom_replies
		SET trigger = $2, keywords = $3, response = $4, active = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+replyColumns,
		id, in.Trigger, pq.Array(in.Keywords), in.Response, in.IsActive(), time.Now().UTC(),
	)
	return scanReply(row)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM custom_replies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("customreplies: delete failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReply(row rowScanner) (*Reply, error) {
	var reply Reply
	keywords := pq.StringArray{}
	if err := row.Scan(
		&reply.ID,
		&reply.Trigger,
		&keywords,
		&reply.Response,
		&reply.Active,
		&reply.CreatedAt,
		&reply.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("customreplies: scan failed: %w", err)
	}
	reply.Keywords = []string(keywords)
	if reply.Keywords == nil {
		reply.Keywords = []string{}
	}
	return &reply, nil
}
