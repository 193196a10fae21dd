package admins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository persists admins.
type Repository interface {
	List(ctx context.Context) ([]Admin, error)
	Get(ctx context.Context, id string) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, a *Admin) error
	UpdatePassword(ctx context.Context, id, hash string) error
	// Delete removes the admin atomically unless it is the last one, in
	// which case it returns ErrLastAdmin.
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository keeps admins in memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	admins map[string]Admin
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{admins: map[string]Admin{}}
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Admin, error) {
	r.mu.RLock()
	out := make([]Admin, 0, len(r.admins))
	for _, a := range r.admins {
		out = append(out, a)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.admins), nil
}

func (r *InMemoryRepository) Create(ctx context.Context, a *Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if existing.Username == a.Username {
			return ErrDuplicate
		}
	}
	r.admins[a.ID] = *a
	return nil
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	r.admins[id] = a
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[id]; !ok {
		return ErrNotFound
	}
	if len(r.admins) <= 1 {
		return ErrLastAdmin
	}
	delete(r.admins, id)
	return nil
}

// PostgresRepository stores admins in the admins table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("admins: sql db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, password_hash, created_at FROM admins ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("admins: select failed: %w", err)
	}
	defer rows.Close()

	out := []Admin{}
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("admins: scan failed: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Admin, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM admins WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`, username)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*Admin, error) {
	var a Admin
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("admins: get failed: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("admins: count failed: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a *Admin) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admins (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, a.ID, a.Username, a.PasswordHash).Scan(&a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("admins: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `UPDATE admins SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("admins: update failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("admins: begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Locking every row serializes concurrent deletes; a waiter re-reads
	// the set after the first commit and no longer sees the deleted row.
	rows, err := tx.QueryContext(ctx, `SELECT id FROM admins FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("admins: lock admins: %w", err)
	}
	var (
		total int
		found bool
	)
	for rows.Next() {
		var rowID string
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("admins: lock scan: %w", err)
		}
		total++
		if rowID == id {
			found = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("admins: lock admins: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	if total <= 1 {
		return ErrLastAdmin
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id); err != nil {
		return fmt.Errorf("admins: delete failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("admins: commit delete: %w", err)
	}
	return nil
}
