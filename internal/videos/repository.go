package videos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Repository persists video metadata.
type Repository interface {
	List(ctx context.Context) ([]Video, error)
	Get(ctx context.Context, id string) (*Video, error)
	Create(ctx context.Context, v *Video) error
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository keeps videos in a map.
type InMemoryRepository struct {
	mu     sync.RWMutex
	videos map[string]Video
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{videos: map[string]Video{}}
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Video, error) {
	r.mu.RLock()
	out := make([]Video, 0, len(r.videos))
	for _, v := range r.videos {
		out = append(out, v)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, v *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[v.ID] = *v
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return ErrNotFound
	}
	delete(r.videos, id)
	return nil
}

// PostgresRepository stores metadata in the videos table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("videos: sql db required")
	}
	return &PostgresRepository{db: db}
}

const videoColumns = `id, title, description, object_key, content_type, size_bytes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*Video, error) {
	var v Video
	if err := row.Scan(&v.ID, &v.Title, &v.Description, &v.ObjectKey, &v.ContentType, &v.SizeBytes, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Video, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("videos: select failed: %w", err)
	}
	defer rows.Close()

	out := []Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("videos: scan failed: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Video, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	v, err := scanVideo(r.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("videos: get failed: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) Create(ctx context.Context, v *Video) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO videos (id, title, description, object_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, v.ID, v.Title, v.Description, v.ObjectKey, v.ContentType, v.SizeBytes).Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("videos: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("videos: delete failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
