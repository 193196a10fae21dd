// Package settings stores free-form key/value configuration edited from the back office.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound   = errors.New("setting not found")
	ErrInvalidKey = errors.New("setting keys must match ^[a-z0-9_.-]{1,64}$")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_.-]{1,64}$`)

// Setting is a single key/value pair.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidKey reports whether key is an acceptable setting name.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Repository persists settings.
type Repository interface {
	List(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
}

func validateKeys(values map[string]string) error {
	for k := range values {
		if !ValidKey(k) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
	}
	return nil
}

// InMemoryRepository keeps settings in a map.
type InMemoryRepository struct {
	mu     sync.RWMutex
	values map[string]Setting
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{values: map[string]Setting{}}
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Setting, error) {
	r.mu.RLock()
	out := make([]Setting, 0, len(r.values))
	for _, s := range r.values {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, values map[string]string) error {
	if err := validateKeys(values); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		r.values[k] = Setting{Key: k, Value: v, UpdatedAt: now}
	}
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[key]; !ok {
		return ErrNotFound
	}
	delete(r.values, key)
	return nil
}

// PostgresRepository stores settings in the settings table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("settings: sql db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("settings: select failed: %w", err)
	}
	defer rows.Close()

	out := []Setting{}
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("settings: scan failed: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert writes all values in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, values map[string]string) error {
	if err := validateKeys(values); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settings: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, k, values[k]); err != nil {
			return fmt.Errorf("settings: upsert %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settings: commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("settings: delete failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
