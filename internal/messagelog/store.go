package messagelog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists chat messages. Implementations must accept concurrent Appends.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, filter Filter) ([]Record, error)
	Stats(ctx context.Context, since time.Time) (Stats, error)
}

// prepare fills server-side fields before a record is stored.
func prepare(rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec, nil
}

// InMemoryStore keeps records in process memory. Used in development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// List returns matching records newest first.
func (s *InMemoryStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	matched := make([]Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		if filter.matches(s.records[i]) {
			matched = append(matched, s.records[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return newerFirst(matched[i], matched[j])
	})

	if filter.Offset >= len(matched) {
		return []Record{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (s *InMemoryStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	stats := Stats{Since: since, BySource: map[Source]int{}}
	daily := map[string]int{}

	s.mu.RLock()
	for _, rec := range s.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		switch rec.Role {
		case RoleUser:
			stats.User++
			daily[rec.CreatedAt.UTC().Format(time.DateOnly)]++
		case RoleBot:
			stats.Bot++
			if rec.Source != "" {
				stats.BySource[rec.Source]++
			}
		}
	}
	s.mu.RUnlock()

	stats.Daily = make([]DailyCount, 0, len(daily))
	for day, n := range daily {
		stats.Daily = append(stats.Daily, DailyCount{Day: day, Messages: n})
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Day < stats.Daily[j].Day })
	return stats, nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
