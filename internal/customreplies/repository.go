package customreplies

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for custom reply storage
type Repository interface {
	ActiveLister
	List(ctx context.Context) ([]Reply, error)
	Get(ctx context.Context, id string) (*Reply, error)
	Create(ctx context.Context, in *ReplyInput) (*Reply, error)
	Update(ctx context.Context, id string, in *ReplyInput) (*Reply, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository keeps replies in process memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	replies map[string]*Reply
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		replies: make(map[string]*Reply),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Reply, error) {
	r.mu.RLock()
	out := make([]Reply, 0, len(r.replies))
	for _, reply := range r.replies {
		out = append(out, clone(reply))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) ListActive(ctx context.Context) ([]Reply, error) {
	all, _ := r.List(ctx)
	active := all[:0]
	for _, reply := range all {
		if reply.Active {
			active = append(active, reply)
		}
	}
	return active, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Reply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reply, ok := r.replies[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(reply)
	return &out, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, in *ReplyInput) (*Reply, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	reply := &Reply{
		ID:        uuid.NewString(),
		Trigger:   in.Trigger,
		Keywords:  append([]string{}, in.Keywords...),
		Response:  in.Response,
		Active:    in.IsActive(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.replies[reply.ID] = reply
	r.mu.Unlock()
	out := clone(reply)
	return &out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, in *ReplyInput) (*Reply, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reply, ok := r.replies[id]
	if !ok {
		return nil, ErrNotFound
	}
	reply.Trigger = in.Trigger
	reply.Keywords = append([]string{}, in.Keywords...)
	reply.Response = in.Response
	reply.Active = in.IsActive()
	reply.UpdatedAt = r.now()
	out := clone(reply)
	return &out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.replies[id]; !ok {
		return ErrNotFound
	}
	delete(r.replies, id)
	return nil
}

func clone(r *Reply) Reply {
	out := *r
	out.Keywords = append([]string{}, r.Keywords...)
	return out
}
