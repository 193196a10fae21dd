// Package blocklist keeps the IP addresses that may not use the chat endpoint.
package blocklist

import (
	"context"
	"errors"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("blocked ip not found")
	ErrDuplicate = errors.New("ip is already blocked")
	ErrInvalidIP = errors.New("invalid ip address")
)

// BlockedIP is one blocked address.
type BlockedIP struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest is the body for blocking an address.
type CreateRequest struct {
	IP     string `json:"ip" validate:"required,ip"`
	Reason string `json:"reason" validate:"max=500"`
}

// Repository defines blocked IP storage.
type Repository interface {
	List(ctx context.Context) ([]BlockedIP, error)
	Create(ctx context.Context, req CreateRequest) (*BlockedIP, error)
	Delete(ctx context.Context, id string) error
	IsBlocked(ctx context.Context, ip string) (bool, error)
}

// CanonicalIP normalizes an address so that equivalent spellings compare
// equal; IPv4-mapped IPv6 addresses collapse to IPv4.
func CanonicalIP(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if host, _, ok := strings.Cut(raw, "%"); ok {
		raw = host
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		if ap, perr := netip.ParseAddrPort(raw); perr == nil {
			addr = ap.Addr()
		} else {
			return "", ErrInvalidIP
		}
	}
	return addr.Unmap().String(), nil
}

// InMemoryRepository stores blocked IPs in memory.
type InMemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]BlockedIP
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: map[string]BlockedIP{}}
}

func (r *InMemoryRepository) List(ctx context.Context) ([]BlockedIP, error) {
	r.mu.RLock()
	out := make([]BlockedIP, 0, len(r.byID))
	for _, b := range r.byID {
		out = append(out, b)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, req CreateRequest) (*BlockedIP, error) {
	ip, err := CanonicalIP(req.IP)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.IP == ip {
			return nil, ErrDuplicate
		}
	}
	b := BlockedIP{
		ID:        uuid.NewString(),
		IP:        ip,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: time.Now().UTC(),
	}
	r.byID[b.ID] = b
	return &b, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *InMemoryRepository) IsBlocked(ctx context.Context, ip string) (bool, error) {
	canonical, err := CanonicalIP(ip)
	if err != nil {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.byID {
		if b.IP == canonical {
			return true, nil
		}
	}
	return false, nil
}
