// Package messagelog is the append-only record of every chat exchange.
package messagelog

import (
	"errors"
	"time"
)

// Role identifies who authored a logged message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Source records which reply stage produced a bot message.
type Source string

const (
	SourceCustom    Source = "custom"
	SourceProviderA Source = "providerA"
	SourceProviderB Source = "providerB"
	SourceFallback  Source = "fallback"
)

// Valid reports whether s is one of the known reply sources.
func (s Source) Valid() bool {
	switch s {
	case SourceCustom, SourceProviderA, SourceProviderB, SourceFallback:
		return true
	}
	return false
}

const (
	// DefaultListLimit is used when a filter carries no limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single List page.
	MaxListLimit = 500
)

var (
	ErrInvalidRole   = errors.New("messagelog: invalid role")
	ErrInvalidSource = errors.New("messagelog: invalid source")
	ErrEmptyText     = errors.New("messagelog: text is required")
)

// Record is one logged message. Source is only set on bot records.
type Record struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Source    Source    `json:"source,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the record before it is appended.
func (r Record) Validate() error {
	if r.Role != RoleUser && r.Role != RoleBot {
		return ErrInvalidRole
	}
	if r.Text == "" {
		return ErrEmptyText
	}
	if r.Source != "" && !r.Source.Valid() {
		return ErrInvalidSource
	}
	return nil
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Role   Role
	Source Source
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int

	// Keyset cursor: only records strictly older than (BeforeAt, BeforeID)
	// in (created_at, id) order. Used by the CSV export.
	BeforeAt time.Time
	BeforeID string
}

// Normalize clamps paging values into their allowed ranges.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f Filter) matches(r Record) bool {
	if f.Role != "" && r.Role != f.Role {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !r.CreatedAt.Before(f.Until) {
		return false
	}
	if !f.BeforeAt.IsZero() && !newerFirst(Record{ID: f.BeforeID, CreatedAt: f.BeforeAt}, r) {
		return false
	}
	return true
}

// newerFirst reports whether a sorts before b in (created_at, id) descending order.
func newerFirst(a, b Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// DailyCount is the number of user messages received on one day (UTC).
type DailyCount struct {
	Day      string `json:"day"`
	Messages int    `json:"messages"`
}

// Stats summarizes the log since a point in time for the dashboard charts.
type Stats struct {
	Since    time.Time      `json:"since"`
	User     int            `json:"user_messages"`
	Bot      int            `json:"bot_messages"`
	BySource map[Source]int `json:"by_source"`
	Daily    []DailyCount   `json:"daily"`
}
