// Package customreplies stores operator-defined canned answers and decides
// which one, if any, applies to an incoming chat message.
package customreplies

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a reply does not exist
	ErrNotFound = errors.New("custom reply not found")

	// ErrNoTrigger is returned when a reply has neither a trigger nor keywords
	ErrNoTrigger = errors.New("a trigger or at least one keyword is required")
)

// Reply is a trigger/keyword rule with its canned response.
type Reply struct {
	ID        string    `json:"id"`
	Trigger   string    `json:"trigger"`
	Keywords  []string  `json:"keywords"`
	Response  string    `json:"response"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReplyInput is the request body for creating or replacing a reply.
type ReplyInput struct {
	Trigger  string   `json:"trigger" validate:"max=200"`
	Keywords []string `json:"keywords" validate:"max=50,dive,max=100"`
	Response string   `json:"response" validate:"required,max=4000"`
	Active   *bool    `json:"active"`
}

// Normalize trims fields and drops blank keywords.
func (in *ReplyInput) Normalize() {
	in.Trigger = strings.TrimSpace(in.Trigger)
	in.Response = strings.TrimSpace(in.Response)
	keywords := make([]string, 0, len(in.Keywords))
	for _, kw := range in.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	in.Keywords = keywords
}

// Validate checks the rules that struct tags cannot express.
func (in *ReplyInput) Validate() error {
	if in.Trigger == "" && len(in.Keywords) == 0 {
		return ErrNoTrigger
	}
	return nil
}

// IsActive defaults a missing flag to true.
func (in *ReplyInput) IsActive() bool {
	return in.Active == nil || *in.Active
}
