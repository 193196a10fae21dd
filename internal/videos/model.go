// Package videos manages the video assets shown by the chat widget.
package videos

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("video not found")
	ErrMissingTitle    = errors.New("title is required")
	ErrMissingFile     = errors.New("file is required")
	ErrUnsupportedType = errors.New("content type must be video/*")
	ErrTooLarge        = errors.New("video exceeds the maximum upload size")
)

// Video is the metadata row for an uploaded object.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url,omitempty"`
}
