package videos

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/indarelin/backoffice/pkg/logging"
)

// UploadInput carries one uploaded file and its metadata.
type UploadInput struct {
	Title       string
	Description string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service coordinates the blob store and the metadata repository.
type Service struct {
	repo     Repository
	storage  Storage
	maxBytes int64
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(repo Repository, storage Storage, maxBytes int64, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		storage:  storage,
		maxBytes: maxBytes,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MaxBytes is the configured upload ceiling.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload stores the object first and then records it. If the row cannot be
// written the object is removed again.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Video, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}
	if in.Body == nil || in.Size <= 0 {
		return nil, ErrMissingFile
	}
	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if !strings.HasPrefix(contentType, "video/") {
		return nil, ErrUnsupportedType
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, ErrTooLarge
	}

	id := uuid.NewString()
	now := s.now()
	key := fmt.Sprintf("videos/%d/%02d/%s%s", now.Year(), now.Month(), id, strings.ToLower(path.Ext(in.Filename)))

	if err := s.storage.Put(ctx, key, in.Body, in.Size, contentType); err != nil {
		return nil, err
	}
	v := &Video{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   in.Size,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned video object", "error", delErr, "object_key", key)
		}
		return nil, err
	}
	s.logger.Info("video uploaded", "id", v.ID, "object_key", key, "size_bytes", v.SizeBytes)
	return v, nil
}

func (s *Service) List(ctx context.Context) ([]Video, error) {
	return s.repo.List(ctx)
}

// Get returns the video with a presigned download URL.
func (s *Service) Get(ctx context.Context, id string) (*Video, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.URL(ctx, v.ObjectKey)
	if err != nil {
		return nil, err
	}
	v.URL = url
	return v, nil
}

// Delete removes the object, then the row.
func (s *Service) Delete(ctx context.Context, id string) error {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, v.ObjectKey); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("video deleted", "id", id, "object_key", v.ObjectKey)
	return nil
}
