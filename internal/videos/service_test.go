package videos

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCreateRepo struct{ *InMemoryRepository }

func (failingCreateRepo) Create(context.Context, *Video) error { return errors.New("db down") }

func newTestService(repo Repository, client *mockS3Client, maxBytes int64) *Service {
	svc := NewService(repo, NewS3StorageWithAPI(client, &mockPresigner{}, "media", time.Minute), maxBytes, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 9, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_UploadGetDelete(t *testing.T) {
	client := newMockS3()
	svc := newTestService(NewInMemoryRepository(), client, 1024)
	ctx := context.Background()

	v, err := svc.Upload(ctx, UploadInput{
		Title:       " Cómo registrar un documento ",
		Filename:    "Tutorial.MP4",
		ContentType: "video/mp4",
		Size:        5,
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cómo registrar un documento", v.Title)
	assert.True(t, strings.HasPrefix(v.ObjectKey, "videos/2026/04/"))
	assert.True(t, strings.HasSuffix(v.ObjectKey, ".mp4"))
	assert.Contains(t, client.objects, v.ObjectKey)

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Contains(t, got.URL, v.ObjectKey)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, v.ID))
	assert.Empty(t, client.objects)
	_, err = svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UploadValidation(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), newMockS3(), 10)
	body := strings.NewReader("x")

	tests := []struct {
		name string
		in   UploadInput
		want error
	}{
		{name: "missing title", in: UploadInput{ContentType: "video/mp4", Size: 1, Body: body}, want: ErrMissingTitle},
		{name: "missing file", in: UploadInput{Title: "t", ContentType: "video/mp4"}, want: ErrMissingFile},
		{name: "not a video", in: UploadInput{Title: "t", ContentType: "image/png", Size: 1, Body: body}, want: ErrUnsupportedType},
		{name: "too large", in: UploadInput{Title: "t", ContentType: "video/webm", Size: 11, Body: body}, want: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_UploadRemovesObjectWhenRowFails(t *testing.T) {
	client := newMockS3()
	svc := newTestService(failingCreateRepo{NewInMemoryRepository()}, client, 0)

	_, err := svc.Upload(context.Background(), UploadInput{
		Title: "t", Filename: "a.webm", ContentType: "video/webm", Size: 3, Body: strings.NewReader("abc"),
	})
	require.Error(t, err)
	assert.Empty(t, client.objects)
	assert.Len(t, client.deleted, 1)
}

func TestService_DeleteKeepsRowWhenObjectDeleteFails(t *testing.T) {
	client := newMockS3()
	repo := NewInMemoryRepository()
	svc := newTestService(repo, client, 0)
	v, err := svc.Upload(context.Background(), UploadInput{
		Title: "t", ContentType: "video/mp4", Size: 1, Body: strings.NewReader("a"),
	})
	require.NoError(t, err)

	client.deleteErr = errors.New("timeout")
	require.Error(t, svc.Delete(context.Background(), v.ID))
	_, err = repo.Get(context.Background(), v.ID)
	assert.NoError(t, err)
}
