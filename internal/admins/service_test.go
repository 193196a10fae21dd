package admins

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) (*Service, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	svc := NewService(repo, testSecret, time.Hour, nil)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func TestService_AuthenticateIssuesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, " Ana ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "ana", a.Username)
	assert.NotEqual(t, "correct-horse", a.PasswordHash)

	resp, err := svc.Authenticate(ctx, "ANA", "correct-horse")
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(resp.Token, &claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "HS256", token.Method.Alg())
	assert.Equal(t, a.ID, claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestService_AuthenticateRejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "ana", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ana", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	disabled := NewService(NewInMemoryRepository(), "", time.Hour, nil)
	_, err = disabled.Authenticate(ctx, "ana", "correct-horse")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestService_CreateDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "ana", "password1")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "ANA", "password2")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, "ana", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, a.ID, "password2"))
	_, err = svc.Authenticate(ctx, "ana", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ana", "password2")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "missing", "password3"), ErrNotFound)
}

func TestService_DeleteKeepsLastAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, "ana", "password1")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "beto", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, b.ID), ErrLastAdmin)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
}

func TestService_EnsureBootstrap(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureBootstrap(ctx, "", ""))
	n, _ := repo.Count(ctx)
	assert.Equal(t, 0, n)

	require.NoError(t, svc.EnsureBootstrap(ctx, "root", "bootstrap-pass"))
	require.NoError(t, svc.EnsureBootstrap(ctx, "other", "bootstrap-pass"))
	n, _ = repo.Count(ctx)
	assert.Equal(t, 1, n)

	_, err := svc.Authenticate(ctx, "root", "bootstrap-pass")
	assert.NoError(t, err)
}

func TestService_ConcurrentDeletesKeepOneAdmin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, "ana", "password1")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "beto", "password1")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	start := make(chan struct{})
	for i, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			<-start
			errs[i] = svc.Delete(ctx, id)
		}(i, id)
	}
	close(start)
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrLastAdmin)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
