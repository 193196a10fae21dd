package settings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("widget.greeting"))
	assert.True(t, ValidKey("max_upload-mb"))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("Upper"))
	assert.False(t, ValidKey("has space"))
	assert.False(t, ValidKey(strings.Repeat("a", 65)))
}

func TestInMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	require.NoError(t, repo.Upsert(ctx, map[string]string{"b": "2", "a": "1"}))
	require.NoError(t, repo.Upsert(ctx, map[string]string{"a": "uno"}))
	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Key)
	assert.Equal(t, "uno", items[0].Value)

	assert.ErrorIs(t, repo.Upsert(ctx, map[string]string{"BAD": "x"}), ErrInvalidKey)
	require.NoError(t, repo.Delete(ctx, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), ErrNotFound)
}

func TestPostgresRepository_UpsertInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO settings").WithArgs("a", "1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO settings").WithArgs("b", "2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPostgresRepository(db).Upsert(context.Background(), map[string]string{"b": "2", "a": "1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpsertRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO settings").WithArgs("a", "1").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err = NewPostgresRepository(db).Upsert(context.Background(), map[string]string{"a": "1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	mock.ExpectQuery("SELECT key, value, updated_at FROM settings").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}))
	items, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	mock.ExpectExec("DELETE FROM settings").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(NewInMemoryRepository(), nil).Routes(r)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := send(http.MethodPut, "/settings", `{"widget.greeting":"Hola","widget.color":"#003366"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"widget.greeting":"Hola","widget.color":"#003366"}`, rec.Body.String())

	rec = send(http.MethodPut, "/settings", `{"Bad Key":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(http.MethodPut, "/settings", `{"n":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(http.MethodDelete, "/settings/widget.color", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = send(http.MethodGet, "/settings", "")
	assert.JSONEq(t, `{"widget.greeting":"Hola"}`, rec.Body.String())
}
