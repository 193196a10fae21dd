package admins

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminCols = []string{"id", "username", "password_hash", "created_at"}

func TestPostgresRepository_GetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM admins WHERE username").
		WithArgs("ana").
		WillReturnRows(sqlmock.NewRows(adminCols).AddRow("a-1", "ana", "$2a$hash", ts))
	mock.ExpectQuery("FROM admins WHERE username").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(adminCols))

	repo := NewPostgresRepository(db)
	a, err := repo.GetByUsername(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, "$2a$hash", a.PasswordHash)

	_, err = repo.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO admins").WillReturnError(&pq.Error{Code: "23505"})
	err = NewPostgresRepository(db).Create(context.Background(), &Admin{ID: uuid.NewString(), Username: "ana"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresRepository_CountAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	id := uuid.NewString()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM admins FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)

	mock.ExpectExec("UPDATE admins SET password_hash").WithArgs(id, "h").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdatePassword(context.Background(), id, "h"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteLocksAndKeepsLastAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	ana, beto := uuid.NewString(), uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM admins FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(ana).AddRow(beto))
	mock.ExpectExec("DELETE FROM admins WHERE id = \\$1").WithArgs(ana).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Delete(context.Background(), ana))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM admins FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(beto))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Delete(context.Background(), beto), ErrLastAdmin)

	assert.NoError(t, mock.ExpectationsWereMet())
}
