package customreplies

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var replyCols = []string{"id", "trigger", "keywords", "response", "active", "created_at", "updated_at"}

func TestPostgresRepository_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, trigger, keywords, response, active, created_at, updated_at FROM custom_replies WHERE active").
		WillReturnRows(sqlmock.NewRows(replyCols).
			AddRow("r-1", "horario", "{hora,horarios}", "Atendemos 9-18h", true, ts, ts).
			AddRow("r-2", "", "{}", "Sin trigger", true, ts, ts))

	repo := NewPostgresRepository(db)
	replies, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, []string{"hora", "horarios"}, replies[0].Keywords)
	assert.Equal(t, []string{}, replies[1].Keywords)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO custom_replies").
		WithArgs(sqlmock.AnyArg(), "horario", sqlmock.AnyArg(), "Atendemos 9-18h", true).
		WillReturnRows(sqlmock.NewRows(replyCols).
			AddRow(uuid.NewString(), "horario", "{hora}", "Atendemos 9-18h", true, ts, ts))

	repo := NewPostgresRepository(db)
	reply, err := repo.Create(context.Background(), &ReplyInput{Trigger: "horario", Keywords: []string{"hora"}, Response: "Atendemos 9-18h"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hora"}, reply.Keywords)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.NewString()
	mock.ExpectQuery("SELECT .* FROM custom_replies WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	repo := NewPostgresRepository(db)
	_, err = repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.NewString()
	mock.ExpectExec("DELETE FROM custom_replies").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM custom_replies").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.Delete(context.Background(), id))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
