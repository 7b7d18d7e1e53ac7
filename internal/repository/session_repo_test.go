package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"ytempire/internal/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryCreateMarksActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"."sessions"`).
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	session := &entity.Session{AccountID: uuid.New(), TokenHash: "digest", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.True(t, session.IsActive)
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateDuplicateToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"."sessions"`).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	session := &entity.Session{AccountID: uuid.New(), TokenHash: "digest", ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, repo.Create(context.Background(), session), ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindActiveByTokenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectQuery(`SELECT \* FROM "users"."sessions" WHERE session_token = \$1 AND account_id = \$2 AND is_active = \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}))

	session, err := repo.FindActiveByToken(context.Background(), "digest", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindActiveByTokenFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	sessionID := uuid.New()
	accountID := uuid.New()
	expiresAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "users"."sessions"`).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "account_id", "session_token", "expires_at", "is_active"}).
			AddRow(sessionID, accountID, "digest", expiresAt, true))

	session, err := repo.FindActiveByToken(context.Background(), "digest", accountID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, sessionID, session.ID)
	assert.Equal(t, accountID, session.AccountID)
	assert.Equal(t, "digest", session.TokenHash)
	assert.True(t, session.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRotateToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"."sessions" SET .*session_token.* WHERE session_id = \$\d+ AND session_token = \$\d+ AND is_active = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RotateToken(context.Background(), uuid.New(), "old", "new", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRotateTokenStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"."sessions"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.RotateToken(context.Background(), uuid.New(), "old", "new", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrStaleSession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryInvalidate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"."sessions" SET .* WHERE session_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Invalidate(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRevokeAllByAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"."sessions" SET .* WHERE account_id = \$\d+ AND is_active = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.RevokeAllByAccount(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryPurgeClosed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "users"."sessions" WHERE is_active = \$\d+ AND updated_at < \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	count, err := repo.PurgeClosed(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryPurgeClosedError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "users"."sessions"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.PurgeClosed(context.Background(), time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
