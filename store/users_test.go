package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-sales/models"
	"retail-sales/services"
)

func newMockUsers(t *testing.T) (*Users, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUsers(db), mock
}

func TestUsers_Create(t *testing.T) {
	users, mock := newMockUsers(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (id, name, email, password_hash)")).
		WithArgs("u-1", "Neha", "neha@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	u := &models.User{ID: "u-1", Name: "Neha", Email: "Neha@Example.com", PasswordHash: "hash"}
	require.NoError(t, users.Create(context.Background(), u))
	assert.Equal(t, created, u.CreatedAt)
	assert.Equal(t, "neha@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_CreateDuplicate(t *testing.T) {
	users, mock := newMockUsers(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := users.Create(context.Background(), &models.User{ID: "u-1", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrUserExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_GetByEmail(t *testing.T) {
	users, mock := newMockUsers(t)
	created := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("neha@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow("u-1", "Neha", "neha@example.com", "hash", created))

	u, err := users.GetByEmail(context.Background(), "NEHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_NotFound(t *testing.T) {
	users, mock := newMockUsers(t)

	mock.ExpectQuery("FROM users").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM users").WillReturnError(sql.ErrNoRows)

	_, err := users.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_PingFailure(t *testing.T) {
	users, mock := newMockUsers(t)

	mock.ExpectPing().WillReturnError(errors.New("dial tcp: connection refused"))

	err := users.Ping(context.Background())
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
