package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/qcom/authapi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMySQLRepo(t *testing.T) (*MySQLUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLUserRepository(db, testLogger()), mock
}

func TestMySQLUserRepository_Create(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (` + userColumns + `)`)).
		WithArgs("u1", "A", "a@x.com", "hash", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{ID: "u1", Name: "A", Email: "a@x.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.False(t, user.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com' for key 'users.email'"})

	err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMySQLUserRepository_CreateOtherError(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "a@x.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestMySQLUserRepository_GetByEmail(t *testing.T) {
	repo, mock := newMySQLRepo(t)
	now := time.Now().UTC()
	exp := now.Add(5 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "otp", "otp_expires_at", "created_at", "updated_at"}).
		AddRow("u1", "A", "a@x.com", "hash", "123456", exp, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = ?`)).
		WithArgs("a@x.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	require.NotNil(t, user.OTP)
	assert.Equal(t, "123456", *user.OTP)
	require.NotNil(t, user.OTPExpiresAt)
	assert.True(t, exp.Equal(*user.OTPExpiresAt))
}

func TestMySQLUserRepository_GetByIDNullOTP(t *testing.T) {
	repo, mock := newMySQLRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "otp", "otp_expires_at", "created_at", "updated_at"}).
		AddRow("u1", "A", "a@x.com", "hash", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = ?`)).
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, user.OTP)
	assert.Nil(t, user.OTPExpiresAt)
}

func TestMySQLUserRepository_GetNotFound(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = ?`)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMySQLUserRepository_UpdateProfile(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`)).
		WithArgs("B", "b@x.com", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{ID: "u1", Name: "B", Email: "b@x.com"}
	require.NoError(t, repo.UpdateProfile(context.Background(), user, "a@x.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository_UpdateProfileDuplicate(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET name = ?`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.UpdateProfile(context.Background(), &models.User{ID: "u1", Email: "b@x.com"}, "a@x.com")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMySQLUserRepository_SetAndClearOTP(t *testing.T) {
	repo, mock := newMySQLRepo(t)
	exp := time.Now().Add(5 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET otp = ?, otp_expires_at = ?, updated_at = ? WHERE id = ?`)).
		WithArgs("654321", sqlmock.AnyArg(), sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET otp = NULL, otp_expires_at = NULL WHERE id = ?`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetOTP(context.Background(), "u1", "654321", exp))
	require.NoError(t, repo.ClearOTP(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository_SetOTPUnknownUser(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET otp = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM users WHERE id = ?`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	err := repo.SetOTP(context.Background(), "ghost", "654321", time.Now())
	assert.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository_UpdateProfileUnchangedRow(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`)).
		WithArgs("A", "a@x.com", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM users WHERE id = ?`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	user := &models.User{ID: "u1", Name: "A", Email: "a@x.com"}
	require.NoError(t, repo.UpdateProfile(context.Background(), user, "a@x.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository_ClearOTPAlreadyCleared(t *testing.T) {
	repo, mock := newMySQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET otp = NULL`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM users WHERE id = ?`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	require.NoError(t, repo.ClearOTP(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenMySQL_InvalidDSN(t *testing.T) {
	_, err := OpenMySQL(context.Background(), "no-slash-here")
	assert.ErrorContains(t, err, "failed to parse mysql dsn")
}
