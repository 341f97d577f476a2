package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func TestLoginAttemptRepository_Create(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewLoginAttemptRepository(gormDB)

	attemptedAt := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO "login_attempts" ("email","ip_address","attempted_at") VALUES ($1,$2,$3) RETURNING "id"`)).
		WithArgs("user@example.com", "203.0.113.7", attemptedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(&model.LoginAttempt{
		Email:       "user@example.com",
		IPAddress:   "203.0.113.7",
		AttemptedAt: attemptedAt,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAttemptRepository_CountRecentByEmail(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewLoginAttemptRepository(gormDB)

	since := time.Now().Add(-15 * time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT count(*) FROM "login_attempts" WHERE email = $1 AND attempted_at >= $2`)).
		WithArgs("user@example.com", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountRecentByEmail("user@example.com", since)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAttemptRepository_CountRecentByIP(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewLoginAttemptRepository(gormDB)

	since := time.Now().Add(-15 * time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT count(*) FROM "login_attempts" WHERE ip_address = $1 AND attempted_at >= $2`)).
		WithArgs("203.0.113.7", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	count, err := repo.CountRecentByIP("203.0.113.7", since)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAttemptRepository_DeleteByEmail(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewLoginAttemptRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM "login_attempts" WHERE email = $1`)).
		WithArgs("user@example.com").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	err := repo.DeleteByEmail("user@example.com")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAttemptRepository_DeleteByIP(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewLoginAttemptRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM "login_attempts" WHERE ip_address = $1`)).
		WithArgs("203.0.113.7").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.DeleteByIP("203.0.113.7")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAttemptRepository_DeleteOlderThan(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewLoginAttemptRepository(gormDB)

	cutoff := time.Now().Add(-15 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM "login_attempts" WHERE attempted_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectCommit()

	purged, err := repo.DeleteOlderThan(cutoff)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
