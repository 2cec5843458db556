package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexlearn/training-admin-api/internal/models"
)

func newRetryJobRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRetryJobRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRetryJobRepoMock(t)
	defer cleanup()
	repo := NewRetryJobRepository(db)

	mock.ExpectExec("INSERT INTO retry_jobs").
		WithArgs(sqlmock.AnyArg(), "cert-1", 1, sqlmock.AnyArg(), models.RetryStatusPending, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.RetryJob{
		CertificateID: "cert-1",
		RetryCount:    1,
		NextRetryAt:   time.Now().UTC().Add(30 * time.Minute),
	}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.RetryStatusPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryJobRepositoryDueBatch(t *testing.T) {
	db, mock, cleanup := newRetryJobRepoMock(t)
	defer cleanup()
	repo := NewRetryJobRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "certificate_id", "retry_count", "next_retry_at", "status", "error_message", "created_at", "updated_at"}).
		AddRow("j1", "cert-1", 1, now.Add(-time.Hour), "pending", nil, now, now).
		AddRow("j2", "cert-2", 2, now.Add(-time.Minute), "pending", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, certificate_id, retry_count, next_retry_at, status, error_message, created_at, updated_at FROM retry_jobs WHERE status = $1 AND next_retry_at <= $2 ORDER BY next_retry_at ASC LIMIT $3")).
		WithArgs(models.RetryStatusPending, sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	jobs, err := repo.DueBatch(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "j1", jobs[0].ID)
	assert.Equal(t, "j2", jobs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRetryJobRepoMock(t)
	defer cleanup()
	repo := NewRetryJobRepository(db)

	status := models.RetryStatusFailed
	message := "redelivery failed after max retries"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE retry_jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(status, message, sqlmock.AnyArg(), "j1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Update(context.Background(), "j1", UpdateRetryJobParams{Status: &status, ErrorMessage: &message}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryJobRepositoryUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock, cleanup := newRetryJobRepoMock(t)
	defer cleanup()
	repo := NewRetryJobRepository(db)

	require.NoError(t, repo.Update(context.Background(), "j1", UpdateRetryJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
