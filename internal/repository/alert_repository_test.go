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

func newAlertRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAlertRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAlertRepoMock(t)
	defer cleanup()
	repo := NewAlertRepository(db)

	mock.ExpectExec("INSERT INTO delivery_alerts").
		WithArgs(sqlmock.AnyArg(), models.AlertTypeHighBounceRate, models.AlertSeverityCritical, "high bounce rate for domain example.com: 35.0%", sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	alert := &models.DeliveryAlert{
		AlertType: models.AlertTypeHighBounceRate,
		Severity:  models.AlertSeverityCritical,
		Message:   "high bounce rate for domain example.com: 35.0%",
		Metadata:  models.AlertMetadata{"domain": "example.com"},
	}
	id, err := repo.Create(context.Background(), alert)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, alert.ID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newAlertRepoMock(t)
	defer cleanup()
	repo := NewAlertRepository(db)

	rows := sqlmock.NewRows([]string{"id", "alert_type", "severity", "message", "metadata", "created_at", "resolved_at"}).
		AddRow("a1", "delivery_failure", "high", "certificate delivery exhausted all retries", []byte(`{"certificate_id":"cert-1"}`), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM delivery_alerts WHERE resolved_at IS NULL ORDER BY created_at DESC")).
		WillReturnRows(rows)

	alerts, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeDeliveryFailure, alerts[0].AlertType)
	assert.Equal(t, "cert-1", alerts[0].Metadata["certificate_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryResolveOnlyUnresolved(t *testing.T) {
	db, mock, cleanup := newAlertRepoMock(t)
	defer cleanup()
	repo := NewAlertRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE delivery_alerts SET resolved_at = $2 WHERE id = $1 AND resolved_at IS NULL")).
		WithArgs("a1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Resolve(context.Background(), "a1"))

	// An already-resolved alert matches zero rows and still succeeds.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE delivery_alerts SET resolved_at = $2 WHERE id = $1 AND resolved_at IS NULL")).
		WithArgs("a1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Resolve(context.Background(), "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
