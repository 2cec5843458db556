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

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_offering_id = $1 AND status = $2")).
		WithArgs("off-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	enrolled, err := repo.CountEnrolled(context.Background(), "off-1")
	require.NoError(t, err)
	assert.Equal(t, 12, enrolled)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_offering_id = $1 AND status = $2")).
		WithArgs("off-1", models.EnrollmentStatusWaitlisted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	waitlisted, err := repo.CountWaitlisted(context.Background(), "off-1")
	require.NoError(t, err)
	assert.Equal(t, 3, waitlisted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	position := 4
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "u1", "off-1", models.EnrollmentStatusWaitlisted, 4, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{
		UserID:           "u1",
		CourseOfferingID: "off-1",
		Status:           models.EnrollmentStatusWaitlisted,
		WaitlistPosition: &position,
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.False(t, enrollment.EnrollmentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFirstWaitlisted(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_offering_id", "status", "waitlist_position", "attendance", "attendance_notes", "enrollment_date"}).
		AddRow("w1", "u2", "off-1", "WAITLISTED", 1, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, course_offering_id, status, waitlist_position, attendance, attendance_notes, enrollment_date FROM enrollments WHERE course_offering_id = $1 AND status = $2 ORDER BY waitlist_position ASC LIMIT 1")).
		WithArgs("off-1", models.EnrollmentStatusWaitlisted).
		WillReturnRows(rows)

	head, err := repo.FirstWaitlisted(context.Background(), "off-1")
	require.NoError(t, err)
	assert.Equal(t, "w1", head.ID)
	require.NotNil(t, head.WaitlistPosition)
	assert.Equal(t, 1, *head.WaitlistPosition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, waitlist_position = $3 WHERE id = $1")).
		WithArgs("e1", models.EnrollmentStatusCancelled, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "e1", models.EnrollmentStatusCancelled, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_offering_id", "status", "waitlist_position", "attendance", "attendance_notes", "enrollment_date"}).
		AddRow("e1", "u1", "off-1", "ENROLLED", nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, course_offering_id, status, waitlist_position, attendance, attendance_notes, enrollment_date FROM enrollments WHERE status = $1 ORDER BY enrollment_date DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.EnrollmentStatusEnrolled).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE status = $1")).
		WithArgs(models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.EnrollmentFilter{Status: models.EnrollmentStatusEnrolled})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
