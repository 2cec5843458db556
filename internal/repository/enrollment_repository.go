package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apexlearn/training-admin-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, user_id, course_offering_id, status, waitlist_position, attendance, attendance_notes, enrollment_date`

// CountEnrolled returns the number of ENROLLED records for an offering.
func (r *EnrollmentRepository) CountEnrolled(ctx context.Context, offeringID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_offering_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, offeringID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return count, nil
}

// CountWaitlisted returns the number of WAITLISTED records for an offering.
func (r *EnrollmentRepository) CountWaitlisted(ctx context.Context, offeringID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_offering_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, offeringID, models.EnrollmentStatusWaitlisted); err != nil {
		return 0, fmt.Errorf("count waitlisted: %w", err)
	}
	return count, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, user_id, course_offering_id, status, waitlist_position, attendance, attendance_notes, enrollment_date)
        VALUES (:id, :user_id, :course_offering_id, :status, :waitlist_position, :attendance, :attendance_notes, :enrollment_date)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FirstWaitlisted returns the WAITLISTED enrollment with the smallest position
// for an offering, or sql.ErrNoRows when the waitlist is empty.
func (r *EnrollmentRepository) FirstWaitlisted(ctx context.Context, offeringID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE course_offering_id = $1 AND status = $2 ORDER BY waitlist_position ASC LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, offeringID, models.EnrollmentStatusWaitlisted); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateStatus updates status and waitlist_position for an enrollment.
// Passing a nil position clears it.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, waitlistPosition *int) error {
	const query = `UPDATE enrollments SET status = $2, waitlist_position = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, waitlistPosition); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// UpdateAttendance mutates the attendance fields independently of admission state.
func (r *EnrollmentRepository) UpdateAttendance(ctx context.Context, id string, attendance *bool, notes *string) error {
	const query = `UPDATE enrollments SET attendance = $2, attendance_notes = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, attendance, notes); err != nil {
		return fmt.Errorf("update enrollment attendance: %w", err)
	}
	return nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.CourseOfferingID != "" {
		conditions = append(conditions, fmt.Sprintf("course_offering_id = $%d", len(args)+1))
		args = append(args, filter.CourseOfferingID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM enrollments%s ORDER BY enrollment_date %s LIMIT %d OFFSET %d`,
		enrollmentColumns, clause, order, size, offset)

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}
