package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusCancelled  EnrollmentStatus = "CANCELLED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
)

// Enrollment captures a user's seat (or waitlist slot) in a course offering.
// WaitlistPosition is present iff the status is WAITLISTED.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	CourseOfferingID string           `db:"course_offering_id" json:"course_offering_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	WaitlistPosition *int             `db:"waitlist_position" json:"waitlist_position,omitempty"`
	Attendance       *bool            `db:"attendance" json:"attendance,omitempty"`
	AttendanceNotes  *string          `db:"attendance_notes" json:"attendance_notes,omitempty"`
	EnrollmentDate   time.Time        `db:"enrollment_date" json:"enrollment_date"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID           string
	CourseOfferingID string
	Status           EnrollmentStatus
	Page             int
	PageSize         int
	SortOrder        string
}
