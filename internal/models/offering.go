package models

import "time"

// CourseOffering is a capacity-limited scheduled run of a course.
type CourseOffering struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	MaxParticipants int       `db:"max_participants" json:"max_participants"`
	StartsAt        time.Time `db:"starts_at" json:"starts_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
