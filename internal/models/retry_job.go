package models

import "time"

// RetryStatus captures the lifecycle states of a redelivery job.
type RetryStatus string

const (
	RetryStatusPending    RetryStatus = "pending"
	RetryStatusProcessing RetryStatus = "processing"
	RetryStatusCompleted  RetryStatus = "completed"
	RetryStatusFailed     RetryStatus = "failed"
)

// RetryJob is a persisted redelivery attempt for a failed outbound message.
// A failed job under the retry cap spawns a sibling job with retry_count+1
// and a larger next_retry_at.
type RetryJob struct {
	ID            string      `db:"id" json:"id"`
	CertificateID string      `db:"certificate_id" json:"certificate_id"`
	RetryCount    int         `db:"retry_count" json:"retry_count"`
	NextRetryAt   time.Time   `db:"next_retry_at" json:"next_retry_at"`
	Status        RetryStatus `db:"status" json:"status"`
	ErrorMessage  *string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}
