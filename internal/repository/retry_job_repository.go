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

// RetryJobRepository persists the durable redelivery queue.
type RetryJobRepository struct {
	db *sqlx.DB
}

// NewRetryJobRepository constructs the repository.
func NewRetryJobRepository(db *sqlx.DB) *RetryJobRepository {
	return &RetryJobRepository{db: db}
}

const retryJobColumns = `id, certificate_id, retry_count, next_retry_at, status, error_message, created_at, updated_at`

// Create inserts a new retry job row with generated defaults.
func (r *RetryJobRepository) Create(ctx context.Context, job *models.RetryJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.RetryStatusPending
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = now
	}
	const query = `INSERT INTO retry_jobs (id, certificate_id, retry_count, next_retry_at, status, error_message, created_at, updated_at)
        VALUES (:id, :certificate_id, :retry_count, :next_retry_at, :status, :error_message, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create retry job: %w", err)
	}
	return nil
}

// DueBatch returns up to limit pending jobs whose next_retry_at has elapsed,
// oldest due first. This bounds per-sweep work.
func (r *RetryJobRepository) DueBatch(ctx context.Context, now time.Time, limit int) ([]models.RetryJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM retry_jobs WHERE status = $1 AND next_retry_at <= $2 ORDER BY next_retry_at ASC LIMIT $3`, retryJobColumns)
	var jobs []models.RetryJob
	if err := r.db.SelectContext(ctx, &jobs, query, models.RetryStatusPending, now, limit); err != nil {
		return nil, fmt.Errorf("list due retry jobs: %w", err)
	}
	return jobs, nil
}

// UpdateRetryJobParams defines the mutable fields of a retry job.
type UpdateRetryJobParams struct {
	Status       *models.RetryStatus
	ErrorMessage *string
}

// Update persists the provided changes for a job row.
func (r *RetryJobRepository) Update(ctx context.Context, id string, params UpdateRetryJobParams) error {
	set := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	set = append(set, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	query := fmt.Sprintf("UPDATE retry_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update retry job: %w", err)
	}
	return nil
}
