package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	"github.com/apexlearn/training-admin-api/internal/repository"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
)

type retryQueue interface {
	Create(ctx context.Context, job *models.RetryJob) error
	DueBatch(ctx context.Context, now time.Time, limit int) ([]models.RetryJob, error)
	Update(ctx context.Context, id string, params repository.UpdateRetryJobParams) error
}

type certificateDeliverer interface {
	Deliver(ctx context.Context, certificateID string) error
}

type alertCreator interface {
	Create(ctx context.Context, alert *models.DeliveryAlert) (string, error)
}

// RetryServiceConfig governs backoff and sweep sizing.
type RetryServiceConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
	BatchSize   int
}

// RetryService maintains the durable redelivery queue for failed certificate
// deliveries: exponential backoff on scheduling, bounded batches on dispatch.
type RetryService struct {
	queue     retryQueue
	deliverer certificateDeliverer
	alerts    alertCreator
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       RetryServiceConfig
}

// NewRetryService constructs the retry service.
func NewRetryService(queue retryQueue, deliverer certificateDeliverer, alerts alertCreator, metrics *MetricsService, logger *zap.Logger, cfg RetryServiceConfig) *RetryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 30 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &RetryService{queue: queue, deliverer: deliverer, alerts: alerts, metrics: metrics, logger: logger, cfg: cfg}
}

// ScheduleRetry inserts a pending job for the payload with an exponentially
// growing delay (base*2^attempts). Once currentAttempts reaches the cap, no
// job is created and nil is returned; the failure is terminal for the caller.
func (s *RetryService) ScheduleRetry(ctx context.Context, certificateID string, currentAttempts int) (*models.RetryJob, error) {
	if currentAttempts >= s.cfg.MaxRetries {
		s.logger.Info("max retries reached, not scheduling",
			zap.String("certificate_id", certificateID),
			zap.Int("attempts", currentAttempts))
		return nil, nil
	}

	backoff := s.cfg.BaseBackoff << currentAttempts
	job := &models.RetryJob{
		CertificateID: certificateID,
		RetryCount:    currentAttempts + 1,
		NextRetryAt:   time.Now().UTC().Add(backoff),
		Status:        models.RetryStatusPending,
	}
	if err := s.queue.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to schedule retry")
	}

	s.logger.Info("retry scheduled",
		zap.String("certificate_id", certificateID),
		zap.Int("retry_count", job.RetryCount),
		zap.Duration("backoff", backoff))
	return job, nil
}

// PendingRetries returns the bounded batch of jobs due for dispatch,
// oldest due first.
func (s *RetryService) PendingRetries(ctx context.Context) ([]models.RetryJob, error) {
	jobs, err := s.queue.DueBatch(ctx, time.Now().UTC(), s.cfg.BatchSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load due retries")
	}
	return jobs, nil
}

// ProcessQueue runs one sweep over the due batch. Each job is claimed by
// moving it to processing before redelivery is attempted; a failure under the
// retry cap spawns a sibling pending job with the escalated attempt count,
// while a failure at the cap is terminal. One job's failure never aborts
// the sweep.
func (s *RetryService) ProcessQueue(ctx context.Context) error {
	jobs, err := s.PendingRetries(ctx)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		s.processJob(ctx, job)
	}

	if len(jobs) > 0 {
		s.logger.Info("retry sweep finished", zap.Int("jobs", len(jobs)))
	}
	return nil
}

func (s *RetryService) processJob(ctx context.Context, job models.RetryJob) {
	processing := models.RetryStatusProcessing
	if err := s.queue.Update(ctx, job.ID, repository.UpdateRetryJobParams{Status: &processing}); err != nil {
		s.logger.Warn("failed to claim retry job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	deliveryErr := s.deliverer.Deliver(ctx, job.CertificateID)
	if deliveryErr == nil {
		completed := models.RetryStatusCompleted
		if err := s.queue.Update(ctx, job.ID, repository.UpdateRetryJobParams{Status: &completed}); err != nil {
			s.logger.Warn("failed to complete retry job", zap.String("job_id", job.ID), zap.Error(err))
			return
		}
		if s.metrics != nil {
			s.metrics.RecordRetryOutcome("completed")
		}
		s.logger.Info("redelivery succeeded",
			zap.String("job_id", job.ID),
			zap.String("certificate_id", job.CertificateID))
		return
	}

	failed := models.RetryStatusFailed
	if job.RetryCount < s.cfg.MaxRetries {
		if _, err := s.ScheduleRetry(ctx, job.CertificateID, job.RetryCount); err != nil {
			s.logger.Error("failed to reschedule retry", zap.String("job_id", job.ID), zap.Error(err))
		}
		if err := s.queue.Update(ctx, job.ID, repository.UpdateRetryJobParams{Status: &failed}); err != nil {
			s.logger.Warn("failed to mark retry job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordRetryOutcome("rescheduled")
		}
		s.logger.Warn("redelivery failed, rescheduled",
			zap.String("job_id", job.ID),
			zap.String("certificate_id", job.CertificateID),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(deliveryErr))
		return
	}

	message := appErrors.Wrap(deliveryErr, appErrors.ErrDelivery.Code, appErrors.ErrDelivery.Status, "redelivery failed after max retries").Error()
	if err := s.queue.Update(ctx, job.ID, repository.UpdateRetryJobParams{Status: &failed, ErrorMessage: &message}); err != nil {
		s.logger.Warn("failed to mark retry job terminally failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordRetryOutcome("failed")
	}
	s.logger.Error("redelivery terminally failed",
		zap.String("job_id", job.ID),
		zap.String("certificate_id", job.CertificateID),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(deliveryErr))

	if s.alerts != nil {
		alert := &models.DeliveryAlert{
			AlertType: models.AlertTypeDeliveryFailure,
			Severity:  models.AlertSeverityHigh,
			Message:   "certificate delivery exhausted all retries",
			Metadata: models.AlertMetadata{
				"certificate_id": job.CertificateID,
				"retry_count":    job.RetryCount,
				"error":          deliveryErr.Error(),
			},
		}
		if _, err := s.alerts.Create(ctx, alert); err != nil {
			s.logger.Warn("failed to raise delivery alert", zap.String("job_id", job.ID), zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.RecordAlert(string(alert.Severity))
		}
	}
}
