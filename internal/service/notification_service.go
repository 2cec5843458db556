package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	"github.com/apexlearn/training-admin-api/pkg/jobs"
)

// Sender pushes a notification to the outbound transport.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

// NotificationServiceConfig sizes the in-process dispatch queue.
type NotificationServiceConfig struct {
	Workers    int
	BufferSize int
}

// NotificationService dispatches outbound notifications through an in-process
// worker queue. Delivery is at-most-once from this service's perspective:
// enqueue and transport failures are logged and counted, never propagated to
// the workflow that emitted the event.
type NotificationService struct {
	sender  Sender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(sender Sender, metrics *MetricsService, logger *zap.Logger, cfg NotificationServiceConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start boots the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Send enqueues a notification for asynchronous dispatch.
func (s *NotificationService) Send(ctx context.Context, n models.Notification) error {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(n.Category),
		Payload: n,
	}
	if err := s.queue.Enqueue(job); err != nil {
		if s.metrics != nil {
			s.metrics.RecordNotification("failed")
		}
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.sender.Send(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.RecordNotification("failed")
		}
		return fmt.Errorf("send notification to %s: %w", n.UserID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordNotification("sent")
	}
	return nil
}
