package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
)

type alertStore interface {
	Create(ctx context.Context, alert *models.DeliveryAlert) (string, error)
	ListActive(ctx context.Context) ([]models.DeliveryAlert, error)
	Resolve(ctx context.Context, id string) error
}

// AlertService exposes the operator alert feed.
type AlertService struct {
	repo   alertStore
	logger *zap.Logger
}

// NewAlertService constructs AlertService.
func NewAlertService(repo alertStore, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{repo: repo, logger: logger}
}

// ListActive returns unresolved alerts, newest first.
func (s *AlertService) ListActive(ctx context.Context) ([]models.DeliveryAlert, error) {
	alerts, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list alerts")
	}
	return alerts, nil
}

// Resolve marks an alert resolved. Resolving twice is a no-op.
func (s *AlertService) Resolve(ctx context.Context, id string) error {
	if err := s.repo.Resolve(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to resolve alert")
	}
	s.logger.Info("alert resolved", zap.String("alert_id", id))
	return nil
}
