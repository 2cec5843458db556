package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apexlearn/training-admin-api/internal/models"
)

// AlertRepository persists and resolves delivery alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository constructs the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert and returns its generated ID.
func (r *AlertRepository) Create(ctx context.Context, alert *models.DeliveryAlert) (string, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO delivery_alerts (id, alert_type, severity, message, metadata, created_at, resolved_at)
        VALUES (:id, :alert_type, :severity, :message, :metadata, :created_at, :resolved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return "", fmt.Errorf("create delivery alert: %w", err)
	}
	return alert.ID, nil
}

// ListActive returns unresolved alerts, newest first.
func (r *AlertRepository) ListActive(ctx context.Context) ([]models.DeliveryAlert, error) {
	const query = `SELECT id, alert_type, severity, message, metadata, created_at, resolved_at
        FROM delivery_alerts WHERE resolved_at IS NULL ORDER BY created_at DESC`
	var alerts []models.DeliveryAlert
	if err := r.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	return alerts, nil
}

// Resolve marks an alert resolved. Resolving an already-resolved alert is a no-op.
func (r *AlertRepository) Resolve(ctx context.Context, id string) error {
	const query = `UPDATE delivery_alerts SET resolved_at = $2 WHERE id = $1 AND resolved_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	return nil
}
