package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apexlearn/training-admin-api/internal/models"
)

// DeliveryRepository aggregates outbound email delivery events and persists
// daily delivery reports.
type DeliveryRepository struct {
	db *sqlx.DB
}

// NewDeliveryRepository constructs the repository.
func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// DomainBounceRates returns per-domain aggregates over the trailing window.
// bounce_rate is a percentage rounded to two decimals.
func (r *DeliveryRepository) DomainBounceRates(ctx context.Context, hoursBack int) ([]models.DomainBounceStat, error) {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	const query = `SELECT recipient_domain AS domain,
        COUNT(*) AS total_emails,
        COUNT(*) FILTER (WHERE status = 'bounced') AS bounced_emails,
        ROUND(COUNT(*) FILTER (WHERE status = 'bounced') * 100.0 / COUNT(*), 2) AS bounce_rate
        FROM email_deliveries
        WHERE created_at >= NOW() - ($1 || ' hours')::interval
        GROUP BY recipient_domain
        ORDER BY bounce_rate DESC`
	var stats []models.DomainBounceStat
	if err := r.db.SelectContext(ctx, &stats, query, hoursBack); err != nil {
		return nil, fmt.Errorf("aggregate domain bounce rates: %w", err)
	}
	return stats, nil
}

// DailyStats counts deliveries by status for the given calendar day.
func (r *DeliveryRepository) DailyStats(ctx context.Context, day time.Time) (*models.DeliveryReport, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
        COUNT(*) FILTER (WHERE status = 'bounced') AS bounced,
        COUNT(*) FILTER (WHERE status = 'failed') AS failed,
        COUNT(*) FILTER (WHERE status = 'pending') AS pending
        FROM email_deliveries
        WHERE created_at >= $1 AND created_at < $2`
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var report models.DeliveryReport
	if err := r.db.GetContext(ctx, &report, query, start, end); err != nil {
		return nil, fmt.Errorf("aggregate daily delivery stats: %w", err)
	}
	report.ReportDate = start
	return &report, nil
}

// InsertReport persists a daily delivery report snapshot.
func (r *DeliveryRepository) InsertReport(ctx context.Context, report *models.DeliveryReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO delivery_reports (id, report_date, total, delivered, bounced, failed, pending, delivery_rate, bounce_rate, created_at)
        VALUES (:id, :report_date, :total, :delivered, :bounced, :failed, :pending, :delivery_rate, :bounce_rate, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("insert delivery report: %w", err)
	}
	return nil
}

// ListReports returns the most recent daily reports.
func (r *DeliveryRepository) ListReports(ctx context.Context, limit int) ([]models.DeliveryReport, error) {
	if limit <= 0 {
		limit = 30
	}
	const query = `SELECT id, report_date, total, delivered, bounced, failed, pending, delivery_rate, bounce_rate, created_at
        FROM delivery_reports ORDER BY report_date DESC LIMIT $1`
	var reports []models.DeliveryReport
	if err := r.db.SelectContext(ctx, &reports, query, limit); err != nil {
		return nil, fmt.Errorf("list delivery reports: %w", err)
	}
	return reports, nil
}
