package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
)

type deliveryStats interface {
	DomainBounceRates(ctx context.Context, hoursBack int) ([]models.DomainBounceStat, error)
	DailyStats(ctx context.Context, day time.Time) (*models.DeliveryReport, error)
	InsertReport(ctx context.Context, report *models.DeliveryReport) error
	ListReports(ctx context.Context, limit int) ([]models.DeliveryReport, error)
}

// DeliveryHealthConfig holds bounce-rate thresholds. Rates are percentages.
type DeliveryHealthConfig struct {
	WindowHours       int
	RateThreshold     float64
	CriticalThreshold float64
	MinVolume         int
}

// DeliveryHealthService monitors per-domain bounce rates and produces daily
// delivery reports, raising alerts when thresholds are crossed.
type DeliveryHealthService struct {
	stats   deliveryStats
	alerts  alertCreator
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DeliveryHealthConfig
}

// NewDeliveryHealthService constructs the service.
func NewDeliveryHealthService(stats deliveryStats, alerts alertCreator, metrics *MetricsService, logger *zap.Logger, cfg DeliveryHealthConfig) *DeliveryHealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 24
	}
	if cfg.RateThreshold <= 0 {
		cfg.RateThreshold = 10
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = 20
	}
	if cfg.MinVolume <= 0 {
		cfg.MinVolume = 10
	}
	return &DeliveryHealthService{stats: stats, alerts: alerts, metrics: metrics, logger: logger, cfg: cfg}
}

// CheckBounceRates inspects per-domain aggregates over the trailing window and
// raises one alert per offending domain. The volume guard suppresses false
// alarms from low-volume domains where a single bounce spikes the ratio.
func (s *DeliveryHealthService) CheckBounceRates(ctx context.Context, windowHours int) ([]models.DeliveryAlert, error) {
	if windowHours <= 0 {
		windowHours = s.cfg.WindowHours
	}
	stats, err := s.stats.DomainBounceRates(ctx, windowHours)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to aggregate bounce rates")
	}

	var raised []models.DeliveryAlert
	for _, stat := range stats {
		if stat.BounceRate <= s.cfg.RateThreshold || stat.TotalEmails <= s.cfg.MinVolume {
			continue
		}
		severity := models.AlertSeverityHigh
		if stat.BounceRate > s.cfg.CriticalThreshold {
			severity = models.AlertSeverityCritical
		}
		alert := models.DeliveryAlert{
			AlertType: models.AlertTypeHighBounceRate,
			Severity:  severity,
			Message:   fmt.Sprintf("high bounce rate for domain %s: %.1f%%", stat.Domain, stat.BounceRate),
			Metadata: models.AlertMetadata{
				"domain":         stat.Domain,
				"total_emails":   stat.TotalEmails,
				"bounced_emails": stat.BouncedEmails,
				"bounce_rate":    stat.BounceRate,
				"window_hours":   windowHours,
			},
		}
		if _, err := s.alerts.Create(ctx, &alert); err != nil {
			s.logger.Warn("failed to raise bounce alert", zap.String("domain", stat.Domain), zap.Error(err))
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordAlert(string(severity))
		}
		s.logger.Warn("bounce rate threshold crossed",
			zap.String("domain", stat.Domain),
			zap.Float64("bounce_rate", stat.BounceRate),
			zap.Int("total_emails", stat.TotalEmails),
			zap.String("severity", string(severity)))
		raised = append(raised, alert)
	}
	return raised, nil
}

// GenerateDailyReport aggregates delivery statistics for the prior calendar
// day, persists the snapshot, and raises a bounce alert when the daily rate
// crosses the threshold.
func (s *DeliveryHealthService) GenerateDailyReport(ctx context.Context) (*models.DeliveryReport, error) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	report, err := s.stats.DailyStats(ctx, yesterday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to aggregate daily delivery stats")
	}

	if report.Total > 0 {
		report.DeliveryRate = roundRate(float64(report.Delivered) * 100 / float64(report.Total))
		report.BounceRate = roundRate(float64(report.Bounced) * 100 / float64(report.Total))
	}

	if err := s.stats.InsertReport(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to persist daily report")
	}

	s.logger.Info("daily delivery report generated",
		zap.Time("report_date", report.ReportDate),
		zap.Int("total", report.Total),
		zap.Float64("delivery_rate", report.DeliveryRate),
		zap.Float64("bounce_rate", report.BounceRate))

	if report.BounceRate > s.cfg.RateThreshold {
		severity := models.AlertSeverityHigh
		if report.BounceRate > s.cfg.CriticalThreshold {
			severity = models.AlertSeverityCritical
		}
		alert := models.DeliveryAlert{
			AlertType: models.AlertTypeHighBounceRate,
			Severity:  severity,
			Message:   fmt.Sprintf("daily bounce rate at %.1f%%", report.BounceRate),
			Metadata: models.AlertMetadata{
				"report_date": report.ReportDate.Format("2006-01-02"),
				"total":       report.Total,
				"bounced":     report.Bounced,
				"bounce_rate": report.BounceRate,
			},
		}
		if _, err := s.alerts.Create(ctx, &alert); err != nil {
			s.logger.Warn("failed to raise daily bounce alert", zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.RecordAlert(string(severity))
		}
	}

	return report, nil
}

// BounceRates exposes the current window aggregates to operators.
func (s *DeliveryHealthService) BounceRates(ctx context.Context) ([]models.DomainBounceStat, error) {
	stats, err := s.stats.DomainBounceRates(ctx, s.cfg.WindowHours)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to aggregate bounce rates")
	}
	return stats, nil
}

// Reports returns the most recent persisted daily reports.
func (s *DeliveryHealthService) Reports(ctx context.Context, limit int) ([]models.DeliveryReport, error) {
	reports, err := s.stats.ListReports(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list delivery reports")
	}
	return reports, nil
}

func roundRate(v float64) float64 {
	return math.Round(v*100) / 100
}
