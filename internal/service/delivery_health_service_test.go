package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
)

type mockDeliveryStats struct {
	bounceStats []models.DomainBounceStat
	bounceErr   error
	daily       *models.DeliveryReport
	inserted    []*models.DeliveryReport
	reports     []models.DeliveryReport
}

func (m *mockDeliveryStats) DomainBounceRates(ctx context.Context, hoursBack int) ([]models.DomainBounceStat, error) {
	if m.bounceErr != nil {
		return nil, m.bounceErr
	}
	return m.bounceStats, nil
}

func (m *mockDeliveryStats) DailyStats(ctx context.Context, day time.Time) (*models.DeliveryReport, error) {
	if m.daily == nil {
		return nil, errors.New("no stats")
	}
	report := *m.daily
	report.ReportDate = day
	return &report, nil
}

func (m *mockDeliveryStats) InsertReport(ctx context.Context, report *models.DeliveryReport) error {
	m.inserted = append(m.inserted, report)
	return nil
}

func (m *mockDeliveryStats) ListReports(ctx context.Context, limit int) ([]models.DeliveryReport, error) {
	if len(m.reports) > limit {
		return m.reports[:limit], nil
	}
	return m.reports, nil
}

func newHealthFixture(stats *mockDeliveryStats) (*DeliveryHealthService, *mockAlertCreator) {
	alerts := &mockAlertCreator{}
	svc := NewDeliveryHealthService(stats, alerts, nil, zap.NewNop(), DeliveryHealthConfig{
		WindowHours:       24,
		RateThreshold:     10,
		CriticalThreshold: 20,
		MinVolume:         10,
	})
	return svc, alerts
}

func TestDeliveryHealthCheckBounceRatesThresholds(t *testing.T) {
	stats := &mockDeliveryStats{bounceStats: []models.DomainBounceStat{
		{Domain: "ok.example.com", TotalEmails: 200, BouncedEmails: 4, BounceRate: 2},
		{Domain: "warm.example.com", TotalEmails: 100, BouncedEmails: 15, BounceRate: 15},
		{Domain: "burning.example.com", TotalEmails: 50, BouncedEmails: 25, BounceRate: 50},
	}}
	svc, alerts := newHealthFixture(stats)

	raised, err := svc.CheckBounceRates(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, raised, 2)
	require.Len(t, alerts.alerts, 2)

	assert.Equal(t, models.AlertTypeHighBounceRate, raised[0].AlertType)
	assert.Equal(t, models.AlertSeverityHigh, raised[0].Severity)
	assert.Equal(t, "warm.example.com", raised[0].Metadata["domain"])

	assert.Equal(t, models.AlertSeverityCritical, raised[1].Severity)
	assert.Equal(t, "burning.example.com", raised[1].Metadata["domain"])
}

// Thresholds are strict: a domain sitting exactly on the rate or volume
// boundary raises nothing.
func TestDeliveryHealthCheckBounceRatesBoundaries(t *testing.T) {
	stats := &mockDeliveryStats{bounceStats: []models.DomainBounceStat{
		{Domain: "edge-rate.example.com", TotalEmails: 100, BouncedEmails: 10, BounceRate: 10},
		{Domain: "edge-volume.example.com", TotalEmails: 10, BouncedEmails: 9, BounceRate: 90},
		{Domain: "edge-critical.example.com", TotalEmails: 100, BouncedEmails: 20, BounceRate: 20},
	}}
	svc, alerts := newHealthFixture(stats)

	raised, err := svc.CheckBounceRates(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, raised, 1)
	require.Len(t, alerts.alerts, 1)

	// 20% is above the alert threshold but not past the critical one.
	assert.Equal(t, "edge-critical.example.com", raised[0].Metadata["domain"])
	assert.Equal(t, models.AlertSeverityHigh, raised[0].Severity)
}

func TestDeliveryHealthCheckBounceRatesAggregationFailure(t *testing.T) {
	stats := &mockDeliveryStats{bounceErr: errors.New("relation does not exist")}
	svc, _ := newHealthFixture(stats)

	_, err := svc.CheckBounceRates(context.Background(), 24)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAggregation.Code, appErrors.FromError(err).Code)
}

func TestDeliveryHealthGenerateDailyReport(t *testing.T) {
	stats := &mockDeliveryStats{daily: &models.DeliveryReport{
		Total:     200,
		Delivered: 180,
		Bounced:   12,
		Failed:    5,
		Pending:   3,
	}}
	svc, alerts := newHealthFixture(stats)

	report, err := svc.GenerateDailyReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 90.0, report.DeliveryRate)
	assert.Equal(t, 6.0, report.BounceRate)
	require.Len(t, stats.inserted, 1)
	assert.Empty(t, alerts.alerts)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	assert.Equal(t, yesterday.Format("2006-01-02"), report.ReportDate.Format("2006-01-02"))
}

func TestDeliveryHealthGenerateDailyReportRaisesAlert(t *testing.T) {
	stats := &mockDeliveryStats{daily: &models.DeliveryReport{
		Total:     100,
		Delivered: 70,
		Bounced:   25,
		Failed:    5,
	}}
	svc, alerts := newHealthFixture(stats)

	report, err := svc.GenerateDailyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25.0, report.BounceRate)

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, models.AlertTypeHighBounceRate, alerts.alerts[0].AlertType)
	assert.Equal(t, models.AlertSeverityCritical, alerts.alerts[0].Severity)
}

func TestDeliveryHealthGenerateDailyReportEmptyDay(t *testing.T) {
	stats := &mockDeliveryStats{daily: &models.DeliveryReport{}}
	svc, alerts := newHealthFixture(stats)

	report, err := svc.GenerateDailyReport(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.DeliveryRate)
	assert.Zero(t, report.BounceRate)
	require.Len(t, stats.inserted, 1)
	assert.Empty(t, alerts.alerts)
}
