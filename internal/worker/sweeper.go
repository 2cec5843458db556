package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
)

type retrySweeper interface {
	ProcessQueue(ctx context.Context) error
}

type deliveryMonitor interface {
	CheckBounceRates(ctx context.Context, windowHours int) ([]models.DeliveryAlert, error)
	GenerateDailyReport(ctx context.Context) (*models.DeliveryReport, error)
}

type exportJanitor interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// SweeperConfig sets the cadence of the background passes.
type SweeperConfig struct {
	RetryInterval   time.Duration
	BounceInterval  time.Duration
	ReportInterval  time.Duration
	ExportRetention time.Duration
}

// Sweeper runs the periodic background passes: the retry queue sweep, the
// bounce-rate check, and the daily delivery report. Passes run independently
// of request handling and stop when the context is cancelled.
type Sweeper struct {
	retries retrySweeper
	health  deliveryMonitor
	exports exportJanitor
	logger  *zap.Logger
	cfg     SweeperConfig
}

// NewSweeper constructs the sweeper. A nil exports janitor disables the
// export cleanup pass.
func NewSweeper(retries retrySweeper, health deliveryMonitor, exports exportJanitor, logger *zap.Logger, cfg SweeperConfig) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Minute
	}
	if cfg.BounceInterval <= 0 {
		cfg.BounceInterval = time.Hour
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 24 * time.Hour
	}
	if cfg.ExportRetention <= 0 {
		cfg.ExportRetention = 7 * 24 * time.Hour
	}
	return &Sweeper{retries: retries, health: health, exports: exports, logger: logger, cfg: cfg}
}

// Start boots one goroutine per pass.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx, s.cfg.RetryInterval, "retry_sweep", func(ctx context.Context) error {
		return s.retries.ProcessQueue(ctx)
	})
	go s.loop(ctx, s.cfg.BounceInterval, "bounce_check", func(ctx context.Context) error {
		_, err := s.health.CheckBounceRates(ctx, 0)
		return err
	})
	go s.loop(ctx, s.cfg.ReportInterval, "daily_report", func(ctx context.Context) error {
		_, err := s.health.GenerateDailyReport(ctx)
		return err
	})
	if s.exports != nil {
		go s.loop(ctx, s.cfg.ReportInterval, "export_cleanup", func(ctx context.Context) error {
			deleted, err := s.exports.CleanupOlderThan(s.cfg.ExportRetention)
			if len(deleted) > 0 {
				s.logger.Sugar().Infow("stale exports removed", "count", len(deleted))
			}
			return err
		})
	}
	s.logger.Sugar().Infow("sweeper started",
		"retry_interval", s.cfg.RetryInterval,
		"bounce_interval", s.cfg.BounceInterval,
		"report_interval", s.cfg.ReportInterval)
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, name string, pass func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pass(ctx); err != nil {
				s.logger.Sugar().Warnw("background pass failed", "pass", name, "error", err)
			}
		}
	}
}
