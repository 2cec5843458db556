package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
	"github.com/apexlearn/training-admin-api/pkg/export"
	"github.com/apexlearn/training-admin-api/pkg/storage"
)

type reportLister interface {
	ListReports(ctx context.Context, limit int) ([]models.DeliveryReport, error)
}

// ReportExport describes a rendered CSV export and its download token.
type ReportExport struct {
	Filename  string    `json:"filename"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Rows      int       `json:"rows"`
}

// ReportExportService renders delivery reports to CSV, archives the file and
// hands out signed download tokens.
type ReportExportService struct {
	reports  reportLister
	exporter *export.CSVExporter
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
}

// NewReportExportService constructs the service.
func NewReportExportService(reports reportLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExportService{
		reports:  reports,
		exporter: export.NewCSVExporter(),
		store:    store,
		signer:   signer,
		logger:   logger,
	}
}

// Export renders the most recent daily reports to CSV, archives the file and
// returns a signed token for later download.
func (s *ReportExportService) Export(ctx context.Context, limit int) (*ReportExport, error) {
	reports, err := s.reports.ListReports(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list delivery reports")
	}

	dataset := export.Dataset{
		Headers: []string{"report_date", "total", "delivered", "bounced", "failed", "pending", "delivery_rate", "bounce_rate"},
	}
	for _, r := range reports {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"report_date":   r.ReportDate.Format("2006-01-02"),
			"total":         strconv.Itoa(r.Total),
			"delivered":     strconv.Itoa(r.Delivered),
			"bounced":       strconv.Itoa(r.Bounced),
			"failed":        strconv.Itoa(r.Failed),
			"pending":       strconv.Itoa(r.Pending),
			"delivery_rate": strconv.FormatFloat(r.DeliveryRate, 'f', 2, 64),
			"bounce_rate":   strconv.FormatFloat(r.BounceRate, 'f', 2, 64),
		})
	}

	data, err := s.exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report export")
	}

	filename := fmt.Sprintf("reports/delivery-%s.csv", time.Now().UTC().Format("20060102-150405"))
	if _, err := s.store.Save(filename, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive report export")
	}

	exportID := time.Now().UTC().Format("20060102150405")
	token, expiresAt, err := s.signer.Generate(exportID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export token")
	}

	s.logger.Info("delivery report export archived",
		zap.String("filename", filename),
		zap.Int("rows", len(dataset.Rows)))

	return &ReportExport{
		Filename:  filename,
		Token:     token,
		ExpiresAt: expiresAt,
		Rows:      len(dataset.Rows),
	}, nil
}

// Open validates a download token and returns the archived file.
func (s *ReportExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return file, nil
}
