package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
)

type enrollmentStore interface {
	CountEnrolled(ctx context.Context, offeringID string) (int, error)
	CountWaitlisted(ctx context.Context, offeringID string) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FirstWaitlisted(ctx context.Context, offeringID string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, waitlistPosition *int) error
	UpdateAttendance(ctx context.Context, id string, attendance *bool, notes *string) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
}

type offeringReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
}

type notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// EnrollRequest describes an admission request.
type EnrollRequest struct {
	UserID           string `json:"user_id" validate:"required"`
	CourseOfferingID string `json:"course_offering_id" validate:"required"`
}

// AttendanceRequest mutates attendance fields independently of admission state.
type AttendanceRequest struct {
	Attendance *bool   `json:"attendance"`
	Notes      *string `json:"notes"`
}

// AdmissionService decides ENROLLED vs WAITLISTED for new enrollments and
// promotes the waitlist head when an enrolled seat is cancelled.
type AdmissionService struct {
	repo      enrollmentStore
	offerings offeringReader
	notifier  notifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	// Serializes the capacity check and insert per offering. Single-instance
	// mitigation only; cross-replica admission still races on the store.
	locks sync.Map
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(repo enrollmentStore, offerings offeringReader, notifier notifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{repo: repo, offerings: offerings, notifier: notifier, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Enroll admits a user into a course offering, waitlisting when the offering
// is at capacity. The waitlist position is the current waitlist size plus one.
func (s *AdmissionService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	offering, err := s.offering(ctx, req.CourseOfferingID)
	if err != nil {
		return nil, err
	}

	mu := s.offeringLock(offering.ID)
	mu.Lock()
	defer mu.Unlock()

	enrolled, err := s.repo.CountEnrolled(ctx, offering.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to count enrolled seats")
	}

	enrollment := &models.Enrollment{
		UserID:           req.UserID,
		CourseOfferingID: offering.ID,
		Status:           models.EnrollmentStatusEnrolled,
		EnrollmentDate:   time.Now().UTC(),
	}

	if enrolled >= offering.MaxParticipants {
		waitlisted, err := s.repo.CountWaitlisted(ctx, offering.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to count waitlist")
		}
		position := waitlisted + 1
		enrollment.Status = models.EnrollmentStatusWaitlisted
		enrollment.WaitlistPosition = &position
	}

	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create enrollment")
	}

	if s.metrics != nil {
		s.metrics.RecordEnrollment(string(enrollment.Status))
	}
	s.logger.Info("enrollment admitted",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("offering_id", offering.ID),
		zap.String("status", string(enrollment.Status)))
	return enrollment, nil
}

// Cancel marks an enrollment CANCELLED. When the cancelled record held an
// enrolled seat, the head of the offering's waitlist is promoted and notified.
// At most one promotion occurs per call.
func (s *AdmissionService) Cancel(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load enrollment")
	}

	mu := s.offeringLock(enrollment.CourseOfferingID)
	mu.Lock()
	defer mu.Unlock()

	priorStatus := enrollment.Status
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusCancelled, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to cancel enrollment")
	}
	enrollment.Status = models.EnrollmentStatusCancelled
	enrollment.WaitlistPosition = nil

	if priorStatus == models.EnrollmentStatusEnrolled {
		if err := s.promoteHead(ctx, enrollment.CourseOfferingID); err != nil {
			return nil, err
		}
	}

	return enrollment, nil
}

// promoteHead moves the lowest-positioned waitlisted enrollment into the freed
// seat. Remaining waitlist positions are left untouched, so positions go
// sparse after repeated promotions.
func (s *AdmissionService) promoteHead(ctx context.Context, offeringID string) error {
	head, err := s.repo.FirstWaitlisted(ctx, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to read waitlist")
	}

	if err := s.repo.UpdateStatus(ctx, head.ID, models.EnrollmentStatusEnrolled, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to promote waitlisted enrollment")
	}

	if s.metrics != nil {
		s.metrics.RecordPromotion()
	}
	s.logger.Info("waitlist promotion",
		zap.String("enrollment_id", head.ID),
		zap.String("offering_id", offeringID),
		zap.String("user_id", head.UserID))

	if s.notifier != nil {
		notification := models.Notification{
			UserID:   head.UserID,
			Title:    "Enrollment Status Updated",
			Message:  "A seat opened up and you have been enrolled from the waitlist.",
			Category: models.NotificationCategoryCourse,
			Priority: models.NotificationPriorityHigh,
		}
		if err := s.notifier.Send(ctx, notification); err != nil {
			// Promotion stands regardless of notification delivery.
			s.logger.Warn("promotion notification failed",
				zap.String("enrollment_id", head.ID),
				zap.String("user_id", head.UserID),
				zap.Error(err))
		}
	}
	return nil
}

// Get returns a single enrollment.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// List returns enrollments with pagination metadata.
func (s *AdmissionService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// UpdateAttendance mutates attendance fields without touching admission state.
func (s *AdmissionService) UpdateAttendance(ctx context.Context, id string, req AttendanceRequest) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load enrollment")
	}
	if err := s.repo.UpdateAttendance(ctx, id, req.Attendance, req.Notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update attendance")
	}
	enrollment.Attendance = req.Attendance
	enrollment.AttendanceNotes = req.Notes
	return enrollment, nil
}

func (s *AdmissionService) offering(ctx context.Context, id string) (*models.CourseOffering, error) {
	cacheKey := offeringCacheKey(id)
	if s.cache != nil {
		var cached models.CourseOffering
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	offering, err := s.offerings.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCapacityLookup.Code, appErrors.ErrCapacityLookup.Status, "failed to resolve offering capacity")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, offering, 0); err != nil {
			s.logger.Warn("cache offering", zap.Error(err))
		}
	}
	return offering, nil
}

// InvalidateOffering drops the cached capacity record for an offering.
func (s *AdmissionService) InvalidateOffering(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, offeringCacheKey(id))
}

func (s *AdmissionService) offeringLock(offeringID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(offeringID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func offeringCacheKey(id string) string {
	return fmt.Sprintf("offering:%s", id)
}
