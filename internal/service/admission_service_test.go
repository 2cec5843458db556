package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apexlearn/training-admin-api/internal/models"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
)

type mockAdmissionRepo struct {
	enrollments map[string]models.Enrollment
	created     []*models.Enrollment
	promotions  []string
	countErr    error
}

func (m *mockAdmissionRepo) CountEnrolled(ctx context.Context, offeringID string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	count := 0
	for _, e := range m.enrollments {
		if e.CourseOfferingID == offeringID && e.Status == models.EnrollmentStatusEnrolled {
			count++
		}
	}
	return count, nil
}

func (m *mockAdmissionRepo) CountWaitlisted(ctx context.Context, offeringID string) (int, error) {
	count := 0
	for _, e := range m.enrollments {
		if e.CourseOfferingID == offeringID && e.Status == models.EnrollmentStatusWaitlisted {
			count++
		}
	}
	return count, nil
}

func (m *mockAdmissionRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("new-enroll-%d", len(m.created)+1)
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = append(m.created, enrollment)
	return nil
}

func (m *mockAdmissionRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdmissionRepo) FirstWaitlisted(ctx context.Context, offeringID string) (*models.Enrollment, error) {
	var waitlisted []models.Enrollment
	for _, e := range m.enrollments {
		if e.CourseOfferingID == offeringID && e.Status == models.EnrollmentStatusWaitlisted {
			waitlisted = append(waitlisted, e)
		}
	}
	if len(waitlisted) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Slice(waitlisted, func(i, j int) bool {
		return *waitlisted[i].WaitlistPosition < *waitlisted[j].WaitlistPosition
	})
	head := waitlisted[0]
	return &head, nil
}

func (m *mockAdmissionRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, waitlistPosition *int) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	prior := e.Status
	e.Status = status
	e.WaitlistPosition = waitlistPosition
	m.enrollments[id] = e
	if prior == models.EnrollmentStatusWaitlisted && status == models.EnrollmentStatusEnrolled {
		m.promotions = append(m.promotions, id)
	}
	return nil
}

func (m *mockAdmissionRepo) UpdateAttendance(ctx context.Context, id string, attendance *bool, notes *string) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Attendance = attendance
	e.AttendanceNotes = notes
	m.enrollments[id] = e
	return nil
}

func (m *mockAdmissionRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var list []models.Enrollment
	for _, e := range m.enrollments {
		list = append(list, e)
	}
	return list, len(list), nil
}

type mockOfferingReader struct {
	offerings map[string]*models.CourseOffering
	err       error
}

func (m *mockOfferingReader) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	if m.err != nil {
		return nil, m.err
	}
	if o, ok := m.offerings[id]; ok {
		return o, nil
	}
	return nil, sql.ErrNoRows
}

type mockNotifier struct {
	sent []models.Notification
	err  error
}

func (m *mockNotifier) Send(ctx context.Context, n models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func newAdmissionFixture(capacity int) (*AdmissionService, *mockAdmissionRepo, *mockNotifier) {
	repo := &mockAdmissionRepo{enrollments: make(map[string]models.Enrollment)}
	offerings := &mockOfferingReader{offerings: map[string]*models.CourseOffering{
		"off-1": {ID: "off-1", Title: "Incident Response", MaxParticipants: capacity},
	}}
	notifier := &mockNotifier{}
	svc := NewAdmissionService(repo, offerings, notifier, nil, nil, validator.New(), zap.NewNop())
	return svc, repo, notifier
}

func seedEnrollment(repo *mockAdmissionRepo, id, userID string, status models.EnrollmentStatus, position *int) {
	repo.enrollments[id] = models.Enrollment{
		ID:               id,
		UserID:           userID,
		CourseOfferingID: "off-1",
		Status:           status,
		WaitlistPosition: position,
		EnrollmentDate:   time.Now().UTC(),
	}
}

func TestAdmissionServiceEnrollUnderCapacity(t *testing.T) {
	svc, repo, _ := newAdmissionFixture(2)
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u2", CourseOfferingID: "off-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.Nil(t, enrollment.WaitlistPosition)
}

func TestAdmissionServiceEnrollAtCapacityWaitlists(t *testing.T) {
	svc, repo, _ := newAdmissionFixture(2)
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)
	seedEnrollment(repo, "e2", "u2", models.EnrollmentStatusEnrolled, nil)

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u3", CourseOfferingID: "off-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, enrollment.Status)
	require.NotNil(t, enrollment.WaitlistPosition)
	assert.Equal(t, 1, *enrollment.WaitlistPosition)
}

func TestAdmissionServiceWaitlistPositionsIncrease(t *testing.T) {
	svc, repo, _ := newAdmissionFixture(1)
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)

	first, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u2", CourseOfferingID: "off-1"})
	require.NoError(t, err)
	second, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u3", CourseOfferingID: "off-1"})
	require.NoError(t, err)

	require.NotNil(t, first.WaitlistPosition)
	require.NotNil(t, second.WaitlistPosition)
	assert.Equal(t, 1, *first.WaitlistPosition)
	assert.Equal(t, 2, *second.WaitlistPosition)
}

// A cancelled record frees no seat, so admission below the live-enrolled count
// stays open even when total rows exceed capacity.
func TestAdmissionServiceCancelledRowsDoNotConsumeSeats(t *testing.T) {
	svc, repo, _ := newAdmissionFixture(2)
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)
	seedEnrollment(repo, "e2", "u2", models.EnrollmentStatusCancelled, nil)
	seedEnrollment(repo, "e3", "u3", models.EnrollmentStatusCancelled, nil)

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u4", CourseOfferingID: "off-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
}

func TestAdmissionServiceEnrollValidation(t *testing.T) {
	svc, _, _ := newAdmissionFixture(2)

	_, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "", CourseOfferingID: "off-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceEnrollUnknownOffering(t *testing.T) {
	svc, _, _ := newAdmissionFixture(2)

	_, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u1", CourseOfferingID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceEnrollCapacityLookupFailure(t *testing.T) {
	repo := &mockAdmissionRepo{enrollments: make(map[string]models.Enrollment)}
	offerings := &mockOfferingReader{err: errors.New("connection refused")}
	svc := NewAdmissionService(repo, offerings, nil, nil, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u1", CourseOfferingID: "off-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityLookup.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceCancelPromotesWaitlistHead(t *testing.T) {
	svc, repo, notifier := newAdmissionFixture(1)
	pos1, pos2 := 1, 2
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)
	seedEnrollment(repo, "w1", "u2", models.EnrollmentStatusWaitlisted, &pos1)
	seedEnrollment(repo, "w2", "u3", models.EnrollmentStatusWaitlisted, &pos2)

	cancelled, err := svc.Cancel(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, cancelled.Status)

	// Exactly the head moves up; the second waitlisted record keeps its slot.
	assert.Equal(t, []string{"w1"}, repo.promotions)
	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.enrollments["w1"].Status)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, repo.enrollments["w2"].Status)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "u2", notifier.sent[0].UserID)
	assert.Equal(t, "Enrollment Status Updated", notifier.sent[0].Title)
	assert.Equal(t, models.NotificationCategoryCourse, notifier.sent[0].Category)
	assert.Equal(t, models.NotificationPriorityHigh, notifier.sent[0].Priority)
}

func TestAdmissionServiceCancelWaitlistedDoesNotPromote(t *testing.T) {
	svc, repo, notifier := newAdmissionFixture(1)
	pos1, pos2 := 1, 2
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)
	seedEnrollment(repo, "w1", "u2", models.EnrollmentStatusWaitlisted, &pos1)
	seedEnrollment(repo, "w2", "u3", models.EnrollmentStatusWaitlisted, &pos2)

	cancelled, err := svc.Cancel(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, cancelled.Status)
	assert.Empty(t, repo.promotions)
	assert.Empty(t, notifier.sent)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, repo.enrollments["w2"].Status)
}

func TestAdmissionServiceCancelWithEmptyWaitlist(t *testing.T) {
	svc, repo, notifier := newAdmissionFixture(1)
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)

	cancelled, err := svc.Cancel(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, cancelled.Status)
	assert.Empty(t, repo.promotions)
	assert.Empty(t, notifier.sent)
}

func TestAdmissionServiceCancelUnknownEnrollment(t *testing.T) {
	svc, _, _ := newAdmissionFixture(1)

	_, err := svc.Cancel(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceCancelSurvivesNotificationFailure(t *testing.T) {
	repo := &mockAdmissionRepo{enrollments: make(map[string]models.Enrollment)}
	offerings := &mockOfferingReader{offerings: map[string]*models.CourseOffering{
		"off-1": {ID: "off-1", MaxParticipants: 1},
	}}
	notifier := &mockNotifier{err: errors.New("webhook down")}
	svc := NewAdmissionService(repo, offerings, notifier, nil, nil, validator.New(), zap.NewNop())

	pos := 1
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)
	seedEnrollment(repo, "w1", "u2", models.EnrollmentStatusWaitlisted, &pos)

	_, err := svc.Cancel(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.enrollments["w1"].Status)
}

type mapCacheRepo struct {
	entries map[string][]byte
	gets    int
	hits    int
}

func (m *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	data, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(data, dest)
}

func (m *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = data
	return nil
}

func (m *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.entries {
		delete(m.entries, key)
	}
	return nil
}

func TestAdmissionServiceOfferingCache(t *testing.T) {
	repo := &mockAdmissionRepo{enrollments: make(map[string]models.Enrollment)}
	offerings := &mockOfferingReader{offerings: map[string]*models.CourseOffering{
		"off-1": {ID: "off-1", MaxParticipants: 10},
	}}
	cacheRepo := &mapCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop())
	svc := NewAdmissionService(repo, offerings, nil, cache, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{UserID: "u1", CourseOfferingID: "off-1"})
	require.NoError(t, err)
	_, err = svc.Enroll(context.Background(), EnrollRequest{UserID: "u2", CourseOfferingID: "off-1"})
	require.NoError(t, err)

	// First enroll misses and fills the cache; the second is served from it.
	assert.Equal(t, 2, cacheRepo.gets)
	assert.Equal(t, 1, cacheRepo.hits)

	require.NoError(t, svc.InvalidateOffering(context.Background(), "off-1"))
	assert.Empty(t, cacheRepo.entries)
}

func TestAdmissionServiceUpdateAttendance(t *testing.T) {
	svc, repo, _ := newAdmissionFixture(2)
	seedEnrollment(repo, "e1", "u1", models.EnrollmentStatusEnrolled, nil)

	present := true
	notes := "arrived late"
	enrollment, err := svc.UpdateAttendance(context.Background(), "e1", AttendanceRequest{Attendance: &present, Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, enrollment.Attendance)
	assert.True(t, *enrollment.Attendance)
	assert.Equal(t, "arrived late", *repo.enrollments["e1"].AttendanceNotes)
}
