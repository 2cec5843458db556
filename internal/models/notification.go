package models

// NotificationCategory groups outbound notifications by feature area.
type NotificationCategory string

const (
	NotificationCategoryCourse      NotificationCategory = "COURSE"
	NotificationCategoryCertificate NotificationCategory = "CERTIFICATE"
	NotificationCategorySystem      NotificationCategory = "SYSTEM"
)

// NotificationPriority defines delivery ordering hints.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityNormal NotificationPriority = "NORMAL"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// Notification is an outbound event addressed to a single user. Delivery is
// at-most-once from this service's perspective.
type Notification struct {
	UserID   string               `json:"user_id"`
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Category NotificationCategory `json:"category"`
	Priority NotificationPriority `json:"priority"`
}
