package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AlertType enumerates supported delivery alert categories.
type AlertType string

const (
	AlertTypeHighBounceRate  AlertType = "high_bounce_rate"
	AlertTypeDeliveryFailure AlertType = "delivery_failure"
	AlertTypeDomainIssue     AlertType = "domain_issue"
)

// AlertSeverity orders alerts for operator triage.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// DeliveryAlert is raised when delivery health thresholds are crossed.
// Unresolved while ResolvedAt is null.
type DeliveryAlert struct {
	ID         string        `db:"id" json:"id"`
	AlertType  AlertType     `db:"alert_type" json:"alert_type"`
	Severity   AlertSeverity `db:"severity" json:"severity"`
	Message    string        `db:"message" json:"message"`
	Metadata   AlertMetadata `db:"metadata" json:"metadata"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
}

// AlertMetadata is a freeform diagnostic payload persisted as JSONB.
type AlertMetadata map[string]interface{}

// Value marshals metadata to JSON for persistence.
func (m AlertMetadata) Value() (driver.Value, error) {
	if m == nil {
		m = AlertMetadata{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal alert metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata map.
func (m *AlertMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = AlertMetadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for AlertMetadata", value)
	}
	if len(data) == 0 {
		*m = AlertMetadata{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal alert metadata: %w", err)
	}
	return nil
}
