package models

import "time"

// DomainBounceStat is a per-domain aggregate over a trailing window.
// BounceRate is a percentage (0-100).
type DomainBounceStat struct {
	Domain        string  `db:"domain" json:"domain"`
	TotalEmails   int     `db:"total_emails" json:"total_emails"`
	BouncedEmails int     `db:"bounced_emails" json:"bounced_emails"`
	BounceRate    float64 `db:"bounce_rate" json:"bounce_rate"`
}

// DeliveryReport is a persisted daily delivery statistics snapshot.
type DeliveryReport struct {
	ID           string    `db:"id" json:"id"`
	ReportDate   time.Time `db:"report_date" json:"report_date"`
	Total        int       `db:"total" json:"total"`
	Delivered    int       `db:"delivered" json:"delivered"`
	Bounced      int       `db:"bounced" json:"bounced"`
	Failed       int       `db:"failed" json:"failed"`
	Pending      int       `db:"pending" json:"pending"`
	DeliveryRate float64   `db:"delivery_rate" json:"delivery_rate"`
	BounceRate   float64   `db:"bounce_rate" json:"bounce_rate"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
