package models

import "time"

// Reason explains why a subscriber was alerted.
type Reason string

const (
	ReasonProximity Reason = "proximity"
	ReasonMagnitude Reason = "magnitude"
)

// NotificationRecord is a ledger entry, unique per (EventID, Token). Append-only.
type NotificationRecord struct {
	EventID    string    `json:"earthquake_id" db:"earthquake_id"`
	Token      string    `json:"user_token" db:"user_token"`
	Location   string    `json:"location" db:"location"`
	Magnitude  float64   `json:"magnitude" db:"magnitude"`
	DistanceKm float64   `json:"distance" db:"distance"`
	OccurredAt string    `json:"timestamp" db:"timestamp"`
	Source     Source    `json:"source" db:"source"`
	Reason     Reason    `json:"notification_type" db:"notification_type"`
	SentAt     time.Time `json:"sent_at" db:"sent_at"`
}

// NotificationQuery selects ledger history for one token, newest first.
type NotificationQuery struct {
	Token string `json:"token"`
	Limit int    `json:"limit"`
}

// CycleResult is the aggregate outcome of one polling cycle.
type CycleResult struct {
	Success              bool   `json:"success"`
	Source               Source `json:"source"`
	Message              string `json:"message"`
	EventsWithDeliveries int    `json:"eventsWithDeliveries"`
	TotalDelivered       int    `json:"totalDelivered"`
	TotalEventsFound     int    `json:"totalEventsFound"`
	CycleID              string `json:"cycleId,omitempty"`
	Error                string `json:"error,omitempty"`
}
