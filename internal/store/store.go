package store

import (
	"context"

	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

// SubscriberStore is the read side of subscriber registration.
type SubscriberStore interface {
	ListSubscribers(ctx context.Context) ([]models.Subscriber, error)
	// GetPreference returns an empty Preference when none is stored.
	GetPreference(ctx context.Context, token string) (models.Preference, error)
}

// Ledger records which (event, token) pairs have been alerted.
type Ledger interface {
	Exists(ctx context.Context, eventID, token string) (bool, error)
	// Record inserts rec and returns errors.ErrDuplicate when the pair is already present.
	Record(ctx context.Context, rec models.NotificationRecord) error
	ListNotifications(ctx context.Context, q models.NotificationQuery) ([]models.NotificationRecord, error)
}

// Store combines subscriber reads and the notification ledger
type Store interface {
	SubscriberStore
	Ledger
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (interface{}, error)
	QueryRow(ctx context.Context, sql string, args ...any) interface{}
	Health(ctx context.Context) error
	IsConfigured() bool
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// New creates a new store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}

func historyLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}
