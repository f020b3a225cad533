package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListSubscribers reads every registered token with its last known location
func (s *PostgresStore) ListSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	result, err := s.db.Query(ctx, `SELECT token, latitude, longitude FROM user_tokens ORDER BY created_at, token`)
	if err != nil {
		return nil, apperrors.DatabaseError{Operation: "list subscribers", Err: err}
	}

	rows, ok := result.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var subscribers []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		if err := rows.Scan(&sub.Token, &sub.Latitude, &sub.Longitude); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError{Operation: "list subscribers", Err: err}
	}

	return subscribers, nil
}

// GetPreference reads the selected source. Missing rows, NULL and unknown
// values all mean no preference.
func (s *PostgresStore) GetPreference(ctx context.Context, token string) (models.Preference, error) {
	result := s.db.QueryRow(ctx, `SELECT selected_data_source FROM user_preferences WHERE user_token = $1`, token)

	row, ok := result.(pgx.Row)
	if !ok {
		return models.Preference{}, fmt.Errorf("invalid row type")
	}

	var selected *string
	if err := row.Scan(&selected); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Preference{}, nil
		}
		return models.Preference{}, apperrors.DatabaseError{Operation: "get preference", Err: err}
	}

	if selected == nil {
		return models.Preference{}, nil
	}
	src, err := models.ParseSource(*selected)
	if err != nil {
		return models.Preference{}, nil
	}
	return models.Preference{SelectedSource: &src}, nil
}

func (s *PostgresStore) Exists(ctx context.Context, eventID, token string) (bool, error) {
	result := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_notifications WHERE earthquake_id = $1 AND user_token = $2)`,
		eventID, token,
	)

	row, ok := result.(pgx.Row)
	if !ok {
		return false, fmt.Errorf("invalid row type")
	}

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, apperrors.DatabaseError{Operation: "check ledger", Err: err}
	}
	return exists, nil
}

// Record appends a ledger entry. A pair that is already present, whether
// caught by ON CONFLICT or by a racing insert, yields ErrDuplicate.
func (s *PostgresStore) Record(ctx context.Context, rec models.NotificationRecord) error {
	query := `
		INSERT INTO user_notifications (
			earthquake_id, user_token, location, magnitude, distance,
			timestamp, source, notification_type, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
		ON CONFLICT (earthquake_id, user_token) DO NOTHING
	`

	var sentAt any
	if !rec.SentAt.IsZero() {
		sentAt = rec.SentAt
	}

	affected, err := s.db.Exec(ctx, query,
		rec.EventID, rec.Token, rec.Location, rec.Magnitude, rec.DistanceKm,
		rec.OccurredAt, string(rec.Source), string(rec.Reason), sentAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicate
		}
		return apperrors.DatabaseError{Operation: "record notification", Err: err}
	}
	if affected == 0 {
		return apperrors.ErrDuplicate
	}
	return nil
}

// ListNotifications returns a token's history, newest first
func (s *PostgresStore) ListNotifications(ctx context.Context, q models.NotificationQuery) ([]models.NotificationRecord, error) {
	query := `
		SELECT earthquake_id, user_token, location, magnitude, distance,
			   timestamp, source, notification_type, sent_at
		FROM user_notifications
		WHERE user_token = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT $2
	`

	result, err := s.db.Query(ctx, query, q.Token, historyLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}

	rows, ok := result.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var (
			rec    models.NotificationRecord
			source string
			reason string
		)
		err := rows.Scan(
			&rec.EventID, &rec.Token, &rec.Location, &rec.Magnitude, &rec.DistanceKm,
			&rec.OccurredAt, &source, &reason, &rec.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		rec.Source = models.Source(source)
		rec.Reason = models.Reason(reason)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return records, nil
}

// Health checks database connectivity
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
