package store

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

type ledgerKey struct {
	eventID string
	token   string
}

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu          sync.RWMutex
	subscribers map[string]models.Subscriber
	order       []string
	preferences map[string]models.Source
	records     map[ledgerKey]models.NotificationRecord
	seq         map[ledgerKey]int
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		subscribers: make(map[string]models.Subscriber),
		preferences: make(map[string]models.Source),
		records:     make(map[ledgerKey]models.NotificationRecord),
		seq:         make(map[ledgerKey]int),
	}
}

// AddSubscriber registers or replaces a subscriber. A non-nil SelectedSource
// is stored as the subscriber's preference.
func (s *InMemoryStore) AddSubscriber(sub models.Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[sub.Token]; !ok {
		s.order = append(s.order, sub.Token)
	}
	if sub.SelectedSource != nil {
		s.preferences[sub.Token] = *sub.SelectedSource
	}
	sub.SelectedSource = nil
	s.subscribers[sub.Token] = sub
}

// SetPreference sets or clears (nil) a subscriber's source preference.
func (s *InMemoryStore) SetPreference(token string, src *models.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src == nil {
		delete(s.preferences, token)
		return
	}
	s.preferences[token] = *src
}

// ListSubscribers returns subscribers in registration order
func (s *InMemoryStore) ListSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Subscriber, 0, len(s.order))
	for _, token := range s.order {
		out = append(out, s.subscribers[token])
	}
	return out, nil
}

func (s *InMemoryStore) GetPreference(ctx context.Context, token string) (models.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.preferences[token]
	if !ok {
		return models.Preference{}, nil
	}
	return models.Preference{SelectedSource: &src}, nil
}

func (s *InMemoryStore) Exists(ctx context.Context, eventID, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[ledgerKey{eventID, token}]
	return ok, nil
}

func (s *InMemoryStore) Record(ctx context.Context, rec models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{rec.EventID, rec.Token}
	if _, ok := s.records[key]; ok {
		return apperrors.ErrDuplicate
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	s.records[key] = rec
	s.seq[key] = len(s.seq)
	return nil
}

// ListNotifications returns a token's history, newest first
func (s *InMemoryStore) ListNotifications(ctx context.Context, q models.NotificationQuery) ([]models.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []ledgerKey
	for key := range s.records {
		if key.token == q.Token {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := s.records[keys[i]], s.records[keys[j]]
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.After(b.SentAt)
		}
		return s.seq[keys[i]] > s.seq[keys[j]]
	})

	limit := historyLimit(q.Limit)
	if len(keys) > limit {
		keys = keys[:limit]
	}

	result := make([]models.NotificationRecord, 0, len(keys))
	for _, key := range keys {
		result = append(result, s.records[key])
	}
	return result, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
