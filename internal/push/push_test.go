package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

var testQuake = models.Quake{
	ID:         "afad_39.5_35.2_2024-01-01T00:00:00",
	Location:   "Kirsehir",
	Magnitude:  5,
	Latitude:   39.5,
	Longitude:  35.2,
	DepthKm:    7.3,
	OccurredAt: "2024-01-01T00:00:00",
	Source:     models.SourceAFAD,
}

func TestBuildMessage_Magnitude(t *testing.T) {
	msg := BuildMessage(testQuake, "T1", models.ReasonMagnitude, 0)

	assert.Equal(t, "T1", msg.Token)
	assert.Equal(t, "🏛️ AFAD Deprem Uyarısı", msg.Title)
	assert.Equal(t, "Kirsehir - 5.0 büyüklük", msg.Body)
	assert.Equal(t, map[string]string{
		"earthquakeId": "afad_39.5_35.2_2024-01-01T00:00:00",
		"location":     "Kirsehir",
		"magnitude":    "5.0",
		"latitude":     "39.5",
		"longitude":    "35.2",
		"depth":        "7.3",
		"timestamp":    "2024-01-01T00:00:00",
		"distance":     "0",
		"source":       "AFAD",
		"type":         "earthquake_alert",
	}, msg.Data)
}

func TestBuildMessage_Proximity(t *testing.T) {
	q := testQuake
	q.Source = models.SourceKandilli
	q.Magnitude = 4.2

	msg := BuildMessage(q, "T2", models.ReasonProximity, 69.9)
	assert.Equal(t, "🔬 Kandilli Deprem Uyarısı", msg.Title)
	assert.Equal(t, "Kirsehir - 4.2 büyüklük (69.9 km)", msg.Body)
	assert.Equal(t, "69.9", msg.Data["distance"])
	assert.Equal(t, "KANDILLI", msg.Data["source"])
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestNewRateLimited_ZeroDisables(t *testing.T) {
	next := &recordingSender{}
	assert.Same(t, next, NewRateLimited(next, 0, 10))
}

func TestRateLimited_Forwards(t *testing.T) {
	next := &recordingSender{}
	s := NewRateLimited(next, 1000, 5)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Send(context.Background(), Message{Token: "T"}))
	}
	assert.Len(t, next.sent, 5)
}

func TestRateLimited_RespectsContext(t *testing.T) {
	next := &recordingSender{}
	s := NewRateLimited(next, 0.001, 1)

	require.NoError(t, s.Send(context.Background(), Message{Token: "first"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Send(ctx, Message{Token: "second"})
	assert.Error(t, err)
	assert.Len(t, next.sent, 1)
}

type fakeMessaging struct {
	got *messaging.Message
	err error
}

func (f *fakeMessaging) Send(ctx context.Context, m *messaging.Message) (string, error) {
	f.got = m
	if f.err != nil {
		return "", f.err
	}
	return "projects/p/messages/1", nil
}

func TestFCMSender_Send(t *testing.T) {
	fake := &fakeMessaging{}
	s := &FCMSender{client: fake}

	msg := BuildMessage(testQuake, "device-token-123", models.ReasonMagnitude, 0)
	require.NoError(t, s.Send(context.Background(), msg))

	require.NotNil(t, fake.got)
	assert.Equal(t, "device-token-123", fake.got.Token)
	assert.Equal(t, msg.Title, fake.got.Notification.Title)
	assert.Equal(t, msg.Body, fake.got.Notification.Body)
	assert.Equal(t, "earthquake_alert", fake.got.Data["type"])
}

func TestFCMSender_SendError(t *testing.T) {
	s := &FCMSender{client: &fakeMessaging{err: errors.New("unavailable")}}

	err := s.Send(context.Background(), Message{Token: "device-token-123"})
	var de apperrors.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "device-token-123", de.Token)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), BuildMessage(testQuake, "T", models.ReasonMagnitude, 0)))
}
