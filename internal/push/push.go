// Package push composes alert messages and delivers them to devices.
package push

import (
	"context"
	"fmt"

	"github.com/rajasatyajit/QuakeAlert/internal/models"
	"github.com/rajasatyajit/QuakeAlert/pkg/utils"
)

// AlertType tags every data payload so clients can route it.
const AlertType = "earthquake_alert"

// Message is one device notification.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a message. A nil error means the transport accepted it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// BuildMessage composes the title, body and data payload for one alert.
// distanceKm is only shown for proximity alerts.
func BuildMessage(q models.Quake, token string, reason models.Reason, distanceKm float64) Message {
	distance := "0"
	body := fmt.Sprintf("%s - %s büyüklük", q.Location, utils.FormatFixed1(q.Magnitude))
	if reason == models.ReasonProximity {
		distance = utils.FormatFixed1(distanceKm)
		body += fmt.Sprintf(" (%s km)", distance)
	}

	return Message{
		Token: token,
		Title: fmt.Sprintf("%s %s Deprem Uyarısı", q.Source.Icon(), q.Source.DisplayName()),
		Body:  body,
		Data: map[string]string{
			"earthquakeId": q.ID,
			"location":     q.Location,
			"magnitude":    utils.FormatFixed1(q.Magnitude),
			"latitude":     utils.FormatCoord(q.Latitude),
			"longitude":    utils.FormatCoord(q.Longitude),
			"depth":        utils.FormatFixed1(q.DepthKm),
			"timestamp":    q.OccurredAt,
			"distance":     distance,
			"source":       string(q.Source),
			"type":         AlertType,
		},
	}
}
