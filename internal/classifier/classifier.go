package classifier

import (
	"github.com/rajasatyajit/QuakeAlert/internal/geo"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
	"github.com/rajasatyajit/QuakeAlert/pkg/utils"
)

// Rules holds the eligibility thresholds.
type Rules struct {
	ProximityRadiusKm     float64
	ProximityMinMagnitude float64
	MagnitudeThreshold    float64
}

// DefaultRules returns the production thresholds: 140 km and M4.0 for
// proximity alerts, M5.0 for everyone.
func DefaultRules() Rules {
	return Rules{
		ProximityRadiusKm:     140,
		ProximityMinMagnitude: 4.0,
		MagnitudeThreshold:    5.0,
	}
}

// Decision is the outcome for one (quake, subscriber) pair.
type Decision struct {
	Eligible   bool
	Reason     models.Reason
	DistanceKm float64 // rounded to 0.1, zero unless Reason is proximity
}

// Classifier decides whether a subscriber should be alerted about a quake.
type Classifier struct {
	rules Rules
}

// New creates a new classifier instance
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify applies the rules in order, first match wins:
// a located subscriber within the radius of a quake at or above the proximity
// magnitude, then any subscriber for a quake at or above the magnitude threshold.
// Source preference is not considered here.
func (c *Classifier) Classify(q models.Quake, s models.Subscriber) Decision {
	if s.HasLocation() {
		d := geo.HaversineKm(*s.Latitude, *s.Longitude, q.Latitude, q.Longitude)
		if d <= c.rules.ProximityRadiusKm && q.Magnitude >= c.rules.ProximityMinMagnitude {
			return Decision{
				Eligible:   true,
				Reason:     models.ReasonProximity,
				DistanceKm: utils.Round1(d),
			}
		}
	}

	if q.Magnitude >= c.rules.MagnitudeThreshold {
		return Decision{Eligible: true, Reason: models.ReasonMagnitude}
	}

	return Decision{}
}
