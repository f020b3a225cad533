package models

import (
	"fmt"
	"strings"
)

// Source identifies one of the upstream seismic feeds.
type Source string

const (
	SourceAFAD     Source = "AFAD"
	SourceKandilli Source = "KANDILLI"
	SourceEMSC     Source = "EMSC"
)

// Sources lists every supported feed in scheduling order.
var Sources = []Source{SourceAFAD, SourceKandilli, SourceEMSC}

// ParseSource resolves a source key case-insensitively ("afad", "Kandilli", "EMSC").
func ParseSource(key string) (Source, error) {
	switch Source(strings.ToUpper(strings.TrimSpace(key))) {
	case SourceAFAD:
		return SourceAFAD, nil
	case SourceKandilli:
		return SourceKandilli, nil
	case SourceEMSC:
		return SourceEMSC, nil
	}
	return "", fmt.Errorf("unknown source %q", key)
}

// Tag is the lowercase prefix used in fallback event ids.
func (s Source) Tag() string {
	return strings.ToLower(string(s))
}

// DisplayName is the provider name shown to subscribers.
func (s Source) DisplayName() string {
	switch s {
	case SourceKandilli:
		return "Kandilli"
	case SourceAFAD, SourceEMSC:
		return string(s)
	}
	return "Bilinmeyen"
}

func (s Source) Icon() string {
	switch s {
	case SourceAFAD:
		return "🏛️"
	case SourceKandilli:
		return "🔬"
	case SourceEMSC:
		return "🌍"
	}
	return "⚠️"
}

// Quake is the provider-agnostic representation every adapter produces.
// It is rebuilt on every fetch and never persisted directly.
type Quake struct {
	ID         string  `json:"id"`
	Location   string  `json:"location"`
	Magnitude  float64 `json:"magnitude"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DepthKm    float64 `json:"depth_km"`
	OccurredAt string  `json:"occurred_at"`
	Source     Source  `json:"source"`
}

// Subscriber is a registered device. Location and source preference are optional.
type Subscriber struct {
	Token          string   `json:"token" db:"token"`
	Latitude       *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64 `json:"longitude,omitempty" db:"longitude"`
	SelectedSource *Source  `json:"selected_source,omitempty" db:"selected_source"`
}

// HasLocation reports whether both coordinates are known.
func (s Subscriber) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Accepts reports whether the subscriber wants alerts from src. No preference
// means every source is accepted.
func (s Subscriber) Accepts(src Source) bool {
	return s.SelectedSource == nil || *s.SelectedSource == src
}

// Preference is the subscriber's source selection as stored by the registration side.
type Preference struct {
	SelectedSource *Source `json:"selected_source,omitempty"`
}
