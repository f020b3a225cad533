// Package publisher streams normalized quakes to downstream consumers.
package publisher

import (
	"context"

	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

// Publisher emits the events found by a cycle.
type Publisher interface {
	PublishQuakes(ctx context.Context, quakes []models.Quake) error
	Close() error
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) PublishQuakes(ctx context.Context, quakes []models.Quake) error { return nil }
func (NoOp) Close() error                                                  { return nil }
