// Package guard keeps at most one polling cycle per source in flight.
package guard

import (
	"context"
	"sync"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
)

// Guard hands out per-key leases. TryAcquire never blocks: when the key is
// already held it returns errors.ErrCycleInFlight.
type Guard interface {
	TryAcquire(ctx context.Context, key string) (release func(), err error)
	Close() error
}

// LocalGuard is a process-local Guard.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]struct{})}
}

func (g *LocalGuard) TryAcquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		return nil, apperrors.ErrCycleInFlight
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

func (g *LocalGuard) Close() error { return nil }
