package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
)

func newTestRedisGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	g, err := NewRedisGuard("redis://"+s.Addr(), "quakealert", ttl)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g, s
}

func TestRedisGuard_AcquireRelease(t *testing.T) {
	g, s := newTestRedisGuard(t, time.Minute)
	ctx := context.Background()

	release, err := g.TryAcquire(ctx, "AFAD")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !s.Exists("quakealert:cycle:AFAD") {
		t.Fatal("expected lock key in redis")
	}

	if _, err := g.TryAcquire(ctx, "AFAD"); !errors.Is(err, apperrors.ErrCycleInFlight) {
		t.Fatalf("expected ErrCycleInFlight, got %v", err)
	}

	release()
	if s.Exists("quakealert:cycle:AFAD") {
		t.Fatal("expected lock key removed after release")
	}

	release2, err := g.TryAcquire(ctx, "AFAD")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	release2()
}

func TestRedisGuard_LeaseExpires(t *testing.T) {
	g, s := newTestRedisGuard(t, 30*time.Second)
	ctx := context.Background()

	stale, err := g.TryAcquire(ctx, "EMSC")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	s.FastForward(31 * time.Second)

	fresh, err := g.TryAcquire(ctx, "EMSC")
	if err != nil {
		t.Fatalf("expected expired lease to be reclaimable: %v", err)
	}

	// A stale holder must not delete the new lease.
	stale()
	if !s.Exists("quakealert:cycle:EMSC") {
		t.Fatal("stale release removed the current lease")
	}
	fresh()
}

func TestNewRedisGuard_Errors(t *testing.T) {
	if _, err := NewRedisGuard("not a url", "p", time.Second); err == nil {
		t.Error("expected parse error")
	}

	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := s.Addr()
	s.Close()
	if _, err := NewRedisGuard("redis://"+addr, "p", time.Second); err == nil {
		t.Error("expected ping error")
	}
}
