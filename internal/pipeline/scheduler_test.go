package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajasatyajit/QuakeAlert/config"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

func TestSchedulesFromConfig(t *testing.T) {
	schedules := SchedulesFromConfig(config.ScheduleConfig{
		AFADInterval:     2 * time.Minute,
		KandilliInterval: 2 * time.Minute,
		KandilliOffset:   time.Minute,
		EMSCInterval:     4 * time.Minute,
		EMSCOffset:       30 * time.Second,
	})

	require.Len(t, schedules, 3)
	assert.Equal(t, Schedule{Source: models.SourceAFAD, Interval: 2 * time.Minute}, schedules[0])
	assert.Equal(t, Schedule{Source: models.SourceKandilli, Interval: 2 * time.Minute, Offset: time.Minute}, schedules[1])
	assert.Equal(t, Schedule{Source: models.SourceEMSC, Interval: 4 * time.Minute, Offset: 30 * time.Second}, schedules[2])
}

func TestRun_FiresAfterOffsetThenEveryInterval(t *testing.T) {
	a := newMockAdapter(models.SourceEMSC)
	h := newHarness(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.pipeline.Run(ctx, []Schedule{{Source: models.SourceEMSC, Interval: 4 * time.Minute, Offset: 30 * time.Second}})
	}()

	h.clock.BlockUntil(1)
	assert.Equal(t, int32(0), a.fetches.Load())
	assert.True(t, h.pipeline.IsRunning())

	h.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return a.fetches.Load() == 1 }, time.Second, 5*time.Millisecond)
	waitForRelease(t, h, models.SourceEMSC)

	h.clock.Advance(4 * time.Minute)
	require.Eventually(t, func() bool { return a.fetches.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, h.pipeline.IsRunning())
}

func TestRun_AlreadyRunning(t *testing.T) {
	h := newHarness(t, newMockAdapter(models.SourceAFAD))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = h.pipeline.Run(ctx, []Schedule{{Source: models.SourceAFAD, Interval: time.Minute, Offset: time.Minute}})
	}()
	require.Eventually(t, h.pipeline.IsRunning, time.Second, 5*time.Millisecond)

	err := h.pipeline.Run(ctx, nil)
	assert.Error(t, err)
}

func TestRun_RejectsZeroInterval(t *testing.T) {
	h := newHarness(t)

	err := h.pipeline.Run(context.Background(), []Schedule{{Source: models.SourceAFAD}})
	assert.Error(t, err)
	assert.False(t, h.pipeline.IsRunning())
}

// waitForRelease blocks until the cycle guard for src is free again.
func waitForRelease(t *testing.T, h *harness, src models.Source) {
	t.Helper()
	require.Eventually(t, func() bool {
		release, err := h.guard.TryAcquire(context.Background(), string(src))
		if err != nil {
			return false
		}
		release()
		return true
	}, time.Second, 5*time.Millisecond)
}
