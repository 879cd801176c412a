package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"arrodes-economy/internal/logging"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFlusher struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *countingFlusher) Flush(ctx context.Context) error {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return eris.New("flush without deadline")
	}
	if f.fail.Load() {
		return eris.New("store down")
	}
	return nil
}

func TestSchedulerFlushesPeriodically(t *testing.T) {
	f := &countingFlusher{}
	s := NewPersistenceScheduler(f, PersistenceConfig{Interval: 10 * time.Millisecond}, logging.Nop())
	s.Start()

	assert.Eventually(t, func() bool { return f.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestSchedulerStopFlushesOnce(t *testing.T) {
	f := &countingFlusher{}
	s := NewPersistenceScheduler(f, PersistenceConfig{Interval: time.Hour}, logging.Nop())
	s.Start()

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	f := &countingFlusher{}
	s := NewPersistenceScheduler(f, PersistenceConfig{}, logging.Nop())

	require.NoError(t, s.Stop())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestSchedulerRunNowReportsFailure(t *testing.T) {
	f := &countingFlusher{}
	f.fail.Store(true)
	s := NewPersistenceScheduler(f, DefaultPersistenceConfig(), logging.Nop())

	assert.Error(t, s.RunNow())
	f.fail.Store(false)
	assert.NoError(t, s.RunNow())
}
