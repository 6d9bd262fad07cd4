package kiosk

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResetter struct {
	calls atomic.Int32
	err   error
}

func (r *countingResetter) Reset(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestResetNowDisabled(t *testing.T) {
	resetter := &countingResetter{}
	s := New(resetter, Options{Enabled: false, Interval: 15 * time.Minute})

	status, err := s.ResetNow(context.Background())

	require.ErrorIs(t, err, ErrDisabled)
	assert.False(t, status.Enabled)
	assert.Nil(t, status.NextReset)
	assert.EqualValues(t, 0, resetter.calls.Load())
}

func TestResetNowRecordsState(t *testing.T) {
	resetter := &countingResetter{}
	flushed := 0
	s := New(resetter, Options{
		Enabled:    true,
		Interval:   15 * time.Minute,
		AfterReset: func(context.Context) { flushed++ },
	})

	status, err := s.ResetNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, status.ResetCount)
	assert.Equal(t, 15, status.IntervalMinutes)
	require.NotNil(t, status.LastReset)
	require.NotNil(t, status.NextReset)
	assert.Equal(t, 15*time.Minute, status.NextReset.Sub(*status.LastReset))
	assert.Equal(t, 1, flushed)
}

func TestResetFailureKeepsCount(t *testing.T) {
	resetter := &countingResetter{err: errors.New("database down")}
	s := New(resetter, Options{Enabled: true})

	status, err := s.ResetNow(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, status.ResetCount)
	assert.Nil(t, status.LastReset)
}

func TestIntervalBelowOneMinuteFallsBack(t *testing.T) {
	s := New(&countingResetter{}, Options{Enabled: true, Interval: 0})

	assert.Equal(t, 15, s.Status().IntervalMinutes)
}

func TestResetSkippedWhileLockHeld(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Obtain(context.Background(), lockKey, lockTTL)
	require.NoError(t, err)

	resetter := &countingResetter{}
	s := New(resetter, Options{Enabled: true, Locker: locker})

	_, err = s.ResetNow(context.Background())
	require.ErrorIs(t, err, ErrBusy)
	assert.EqualValues(t, 0, resetter.calls.Load())

	require.NoError(t, release(context.Background()))
	_, err = s.ResetNow(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, resetter.calls.Load())
}

func TestRunResetsOnEveryTick(t *testing.T) {
	resetter := &countingResetter{}
	s := New(resetter, Options{Enabled: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.run(ctx, time.NewTicker(10*time.Millisecond))

	require.Eventually(t, func() bool { return resetter.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, s.Status().ResetCount, 2)
}
