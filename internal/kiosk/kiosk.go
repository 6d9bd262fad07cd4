// Package kiosk periodically wipes the database back to the demo dataset so
// a public demo installation never accumulates visitor data.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"craftstock/backend/internal/domain"
)

const (
	lockKey = "craftstock:kiosk:reset"
	lockTTL = 2 * time.Minute
)

var ErrDisabled = errors.New("kiosk mode is disabled")

// Resetter empties every table and reloads the demo dataset in one unit of
// work. store.Repository satisfies it.
type Resetter interface {
	Reset(ctx context.Context) error
}

type Options struct {
	Enabled  bool
	Interval time.Duration
	Locker   Locker
	// AfterReset runs after every successful reset, e.g. to flush caches.
	AfterReset func(ctx context.Context)
}

type Scheduler struct {
	resetter   Resetter
	locker     Locker
	afterReset func(ctx context.Context)
	enabled    bool
	interval   time.Duration
	now        func() time.Time

	mu        sync.Mutex
	started   time.Time
	lastReset *time.Time
	nextReset *time.Time
	count     int
}

func New(resetter Resetter, opts Options) *Scheduler {
	if opts.Interval < time.Minute {
		opts.Interval = 15 * time.Minute
	}
	if opts.Locker == nil {
		opts.Locker = NewLocalLocker()
	}
	s := &Scheduler{
		resetter:   resetter,
		locker:     opts.Locker,
		afterReset: opts.AfterReset,
		enabled:    opts.Enabled,
		interval:   opts.Interval,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.started = s.now()
	return s
}

func (s *Scheduler) Enabled() bool {
	return s.enabled
}

// Start runs the reset loop until ctx is cancelled. The first reset happens
// one interval after Start. A disabled scheduler returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.run(ctx, time.NewTicker(s.interval))
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker) {
	s.mu.Lock()
	next := s.now().Add(s.interval)
	s.nextReset = &next
	s.mu.Unlock()

	log.Info().Dur("interval", s.interval).Msg("kiosk reset scheduler started")
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("kiosk reset scheduler stopped")
				return
			case <-ticker.C:
				err := s.reset(ctx)
				switch {
				case errors.Is(err, ErrBusy):
					log.Info().Msg("kiosk reset skipped, another replica holds the lock")
				case err != nil:
					log.Error().Err(err).Msg("scheduled kiosk reset failed")
				}
			}
		}
	}()
}

// ResetNow performs a reset outside the schedule.
func (s *Scheduler) ResetNow(ctx context.Context) (domain.KioskStatus, error) {
	if !s.enabled {
		return s.Status(), ErrDisabled
	}
	if err := s.reset(ctx); err != nil {
		return s.Status(), err
	}
	return s.Status(), nil
}

func (s *Scheduler) reset(ctx context.Context) error {
	release, err := s.locker.Obtain(ctx, lockKey, lockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("release kiosk reset lock")
		}
	}()

	started := s.now()
	if err := s.resetter.Reset(ctx); err != nil {
		return fmt.Errorf("kiosk reset: %w", err)
	}
	if s.afterReset != nil {
		s.afterReset(ctx)
	}

	s.mu.Lock()
	s.count++
	s.lastReset = &started
	next := started.Add(s.interval)
	s.nextReset = &next
	count := s.count
	s.mu.Unlock()

	log.Info().Int("reset_count", count).Dur("took", s.now().Sub(started)).Msg("kiosk database reset")
	return nil
}

func (s *Scheduler) Status() domain.KioskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.KioskStatus{
		Enabled:         s.enabled,
		IntervalMinutes: int(s.interval / time.Minute),
		ResetCount:      s.count,
		StartTime:       s.started,
		UptimeSeconds:   int64(s.now().Sub(s.started) / time.Second),
	}
	if s.lastReset != nil {
		last := *s.lastReset
		status.LastReset = &last
	}
	if s.enabled && s.nextReset != nil {
		next := *s.nextReset
		status.NextReset = &next
	}
	return status
}
