package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"friend_broadcast_bot/internal/app" // BroadcastService, Clock
	"friend_broadcast_bot/internal/domain/broadcast"

	"github.com/sirupsen/logrus"
)

// BroadcastScheduler owns the trigger loop of one broadcast. The loop runs in a single
// goroutine and drives at most one run at a time; a run is never started while the
// previous one is still iterating.
//
// Stop waits for the loop to exit. A send already in progress is allowed to finish, so
// a send that hangs also blocks Stop.
type BroadcastScheduler struct {
	name    string
	service app.BroadcastService
	policy  Policy
	clock   app.Clock
	logger  *logrus.Entry

	mu      sync.Mutex
	state   State
	lastRun *broadcast.Run
	lastErr error
	cancel  context.CancelFunc
	stopped bool
	done    chan struct{}
}

// Snapshot is a point-in-time view of a scheduler for status reporting.
type Snapshot struct {
	Name    string
	Policy  string
	State   State
	LastRun *broadcast.Run
	LastErr error
}

func NewBroadcastScheduler(name string, service app.BroadcastService, policy Policy, clock app.Clock, logger *logrus.Entry) *BroadcastScheduler {
	if clock == nil {
		clock = app.RealClock()
	}
	return &BroadcastScheduler{
		name:    name,
		service: service,
		policy:  policy,
		clock:   clock,
		logger:  logger.WithFields(logrus.Fields{"broadcast": name, "policy": policy.String()}),
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// Start runs the trigger loop in the background. Calling it again, or after Stop,
// does nothing.
func (s *BroadcastScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.stopped {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateWaiting
	go func() {
		defer close(s.done)
		s.loop(ctx)
	}()
	s.logger.Info("Broadcast scheduler started")
}

// Stop cancels the trigger loop and waits for it to exit. It is a no-op before
// Start and on every call after the first.
func (s *BroadcastScheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("Stopping broadcast scheduler...")
	cancel()
	<-s.done
	s.logger.Info("Broadcast scheduler stopped")
}

// Done is closed once the loop has exited after Stop. It is never closed if Start
// was not called.
func (s *BroadcastScheduler) Done() <-chan struct{} {
	return s.done
}

func (s *BroadcastScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *BroadcastScheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Name:    s.name,
		Policy:  s.policy.String(),
		State:   s.state,
		LastRun: s.lastRun,
		LastErr: s.lastErr,
	}
}

func (s *BroadcastScheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *BroadcastScheduler) loop(ctx context.Context) {
	defer s.setState(StateCancelled)

	since := s.clock.Now()
	for ctx.Err() == nil {
		due, wait := s.policy.Due(s.clock.Now(), since)
		if !due {
			s.setState(StateWaiting)
			s.logger.WithField("wait", wait.String()).Debug("Broadcast not due yet")
			if err := s.clock.Sleep(ctx, wait); err != nil {
				return
			}
			continue
		}

		s.setState(StateFiring)
		s.fire(ctx)
		since = s.clock.Now()
		if ctx.Err() != nil {
			return
		}

		if cooldown := s.policy.Cooldown(); cooldown > 0 {
			s.setState(StateCooldown)
			if err := s.clock.Sleep(ctx, cooldown); err != nil {
				return
			}
		}
	}
}

// fire runs one broadcast. Nothing that goes wrong inside a run escapes this method:
// the loop always carries on with its normal schedule.
func (s *BroadcastScheduler) fire(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("broadcast run panicked: %v", r)
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			s.logger.WithError(err).Error("Broadcast run crashed, continuing on schedule")
		}
	}()

	s.logger.Info("Broadcast triggered")
	run, err := s.service.Run(ctx)

	s.mu.Lock()
	s.lastRun = run
	s.lastErr = err
	s.mu.Unlock()

	var lookupErr *broadcast.LookupError
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		s.logger.Info("Broadcast run interrupted by shutdown")
	case errors.As(err, &lookupErr):
		s.logger.WithError(err).Warn("Broadcast run aborted, next attempt on the normal schedule")
	default:
		s.logger.WithError(err).Error("Broadcast run failed, next attempt on the normal schedule")
	}
}
