package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type graceKey struct {
	sessionID     string
	participantID string
}

type graceTimer struct {
	token uint64
	timer clockwork.Timer
	stop  chan struct{}
}

// Supervisor owns the reconnect grace timers, one per (session, participant)
type Supervisor struct {
	clock  clockwork.Clock
	period time.Duration
	logger zerolog.Logger

	mu     sync.Mutex
	timers map[graceKey]*graceTimer
	next   uint64
	done   chan struct{}
}

// NewSupervisor creates a supervisor that removes participants after period
func NewSupervisor(clock clockwork.Clock, period time.Duration, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		clock:  clock,
		period: period,
		logger: logger,
		timers: make(map[graceKey]*graceTimer),
		done:   make(chan struct{}),
	}
}

// Schedule starts a grace timer and returns its token. onExpire receives the token when
// the timer fires and must Claim it before acting, since a rejoin may have raced the firing.
// Any timer already pending for the same pair is replaced.
func (s *Supervisor) Schedule(sessionID, participantID string, onExpire func(token uint64)) uint64 {
	key := graceKey{sessionID: sessionID, participantID: participantID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		s.stopTimer(existing)
		s.logger.Debug().
			Str("sessionId", sessionID).
			Str("participantId", participantID).
			Msg("replaced pending grace timer")
	}

	s.next++
	gt := &graceTimer{
		token: s.next,
		timer: s.clock.NewTimer(s.period),
		stop:  make(chan struct{}),
	}
	s.timers[key] = gt

	go func() {
		select {
		case <-gt.timer.Chan():
			onExpire(gt.token)
		case <-gt.stop:
		case <-s.done:
		}
	}()

	s.logger.Debug().
		Str("sessionId", sessionID).
		Str("participantId", participantID).
		Dur("grace", s.period).
		Msg("scheduled grace timer")

	return gt.token
}

// Cancel stops the pending timer for the pair. Cancelling a fired or missing timer is a no-op.
func (s *Supervisor) Cancel(sessionID, participantID string) bool {
	key := graceKey{sessionID: sessionID, participantID: participantID}

	s.mu.Lock()
	defer s.mu.Unlock()

	gt, ok := s.timers[key]
	if !ok {
		return false
	}
	s.stopTimer(gt)
	delete(s.timers, key)
	return true
}

// Claim consumes a fired timer. It returns false if the timer was cancelled or replaced
// after it fired.
func (s *Supervisor) Claim(sessionID, participantID string, token uint64) bool {
	key := graceKey{sessionID: sessionID, participantID: participantID}

	s.mu.Lock()
	defer s.mu.Unlock()

	gt, ok := s.timers[key]
	if !ok || gt.token != token {
		return false
	}
	delete(s.timers, key)
	return true
}

// Pending reports whether a grace timer is outstanding for the pair
func (s *Supervisor) Pending(sessionID, participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[graceKey{sessionID: sessionID, participantID: participantID}]
	return ok
}

// CancelSession stops every timer belonging to a session
func (s *Supervisor) CancelSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, gt := range s.timers {
		if key.sessionID == sessionID {
			s.stopTimer(gt)
			delete(s.timers, key)
		}
	}
}

// Stop cancels all timers. The supervisor cannot be reused afterwards.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}

	for key, gt := range s.timers {
		gt.timer.Stop()
		delete(s.timers, key)
	}
}

// stopTimer releases the timer goroutine (caller must hold lock)
func (s *Supervisor) stopTimer(gt *graceTimer) {
	gt.timer.Stop()
	close(gt.stop)
}
