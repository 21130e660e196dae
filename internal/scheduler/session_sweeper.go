package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// DefaultSweepInterval is used when the sweeper is created with a zero interval
const DefaultSweepInterval = 10 * time.Minute

// Sweepable is a session store that must be purged by hand
type Sweepable interface {
	Sweep(now time.Time) int
}

// SessionSweeper periodically drops expired in-memory sessions
type SessionSweeper struct {
	store    Sweepable
	clock    domain.Clock
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSessionSweeper creates a new sweeper
func NewSessionSweeper(store Sweepable, clock domain.Clock, log logger.Logger, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionSweeper{
		store:    store,
		clock:    clock,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep in the background every interval until Stop or ctx ends
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper
func (s *SessionSweeper) Stop() {
	close(s.stopCh)
}

// Sweep removes expired sessions once and returns how many went
func (s *SessionSweeper) Sweep() int {
	removed := s.store.Sweep(s.clock.Now())
	if removed > 0 {
		s.logger.Info("expired sessions swept", logger.Int("removed", removed))
	} else {
		s.logger.Debug("no expired sessions")
	}
	return removed
}
