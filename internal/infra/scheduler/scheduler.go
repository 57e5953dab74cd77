package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// IdleCloser is the slice of the negotiation use case the sweeper drives.
type IdleCloser interface {
	CloseIdle(ctx context.Context, idleFor time.Duration) (int, error)
}

// Scheduler periodically closes negotiations that went quiet.
type Scheduler struct {
	interval time.Duration
	idleFor  time.Duration
	closer   IdleCloser
	log      *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler sweeps every interval (default one minute) for sessions idle
// longer than idleFor.
func NewScheduler(interval, idleFor time.Duration, closer IdleCloser, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "IdleSweeper").Logger()
	return &Scheduler{
		interval: interval,
		idleFor:  idleFor,
		closer:   closer,
		log:      &l,
	}
}

// Start begins the loop in a background goroutine; a second call is a no-op.
func (s *Scheduler) Start(parent context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Dur("interval", s.interval).Dur("idle_for", s.idleFor).Msg("started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("stopping")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep bounded to 30 seconds.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := s.closer.CloseIdle(runCtx, s.idleFor)
	if err != nil {
		s.log.Error().Err(err).Msg("idle sweep")
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("idle negotiations closed")
	}
	return n
}

// Stop cancels the loop and waits for it to exit. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}
