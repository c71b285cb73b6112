// Package worker runs detached background tasks whose outcome is written
// through persistent state rather than returned to a caller.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/KeystonCloud/satellite/internal/metrics"
)

// ErrClosed is returned by Go after Shutdown has been called.
var ErrClosed = errors.New("supervisor is shut down")

// Supervisor owns detached tasks. Each task gets the supervisor's root
// context, not the context of the request that started it. A failing or
// panicking task is logged and never affects its siblings.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	logger zerolog.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewSupervisor creates a supervisor running at most limit tasks at once.
// A limit <= 0 means no limit.
func NewSupervisor(logger zerolog.Logger, limit int) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "supervisor").Logger(),
	}
	if limit > 0 {
		s.group.SetLimit(limit)
	}
	return s
}

// Go schedules fn and returns immediately, even when the concurrency limit
// is reached.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.group.Go(func() error {
			s.run(name, fn)
			return nil
		})
	}()
	return nil
}

func (s *Supervisor) run(name string, fn func(ctx context.Context) error) {
	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("task", name).Str("panic", fmt.Sprint(r)).Msg("background task panicked")
		}
	}()

	if err := fn(s.ctx); err != nil {
		s.logger.Error().Err(err).Str("task", name).Msg("background task failed")
		return
	}
	s.logger.Debug().Str("task", name).Msg("background task finished")
}

// Shutdown stops accepting tasks and waits for running ones to finish.
// Tasks still running when ctx expires are cancelled through their context.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("wait for background tasks: %w", ctx.Err())
	}
}
