// Package supervisor owns the stage worker lifecycles: start and stop per
// stage, both idempotent, and a join-all shutdown with no timeout.
package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/pipeline"
)

type stageRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor coordinates the per-stage workers.
type Supervisor struct {
	parent   context.Context
	logger   *slog.Logger
	mu       sync.Mutex
	handlers map[item.Stage]pipeline.Handler
	running  map[item.Stage]*stageRun
}

// New constructs a supervisor. Workers started later inherit the parent
// context, so cancelling it shuts everything down.
func New(parent context.Context, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		parent:   parent,
		logger:   logging.NewComponentLogger(logger, "supervisor"),
		handlers: make(map[item.Stage]pipeline.Handler),
		running:  make(map[item.Stage]*stageRun),
	}
}

// Register makes a stage startable. Registration alone does not start it.
func (s *Supervisor) Register(handler pipeline.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[handler.Stage()] = handler
}

// Start launches a stage worker. Starting a running stage is a no-op;
// returns whether the stage is running afterwards.
func (s *Supervisor) Start(stage item.Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run, ok := s.running[stage]; ok {
		select {
		case <-run.done:
			// Worker halted on its own; allow a restart.
			delete(s.running, stage)
		default:
			return true
		}
	}

	handler, ok := s.handlers[stage]
	if !ok {
		s.logger.Warn("start requested for unregistered stage",
			logging.String("stage", string(stage)))
		return false
	}

	ctx, cancel := context.WithCancel(s.parent)
	run := &stageRun{cancel: cancel, done: make(chan struct{})}
	s.running[stage] = run

	s.logger.Info("starting stage", logging.String("stage", string(stage)))
	go func() {
		defer close(run.done)
		defer cancel()
		if err := pipeline.Run(ctx, handler, s.logger); err != nil {
			s.logger.Error("stage exited with error",
				logging.String("stage", string(stage)), logging.Error(err))
		}
	}()
	return true
}

// Stop cancels a stage worker and joins it. Stopping a stopped stage is a
// no-op; returns whether a worker was actually stopped.
func (s *Supervisor) Stop(stage item.Stage) bool {
	s.mu.Lock()
	run, ok := s.running[stage]
	if ok {
		delete(s.running, stage)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.logger.Info("stopping stage", logging.String("stage", string(stage)))
	run.cancel()
	<-run.done
	return true
}

// Running reports whether a stage worker is live.
func (s *Supervisor) Running(stage item.Stage) bool {
	s.mu.Lock()
	run, ok := s.running[stage]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-run.done:
		return false
	default:
		return true
	}
}

// Shutdown stops every running stage and joins them all, with no timeout.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	runs := make([]*stageRun, 0, len(s.running))
	for stage, run := range s.running {
		s.logger.Info("stopping stage", logging.String("stage", string(stage)))
		run.cancel()
		runs = append(runs, run)
		delete(s.running, stage)
	}
	s.mu.Unlock()

	for _, run := range runs {
		<-run.done
	}
	s.logger.Info("all stages stopped")
}
