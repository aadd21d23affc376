// Package pipeline runs the stage workers. Each stage implements Handler;
// Run owns the wait loop so the workers only contain their state machines.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"wai/internal/item"
	"wai/internal/logging"
)

// Disposition tells the runner what to do after a tick.
type Disposition int

const (
	// Sleep waits for the stage interval, a wake signal, or shutdown.
	Sleep Disposition = iota
	// Continue ticks again immediately; the queue still has work.
	Continue
	// Halt stops the worker. Other stages keep running.
	Halt
)

// Handler is one stage worker. Resume runs once at startup to pick up an
// in-flight item left by a crash; Tick processes at most one item.
type Handler interface {
	Stage() item.Stage
	Resume(ctx context.Context) (Disposition, error)
	Tick(ctx context.Context) (Disposition, error)
	Wake() <-chan struct{}
	Interval() time.Duration
}

// Run drives a handler until shutdown or Halt. Tick errors are logged and
// the worker sleeps; the item stays anchored in its current-item file so the
// next tick retries it.
func Run(ctx context.Context, handler Handler, logger *slog.Logger) error {
	log := logging.NewComponentLogger(logger, string(handler.Stage()))

	disposition, err := handler.Resume(ctx)
	if err != nil {
		log.Error("resume failed", logging.Error(err))
	}
	if disposition == Halt {
		log.Warn("worker halted during resume")
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		disposition, err := handler.Tick(ctx)
		if err != nil {
			log.Error("tick failed", logging.Error(err))
		}

		switch disposition {
		case Continue:
			continue
		case Halt:
			log.Warn("worker halted")
			return err
		}

		log.Debug("sleeping", logging.Duration("interval", handler.Interval()))
		select {
		case <-ctx.Done():
			return nil
		case <-handler.Wake():
		case <-time.After(handler.Interval()):
		}
	}
}
