// Package handlers wires world events into the scheduler. Every handler
// only enqueues work or rebuilds the type-pair table; none performs a
// replacement synchronously, which keeps reentrant event delivery during a
// transaction harmless.
package handlers

import (
	"log/slog"

	"github.com/trainworks/relink/internal/dispatcher"
	"github.com/trainworks/relink/internal/pairs"
	"github.com/trainworks/relink/internal/persist"
	"github.com/trainworks/relink/internal/scheduler"
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/pkg/core"
)

// Dependencies holds all dependencies needed by handlers.
type Dependencies struct {
	World     world.World
	Table     *pairs.Table
	Scheduler *scheduler.Scheduler
	Store     persist.Store
	Logger    *slog.Logger

	// PairsSource supplies the configured type pairs on init and
	// configuration change.
	PairsSource func() []pairs.Pair
}

// Service provides the event entry points.
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.PairsSource == nil {
		deps.PairsSource = func() []pairs.Pair { return nil }
	}
	return &Service{deps: deps}
}

// RegisterAll registers every handler against the dispatcher.
func (s *Service) RegisterAll(d *dispatcher.Dispatcher) {
	d.Register(core.EventInit, s.OnInit, dispatcher.Logged())
	d.Register(core.EventLoad, s.OnLoad, dispatcher.Logged())
	d.Register(core.EventConfigChanged, s.OnConfigChanged, dispatcher.Logged())
	d.Register(core.EventTrainCreated, s.OnTrainCreated)
	d.Register(core.EventTrainChangedState, s.OnTrainChangedState)
}

// OnInit rebuilds the type-pair table and restores persisted queues.
func (s *Service) OnInit(_ core.Event) error {
	rows := s.deps.PairsSource()
	s.deps.Table.Rebuild(rows)
	s.deps.Logger.Info("type-pair table built", "pairs", s.deps.Table.Len())
	return s.restoreQueues()
}

// OnLoad restores persisted queues after a host reload. Missing state is
// treated as empty.
func (s *Service) OnLoad(_ core.Event) error {
	return s.restoreQueues()
}

// OnConfigChanged rebuilds the table and queues every known train for
// re-inspection, since a changed pair set can invalidate or enable work
// anywhere.
func (s *Service) OnConfigChanged(_ core.Event) error {
	rows := s.deps.PairsSource()
	s.deps.Table.Rebuild(rows)
	s.deps.Logger.Info("type-pair table rebuilt", "pairs", s.deps.Table.Len())
	for _, id := range s.deps.World.Trains() {
		s.deps.Scheduler.EnqueueInspection(id)
	}
	return nil
}

// OnTrainCreated queues the new train for inspection. This fires both for
// organic topology changes and for those provoked by a transaction; the
// latter is how the replacement loop closes.
func (s *Service) OnTrainCreated(e core.Event) error {
	s.deps.Scheduler.EnqueueInspection(e.Train)
	return nil
}

// OnTrainChangedState queues the train for inspection; arriving at or
// leaving a stop can change what linking is permitted.
func (s *Service) OnTrainChangedState(e core.Event) error {
	s.deps.Scheduler.EnqueueInspection(e.Train)
	return nil
}

func (s *Service) restoreQueues() error {
	if s.deps.Store == nil {
		return nil
	}
	if err := s.deps.Scheduler.RestoreFrom(s.deps.Store); err != nil {
		return err
	}
	repl, insp := s.deps.Scheduler.QueueLengths()
	s.deps.Logger.Info("queues restored", "replacements", repl, "inspections", insp,
		"active", s.deps.Scheduler.Active())
	return nil
}
