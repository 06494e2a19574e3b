// Package monitor periodically reports scheduler and queue status for
// operators and ships the same sample to telemetry. Observational only: it
// reads counters, never touches the queues.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/trainworks/relink/internal/logging"
	"github.com/trainworks/relink/internal/scheduler"
	"github.com/trainworks/relink/internal/telemetry"
)

// TickSource reports the current world tick.
type TickSource interface {
	CurrentTick() uint64
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Scheduler  *scheduler.Scheduler
	Ticks      TickSource
	Telemetry  *telemetry.Manager
	LogManager *logging.SlogManager
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample reads the current status.
func (s *Service) Sample() telemetry.TickStats {
	repl, insp := s.deps.Scheduler.QueueLengths()
	totals := s.deps.Scheduler.TotalCounts()
	stats := telemetry.TickStats{
		ReplacementDepth: repl,
		InspectionDepth:  insp,
		Serviced:         totals.Serviced,
		Discarded:        totals.Discarded,
		Inspected:        totals.Inspected,
		SchedulerActive:  s.deps.Scheduler.Active(),
	}
	if s.deps.Ticks != nil {
		stats.Tick = s.deps.Ticks.CurrentTick()
	}
	return stats
}

// Report returns operator-readable status lines.
func (s *Service) Report() []string {
	st := s.Sample()
	state := "idle"
	if st.SchedulerActive {
		state = "active"
	}
	return []string{
		fmt.Sprintf("scheduler: %s (tick %d)", state, st.Tick),
		fmt.Sprintf("queues: %d replacement, %d inspection", st.ReplacementDepth, st.InspectionDepth),
		fmt.Sprintf("totals: %d serviced, %d inspected, %d discarded",
			st.Serviced, st.Inspected, st.Discarded),
	}
}

// Start begins periodic reporting at the given interval.
func (s *Service) Start(interval time.Duration) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				st := s.Sample()
				if s.deps.LogManager != nil {
					s.deps.LogManager.Logger().Info("status",
						"active", st.SchedulerActive,
						"replacementQueue", st.ReplacementDepth,
						"inspectionQueue", st.InspectionDepth,
						"serviced", st.Serviced,
						"inspected", st.Inspected,
						"discarded", st.Discarded)
				}
				if s.deps.Telemetry != nil {
					s.deps.Telemetry.WriteTickStats(st)
				}
			}
		}
	}()
}

// Stop halts periodic reporting.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
}
