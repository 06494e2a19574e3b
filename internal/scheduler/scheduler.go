// Package scheduler owns the two work queues and paces all replacement
// work: at most one replacement transaction or one train inspection runs
// per world tick, replacements first. The scheduler subscribes to the
// world's per-tick callback only while work is queued and unsubscribes when
// idle, so an idle system costs nothing per tick.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/trainworks/relink/internal/classifier"
	"github.com/trainworks/relink/internal/pairs"
	"github.com/trainworks/relink/internal/persist"
	"github.com/trainworks/relink/internal/queue"
	"github.com/trainworks/relink/internal/swap"
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/pkg/core"
)

// Totals are running counts of scheduler activity since start.
type Totals struct {
	Serviced  uint64
	Discarded uint64
	Inspected uint64
}

// Scheduler drives replacement work off the world tick.
//
// Enqueue methods only append and arm; they never act on the new entry.
// That makes them safe to call reentrantly from event sinks firing inside a
// replacement transaction — reentrant enqueues simply become future work.
type Scheduler struct {
	world        world.World
	swapper      *swap.Service
	table        *pairs.Table
	enableSignal string
	log          *slog.Logger

	replacements *queue.Queue[core.ReplacementOrder]
	inspections  *queue.Queue[core.TrainID]

	mu     sync.Mutex
	active bool
	totals Totals

	serviced  metric.Int64Counter
	discarded metric.Int64Counter
	inspected metric.Int64Counter
	depth     metric.Int64ObservableGauge
}

// New creates a scheduler in the idle state. Metrics register against the
// global OTel meter, which is a no-op when not configured.
func New(w world.World, swapper *swap.Service, table *pairs.Table, enableSignal string, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		world:        w,
		swapper:      swapper,
		table:        table,
		enableSignal: enableSignal,
		log:          log,
		replacements: queue.New[core.ReplacementOrder](),
		inspections:  queue.New[core.TrainID](),
	}

	m := meter()
	var err error

	s.serviced, err = m.Int64Counter(
		"scheduler.orders.serviced",
		metric.WithDescription("Replacement orders executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating serviced counter: %w", err)
	}
	s.discarded, err = m.Int64Counter(
		"scheduler.orders.discarded",
		metric.WithDescription("Queue entries discarded as no longer valid"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating discarded counter: %w", err)
	}
	s.inspected, err = m.Int64Counter(
		"scheduler.trains.inspected",
		metric.WithDescription("Train inspections performed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inspected counter: %w", err)
	}
	s.depth, err = m.Int64ObservableGauge(
		"scheduler.queue.depth",
		metric.WithDescription("Current queue depths"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating depth gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(s.depth, int64(s.replacements.Len()),
				metric.WithAttributes(attribute.String("queue", "replacement")))
			o.ObserveInt64(s.depth, int64(s.inspections.Len()),
				metric.WithAttributes(attribute.String("queue", "inspection")))
			return nil
		},
		s.depth,
	)
	if err != nil {
		return nil, fmt.Errorf("registering depth callback: %w", err)
	}

	return s, nil
}

// EnqueueInspection queues a train for classification and arms the tick
// subscription.
func (s *Scheduler) EnqueueInspection(id core.TrainID) {
	s.inspections.Push(id)
	s.arm()
}

// EnqueueOrders queues replacement orders in the given order and arms the
// tick subscription.
func (s *Scheduler) EnqueueOrders(orders []core.ReplacementOrder) {
	if len(orders) == 0 {
		return
	}
	s.replacements.Push(orders...)
	s.arm()
}

// Active reports whether the scheduler is subscribed to the world tick.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// QueueLengths returns the current replacement and inspection queue depths.
func (s *Scheduler) QueueLengths() (replacements, inspections int) {
	return s.replacements.Len(), s.inspections.Len()
}

// TotalCounts returns running activity totals.
func (s *Scheduler) TotalCounts() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// OnTick services at most one unit of work: one replacement order if any
// valid one is queued, else one train inspection. Invalid head entries are
// discarded within the same tick at no quota cost. When neither queue
// yields work and both are empty, the scheduler goes idle.
func (s *Scheduler) OnTick(tick uint64) {
	worked := s.serviceReplacement()
	if !worked {
		worked = s.serviceInspection()
	}
	if !worked && s.replacements.Empty() && s.inspections.Empty() {
		s.disarm()
	}
}

// serviceReplacement pops orders until one is valid and executes it.
// Returns whether a transaction ran (successfully or terminally).
func (s *Scheduler) serviceReplacement() bool {
	ctx := context.Background()
	for {
		order, ok := s.replacements.Pop()
		if !ok {
			return false
		}
		if _, valid := s.world.Unit(order.Unit); !valid {
			// The train changed again before the order was serviced.
			s.discarded.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", "replacement")))
			s.addTotal(func(t *Totals) { t.Discarded++ })
			continue
		}

		newID, err := s.swapper.Replace(order.Unit, order.TargetType)
		s.serviced.Add(ctx, 1)
		s.addTotal(func(t *Totals) { t.Serviced++ })
		switch {
		case err == nil:
			// Explicit feedback edge: the resulting train gets inspected on
			// a later tick, in addition to whatever the synthetic built
			// events enqueued.
			if t, ok := s.world.TrainOf(newID); ok {
				s.EnqueueInspection(t.ID)
			}
		default:
			// Terminal for this order; later entries proceed on later ticks.
			s.log.Warn("replacement failed", "unit", order.Unit,
				"targetType", order.TargetType, "error", err)
		}
		return true
	}
}

// serviceInspection pops trains until one is valid and classifies it.
// Returns whether an inspection ran.
func (s *Scheduler) serviceInspection() bool {
	ctx := context.Background()
	for {
		id, ok := s.inspections.Pop()
		if !ok {
			return false
		}
		if _, valid := s.world.Train(id); !valid {
			s.discarded.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", "inspection")))
			s.addTotal(func(t *Totals) { t.Discarded++ })
			continue
		}

		orders := classifier.Classify(s.world, id, s.table, s.enableSignal)
		s.inspected.Add(ctx, 1)
		s.addTotal(func(t *Totals) { t.Inspected++ })
		if len(orders) > 0 {
			s.log.Info("train needs replacement work", "train", id, "orders", len(orders))
			s.EnqueueOrders(orders)
		}
		return true
	}
}

// SaveTo persists both queues.
func (s *Scheduler) SaveTo(store persist.Store) error {
	return store.SaveQueues(persist.QueueState{
		Replacements: s.replacements.Items(),
		Inspections:  s.inspections.Items(),
	})
}

// RestoreFrom reloads both queues. Absent state restores empty queues.
// Active/idle is recomputed from the restored contents, never persisted.
func (s *Scheduler) RestoreFrom(store persist.Store) error {
	state, found, err := store.LoadQueues()
	if err != nil {
		return fmt.Errorf("loading queue state: %w", err)
	}
	if !found {
		state = persist.QueueState{}
	}
	s.replacements.Restore(state.Replacements)
	s.inspections.Restore(state.Inspections)
	if !s.replacements.Empty() || !s.inspections.Empty() {
		s.arm()
	} else {
		s.disarm()
	}
	return nil
}

func (s *Scheduler) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.world.SetTickHandler(s.OnTick)
}

func (s *Scheduler) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	s.world.ClearTickHandler()
}

func (s *Scheduler) addTotal(f func(*Totals)) {
	s.mu.Lock()
	f(&s.totals)
	s.mu.Unlock()
}
