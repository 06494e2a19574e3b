package scheduler_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/trainworks/relink/internal/classifier"
	"github.com/trainworks/relink/internal/dispatcher"
	"github.com/trainworks/relink/internal/handlers"
	"github.com/trainworks/relink/internal/pairs"
	"github.com/trainworks/relink/internal/persist"
	"github.com/trainworks/relink/internal/scheduler"
	"github.com/trainworks/relink/internal/swap"
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/internal/world/memory"
	"github.com/trainworks/relink/pkg/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopDispatchLogger struct{}

func (nopDispatchLogger) Debug(string, ...any) {}
func (nopDispatchLogger) Info(string, ...any)  {}
func (nopDispatchLogger) Error(string, ...any) {}

func newScheduler(t *testing.T, w *memory.Memory, table *pairs.Table) *scheduler.Scheduler {
	t.Helper()
	log := discardLogger()
	svc := swap.NewService(w, log, nil)
	s, err := scheduler.New(w, svc, table, "", log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// loneUnit places a unit far from everything else so it forms its own
// train.
func loneUnit(t *testing.T, w *memory.Memory, typ string, offset float64) core.UnitID {
	t.Helper()
	id, ok := w.CreateUnit(world.CreateSpec{Type: typ, Track: "yard", Offset: offset, Force: "player"})
	if !ok {
		t.Fatalf("placement refused at %v", offset)
	}
	return id
}

func TestOnePerTickFIFO(t *testing.T) {
	w := memory.New()
	first := loneUnit(t, w, "loco-mk1", 0)
	second := loneUnit(t, w, "loco-mk1", 100)

	s := newScheduler(t, w, pairs.NewTable())
	s.EnqueueOrders([]core.ReplacementOrder{
		{Unit: first, TargetType: "loco-mk1-mu"},
		{Unit: second, TargetType: "loco-mk1-mu"},
	})
	if !s.Active() || !w.TickHandlerSet() {
		t.Fatal("enqueue did not arm the tick subscription")
	}

	w.Tick()
	if _, ok := w.Unit(first); ok {
		t.Error("first order not serviced on the first tick")
	}
	if u, ok := w.Unit(second); !ok || u.Type != "loco-mk1" {
		t.Error("second order serviced ahead of its turn")
	}
	if got := s.TotalCounts().Serviced; got != 1 {
		t.Errorf("serviced after one tick: got %d, want 1", got)
	}

	w.Tick()
	if _, ok := w.Unit(second); ok {
		t.Error("second order not serviced on the second tick")
	}
	if got := s.TotalCounts().Serviced; got != 2 {
		t.Errorf("serviced after two ticks: got %d, want 2", got)
	}
}

func TestInvalidHeadDiscardedFreeOfQuota(t *testing.T) {
	w := memory.New()
	valid := loneUnit(t, w, "loco-mk1", 0)

	s := newScheduler(t, w, pairs.NewTable())
	s.EnqueueOrders([]core.ReplacementOrder{
		{Unit: 999, TargetType: "loco-mk1-mu"}, // vanished before service
		{Unit: valid, TargetType: "loco-mk1-mu"},
	})

	w.Tick()
	if _, ok := w.Unit(valid); ok {
		t.Error("valid order behind an invalid head was not serviced in the same tick")
	}
	totals := s.TotalCounts()
	if totals.Discarded != 1 || totals.Serviced != 1 {
		t.Errorf("totals: got %+v, want 1 discarded and 1 serviced", totals)
	}
}

func TestReplacementsBeforeInspections(t *testing.T) {
	w := memory.New()
	unit := loneUnit(t, w, "loco-mk1", 0)
	other := loneUnit(t, w, "freight-wagon", 100)
	tr, _ := w.TrainOf(other)

	s := newScheduler(t, w, pairs.NewTable())
	s.EnqueueInspection(tr.ID)
	s.EnqueueOrders([]core.ReplacementOrder{{Unit: unit, TargetType: "loco-mk1-mu"}})

	w.Tick()
	if _, ok := w.Unit(unit); ok {
		t.Error("queued replacement lost priority to an inspection")
	}
	if _, insp := s.QueueLengths(); insp != 2 {
		// The original inspection plus the follow-up of the replacement.
		t.Errorf("inspection queue: got %d entries, want 2", insp)
	}
	if s.TotalCounts().Inspected != 0 {
		t.Error("an inspection ran in a tick that serviced a replacement")
	}
}

func TestIdleWhenDrained(t *testing.T) {
	w := memory.New()
	unit := loneUnit(t, w, "loco-mk1", 0)

	s := newScheduler(t, w, pairs.NewTable())
	s.EnqueueOrders([]core.ReplacementOrder{{Unit: unit, TargetType: "loco-mk1-mu"}})

	for i := 0; i < 10 && s.Active(); i++ {
		w.Tick()
	}
	if s.Active() {
		t.Fatal("scheduler never went idle")
	}
	if w.TickHandlerSet() {
		t.Error("idle scheduler left its tick handler registered")
	}

	tickBefore := w.CurrentTick()
	w.Tick()
	if w.CurrentTick() != tickBefore+1 {
		t.Fatal("world tick stalled")
	}
	if s.TotalCounts().Serviced != 1 {
		t.Errorf("serviced: got %d, want exactly 1", s.TotalCounts().Serviced)
	}
}

func TestSaveRestore(t *testing.T) {
	w := memory.New()
	unit := loneUnit(t, w, "loco-mk1", 0)
	tr, _ := w.TrainOf(unit)

	s := newScheduler(t, w, pairs.NewTable())
	s.EnqueueOrders([]core.ReplacementOrder{{Unit: unit, TargetType: "loco-mk1-mu"}})
	s.EnqueueInspection(tr.ID)

	store := persist.NewMemoryStore()
	if err := s.SaveTo(store); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	restored := newScheduler(t, w, pairs.NewTable())
	if restored.Active() {
		t.Fatal("fresh scheduler started armed")
	}
	if err := restored.RestoreFrom(store); err != nil {
		t.Fatalf("RestoreFrom: %v", err)
	}
	repl, insp := restored.QueueLengths()
	if repl != 1 || insp != 1 {
		t.Errorf("queue lengths after restore: got %d/%d, want 1/1", repl, insp)
	}
	if !restored.Active() || !w.TickHandlerSet() {
		t.Error("restore of pending work did not arm the scheduler")
	}

	empty := newScheduler(t, w, pairs.NewTable())
	if err := empty.RestoreFrom(persist.NewMemoryStore()); err != nil {
		t.Fatalf("RestoreFrom empty store: %v", err)
	}
	if empty.Active() {
		t.Error("restore of absent state armed the scheduler")
	}
}

// TestUpgradeLoop runs the whole pipeline: a halted train with two
// adjacent base locomotives at an enabled stop gets both replaced with the
// coordinated variant, keeps its itinerary, and the system returns to
// idle.
func TestUpgradeLoop(t *testing.T) {
	w := memory.New()
	log := discardLogger()

	table := pairs.NewTable()
	s := newScheduler(t, w, table)

	d, err := dispatcher.New(nopDispatchLogger{})
	if err != nil {
		t.Fatalf("dispatcher.New: %v", err)
	}
	h := handlers.NewService(handlers.Dependencies{
		World:     w,
		Table:     table,
		Scheduler: s,
		Logger:    log,
		PairsSource: func() []pairs.Pair {
			return []pairs.Pair{{Base: "loco-mk1", Linked: "loco-mk1-mu"}}
		},
	})
	h.RegisterAll(d)
	w.SetEventSink(func(e core.Event) { d.Dispatch(e) })

	if err := d.Dispatch(core.Event{Type: core.EventInit}); err != nil {
		t.Fatalf("init: %v", err)
	}

	wagon, _ := w.CreateUnit(world.CreateSpec{Type: "freight-wagon", Track: "main", Offset: 0, Force: "player"})
	locoB, _ := w.CreateUnit(world.CreateSpec{Type: "loco-mk1", Track: "main", Offset: 2, Force: "player"})
	locoA, _ := w.CreateUnit(world.CreateSpec{Type: "loco-mk1", Track: "main", Offset: 4, Force: "player"})

	tr, _ := w.TrainOf(locoA)
	if err := w.SetSchedule(tr.ID, &core.Schedule{Stops: []core.ScheduleStop{{Station: "Depot"}}}); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	st := w.AddStation("Depot")
	w.SetSignal(st, classifier.DefaultEnableSignal, 1)
	w.HaltAt(tr.ID, st)

	if !s.Active() {
		t.Fatal("halting at the stop queued no work")
	}
	for i := 0; i < 50 && s.Active(); i++ {
		w.Tick()
	}
	if s.Active() {
		t.Fatal("system never returned to idle")
	}

	for _, old := range []core.UnitID{locoA, locoB} {
		if _, ok := w.Unit(old); ok {
			t.Errorf("base locomotive %d was not replaced", old)
		}
	}
	final, ok := w.TrainOf(wagon)
	if !ok {
		t.Fatal("wagon lost its train")
	}
	if len(final.Units) != 3 {
		t.Fatalf("final consist has %d units, want 3", len(final.Units))
	}
	types := make([]string, len(final.Units))
	for i, id := range final.Units {
		u, ok := w.Unit(id)
		if !ok {
			t.Fatalf("final consist references missing unit %d", id)
		}
		types[i] = u.Type
	}
	want := []string{"loco-mk1-mu", "loco-mk1-mu", "freight-wagon"}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("final consist types: got %v, want %v", types, want)
			break
		}
	}
	if final.Schedule == nil || final.Schedule.Stops[0].Station != "Depot" {
		t.Errorf("itinerary lost across replacement: %+v", final.Schedule)
	}
	if s.TotalCounts().Serviced != 2 {
		t.Errorf("serviced: got %d, want 2", s.TotalCounts().Serviced)
	}
}
