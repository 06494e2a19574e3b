// Package memory implements world.World as an in-memory simulation backend.
// It models tracks as one-dimensional lines of units addressed by offset;
// units couple automatically to anything adjacent unless an end has been
// intentionally disconnected. Events are delivered synchronously to the
// registered sink, matching the host's reentrancy model.
package memory

import (
	"sync"

	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/pkg/core"
)

const (
	// couplingRange is the maximum gap between two units that still couples
	// them. Fixed; only the simulator cares about the value.
	couplingRange = 3.0

	// minClearance is the closest a new unit may be placed to an existing
	// one. Placements closer than this are refused.
	minClearance = 1.0
)

type station struct {
	name    string
	signals map[string]int
}

type obstruction struct {
	track  string
	offset float64
}

// Memory is an in-memory world.World implementation.
type Memory struct {
	mu sync.Mutex

	units     map[core.UnitID]*core.Unit
	trains    map[core.TrainID]*core.Train
	unitTrain map[core.UnitID]core.TrainID
	stations  map[core.StationID]*station
	blocked   []obstruction

	nextUnit    core.UnitID
	nextTrain   core.TrainID
	nextStation core.StationID
	tick        uint64

	sink        world.EventSink
	tickHandler func(tick uint64)
}

var _ world.World = (*Memory)(nil)

// New creates an empty world.
func New() *Memory {
	return &Memory{
		units:     make(map[core.UnitID]*core.Unit),
		trains:    make(map[core.TrainID]*core.Train),
		unitTrain: make(map[core.UnitID]core.TrainID),
		stations:  make(map[core.StationID]*station),
	}
}

// Unit returns a copy of the unit, or false if it no longer exists.
func (w *Memory) Unit(id core.UnitID) (core.Unit, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return core.Unit{}, false
	}
	return cloneUnit(u), true
}

// Train returns a copy of the train, or false if it no longer exists.
func (w *Memory) Train(id core.TrainID) (core.Train, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.trains[id]
	if !ok {
		return core.Train{}, false
	}
	return cloneTrain(t), true
}

// TrainOf returns the train the unit currently belongs to.
func (w *Memory) TrainOf(unit core.UnitID) (core.Train, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tid, ok := w.unitTrain[unit]
	if !ok {
		return core.Train{}, false
	}
	t, ok := w.trains[tid]
	if !ok {
		return core.Train{}, false
	}
	return cloneTrain(t), true
}

// Trains lists all current train IDs.
func (w *Memory) Trains() []core.TrainID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.TrainID, 0, len(w.trains))
	for id := range w.trains {
		out = append(out, id)
	}
	return out
}

// Signal reads a control signal value at a station. Unknown stations and
// unset signals read as zero.
func (w *Memory) Signal(st core.StationID, signal string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.stations[st]
	if !ok {
		return 0
	}
	return s.signals[signal]
}

// CreateUnit places a new unit. Returns false when the placement is refused
// because the spot is obstructed or too close to an existing unit.
func (w *Memory) CreateUnit(spec world.CreateSpec) (core.UnitID, bool) {
	w.mu.Lock()
	if !w.placementClear(spec.Track, spec.Offset) {
		w.mu.Unlock()
		return 0, false
	}
	w.nextUnit++
	u := &core.Unit{
		ID:          w.nextUnit,
		Type:        spec.Type,
		Track:       spec.Track,
		Offset:      spec.Offset,
		Orientation: spec.Orientation,
		Force:       spec.Force,
		Health:      1.0,
		Cargo:       make(map[string]uint32),
	}
	w.units[u.ID] = u
	events := append([]core.Event{{Type: core.EventUnitBuilt, Unit: u.ID}}, w.recompute()...)
	w.mu.Unlock()
	w.deliver(events)
	return u.ID, true
}

// DestroyUnit removes a unit, announcing the destroyed event as part of the
// destroy. Returns false if the unit was already gone.
func (w *Memory) DestroyUnit(id core.UnitID) bool {
	w.mu.Lock()
	if _, ok := w.units[id]; !ok {
		w.mu.Unlock()
		return false
	}
	delete(w.units, id)
	delete(w.unitTrain, id)
	events := append([]core.Event{{Type: core.EventUnitDestroyed, Unit: id}}, w.recompute()...)
	w.mu.Unlock()
	w.deliver(events)
	return true
}

// AnnounceBuilt raises a synthetic built event for an existing unit so
// listeners that captured a stale reference re-bind to it.
func (w *Memory) AnnounceBuilt(id core.UnitID) {
	w.mu.Lock()
	_, ok := w.units[id]
	w.mu.Unlock()
	if ok {
		w.deliver([]core.Event{{Type: core.EventUnitBuilt, Unit: id}})
	}
}

// Disconnect uncouples one end of a unit. Reports whether a coupling was
// actually severed; disconnecting an already-loose end reports false.
func (w *Memory) Disconnect(id core.UnitID, end core.End) bool {
	w.mu.Lock()
	u, ok := w.units[id]
	if !ok || u.Disconnected(end) {
		w.mu.Unlock()
		return false
	}
	severed := w.coupledAt(u, end)
	setDisconnected(u, end, true)
	var events []core.Event
	if severed {
		events = w.recompute()
	}
	w.mu.Unlock()
	w.deliver(events)
	return severed
}

// Connect re-allows coupling on one end of a unit. Reports whether a
// coupling was formed as a result.
func (w *Memory) Connect(id core.UnitID, end core.End) bool {
	w.mu.Lock()
	u, ok := w.units[id]
	if !ok || !u.Disconnected(end) {
		w.mu.Unlock()
		return false
	}
	setDisconnected(u, end, false)
	formed := w.coupledAt(u, end)
	var events []core.Event
	if formed {
		events = w.recompute()
	}
	w.mu.Unlock()
	w.deliver(events)
	return formed
}

// SetSchedule assigns a train's itinerary. Empty schedules are refused.
func (w *Memory) SetSchedule(id core.TrainID, s *core.Schedule) error {
	if s.Empty() {
		return world.ErrEmptySchedule
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.trains[id]
	if !ok {
		return world.ErrTrainInvalid
	}
	t.Schedule = s.Clone()
	return nil
}

// SetManualMode flips a train between manual and automatic operation.
func (w *Memory) SetManualMode(id core.TrainID, manual bool) bool {
	w.mu.Lock()
	t, ok := w.trains[id]
	if !ok {
		w.mu.Unlock()
		return false
	}
	t.ManualMode = manual
	switch {
	case manual:
		t.State = core.TrainManual
	case t.StationID != 0:
		t.State = core.TrainWaitStation
	default:
		t.State = core.TrainMoving
	}
	ev := core.Event{Type: core.EventTrainChangedState, Train: id}
	w.mu.Unlock()
	w.deliver([]core.Event{ev})
	return true
}

// SetEventSink registers the synchronous event sink.
func (w *Memory) SetEventSink(sink world.EventSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = sink
}

// SetTickHandler registers the per-tick callback, replacing any previous one.
func (w *Memory) SetTickHandler(h func(tick uint64)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tickHandler = h
}

// ClearTickHandler removes the per-tick callback.
func (w *Memory) ClearTickHandler() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tickHandler = nil
}

// Tick advances the world one tick and invokes the registered tick handler.
func (w *Memory) Tick() {
	w.mu.Lock()
	w.tick++
	tick := w.tick
	h := w.tickHandler
	w.mu.Unlock()
	if h != nil {
		h(tick)
	}
}

// CurrentTick returns the world tick counter.
func (w *Memory) CurrentTick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// TickHandlerSet reports whether a tick handler is currently registered.
func (w *Memory) TickHandlerSet() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tickHandler != nil
}

// AddStation creates a stop with the given name.
func (w *Memory) AddStation(name string) core.StationID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextStation++
	w.stations[w.nextStation] = &station{name: name, signals: make(map[string]int)}
	return w.nextStation
}

// SetSignal sets a control signal value exposed at a station.
func (w *Memory) SetSignal(st core.StationID, signal string, value int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.stations[st]; ok {
		s.signals[signal] = value
	}
}

// HaltAt parks a train at a station in automatic mode, raising the state
// change event.
func (w *Memory) HaltAt(id core.TrainID, st core.StationID) bool {
	w.mu.Lock()
	t, ok := w.trains[id]
	if !ok {
		w.mu.Unlock()
		return false
	}
	t.StationID = st
	t.ManualMode = false
	t.State = core.TrainWaitStation
	ev := core.Event{Type: core.EventTrainChangedState, Train: id}
	w.mu.Unlock()
	w.deliver([]core.Event{ev})
	return true
}

// Block marks a spot as obstructed so unit creation there is refused.
func (w *Memory) Block(track string, offset float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocked = append(w.blocked, obstruction{track: track, offset: offset})
}

func (w *Memory) deliver(events []core.Event) {
	if len(events) == 0 {
		return
	}
	w.mu.Lock()
	sink := w.sink
	tick := w.tick
	w.mu.Unlock()
	if sink == nil {
		return
	}
	for _, ev := range events {
		ev.Tick = tick
		sink(ev)
	}
}

func (w *Memory) placementClear(track string, offset float64) bool {
	for _, b := range w.blocked {
		if b.track == track && absDiff(b.offset, offset) < minClearance {
			return false
		}
	}
	for _, u := range w.units {
		if u.Track == track && absDiff(u.Offset, offset) < minClearance {
			return false
		}
	}
	return true
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func setDisconnected(u *core.Unit, end core.End, v bool) {
	if end == core.FrontEnd {
		u.DisconnectedFront = v
	} else {
		u.DisconnectedBack = v
	}
}

func cloneUnit(u *core.Unit) core.Unit {
	out := *u
	if u.Color != nil {
		c := *u.Color
		out.Color = &c
	}
	if u.Grid != nil {
		out.Grid = append([]core.GridEquipment(nil), u.Grid...)
	}
	if u.Cargo != nil {
		out.Cargo = make(map[string]uint32, len(u.Cargo))
		for k, v := range u.Cargo {
			out.Cargo[k] = v
		}
	}
	if u.Burner != nil {
		b := *u.Burner
		if u.Burner.Fuel != nil {
			b.Fuel = make(map[string]uint32, len(u.Burner.Fuel))
			for k, v := range u.Burner.Fuel {
				b.Fuel[k] = v
			}
		}
		out.Burner = &b
	}
	return out
}

func cloneTrain(t *core.Train) core.Train {
	out := *t
	out.Units = append([]core.UnitID(nil), t.Units...)
	out.Schedule = t.Schedule.Clone()
	return out
}
