// Package world defines the surface this system uses to observe and mutate
// the simulated rail world. The world has no "retype in place" primitive;
// replacing a unit is destroy-then-recreate through this interface.
package world

import (
	"errors"

	"github.com/trainworks/relink/pkg/core"
)

// ErrEmptySchedule is returned by SetSchedule when the schedule has no
// stops. The world refuses such writes; callers are expected to skip them.
var ErrEmptySchedule = errors.New("cannot assign an empty schedule")

// ErrTrainInvalid is returned when the referenced train no longer exists.
var ErrTrainInvalid = errors.New("train is no longer valid")

// EventSink receives world events synchronously, on the goroutine that
// caused them. Sinks must only record or enqueue; acting on the world from
// inside a sink re-enters the mutation that raised the event.
type EventSink func(core.Event)

// CreateSpec describes a unit to be created.
type CreateSpec struct {
	Type        string
	Track       string
	Offset      float64
	Orientation uint16
	Force       string
}

// World is the query/mutation surface of the host simulation.
//
// Any unit or train handle may be invalidated by an intervening mutation;
// every operation re-checks validity and reports it rather than panicking.
type World interface {
	// Queries.
	Unit(id core.UnitID) (core.Unit, bool)
	Train(id core.TrainID) (core.Train, bool)
	TrainOf(unit core.UnitID) (core.Train, bool)
	Trains() []core.TrainID
	Signal(station core.StationID, signal string) int

	// Lifecycle. DestroyUnit announces the destroyed event as part of the
	// destroy itself, not deferred. CreateUnit returns false when the world
	// refuses the placement (e.g. the spot is occupied).
	CreateUnit(spec CreateSpec) (core.UnitID, bool)
	DestroyUnit(id core.UnitID) bool
	AnnounceBuilt(id core.UnitID)

	// Coupling. Disconnect reports whether a coupling was actually severed;
	// Connect reports whether one was formed. New units default to coupled
	// with anything adjacent.
	Disconnect(id core.UnitID, end core.End) bool
	Connect(id core.UnitID, end core.End) bool

	// Train-level state.
	SetSchedule(id core.TrainID, s *core.Schedule) error
	SetManualMode(id core.TrainID, manual bool) bool

	// Unit attribute writers used when restoring a replacement.
	SetHealth(id core.UnitID, health float32) bool
	SetColor(id core.UnitID, color *core.RGBA) bool
	SetLastUser(id core.UnitID, user string) bool
	SetKillCount(id core.UnitID, kills uint32) bool
	OrderDeconstruction(id core.UnitID, force string) bool
	InsertCargo(id core.UnitID, item string, count uint32) uint32
	InsertEquipment(id core.UnitID, eq core.GridEquipment) bool
	SetBurner(id core.UnitID, b *core.BurnerState) bool
	SetOccupant(id core.UnitID, occupant string) bool

	// Event and tick plumbing. The tick handler is invoked once per world
	// tick while registered; registration replaces any previous handler.
	SetEventSink(sink EventSink)
	SetTickHandler(h func(tick uint64))
	ClearTickHandler()
}
