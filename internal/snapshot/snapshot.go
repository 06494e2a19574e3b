// Package snapshot captures a fixed set of unit and train attributes before
// a unit is destroyed and reapplies them to its freshly created
// replacement. Optional attributes absent from a bundle are skipped on
// apply; no error is raised for them.
package snapshot

import (
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/pkg/core"
)

// Bundle is everything a replacement must inherit from the unit it
// replaces, except identity and type.
type Bundle struct {
	Track       string
	Offset      float64
	Orientation uint16
	Force       string

	Health        float32
	Color         *core.RGBA
	LastUser      string
	KillCount     uint32
	ToDeconstruct bool
	Occupant      string
	Grid          []core.GridEquipment
	Cargo         map[string]uint32
	Burner        *core.BurnerState

	// Severed records, per end, whether the pre-destroy decouple actually
	// severed a coupling. Ends where it did not were intentionally loose
	// and must be disconnected again on the replacement.
	SeveredFront bool
	SeveredBack  bool

	// Train-level state, a casualty of the destroy step.
	Schedule   *core.Schedule
	ManualMode bool
}

// Capture reads the unit's attribute set and its train's itinerary and mode
// without mutating anything. Returns false if the unit is no longer valid.
func Capture(w world.World, id core.UnitID) (Bundle, bool) {
	u, ok := w.Unit(id)
	if !ok {
		return Bundle{}, false
	}
	b := Bundle{
		Track:         u.Track,
		Offset:        u.Offset,
		Orientation:   u.Orientation,
		Force:         u.Force,
		Health:        u.Health,
		Color:         u.Color,
		LastUser:      u.LastUser,
		KillCount:     u.KillCount,
		ToDeconstruct: u.ToDeconstruct,
		Occupant:      u.Occupant,
		Grid:          u.Grid,
		Cargo:         u.Cargo,
		Burner:        u.Burner,
	}
	if t, ok := w.TrainOf(id); ok {
		b.Schedule = t.Schedule.Clone()
		b.ManualMode = t.ManualMode
	}
	return b, true
}

// Apply writes the captured unit attributes onto a different, freshly
// created unit. The occupant is restored last so earlier mutations cannot
// displace it.
func Apply(w world.World, id core.UnitID, b Bundle) {
	w.SetLastUser(id, b.LastUser)
	if b.Color != nil {
		w.SetColor(id, b.Color)
	}
	w.SetHealth(id, b.Health)
	w.SetKillCount(id, b.KillCount)
	if b.ToDeconstruct {
		w.OrderDeconstruction(id, b.Force)
	}
	for item, count := range b.Cargo {
		w.InsertCargo(id, item, count)
	}
	for _, eq := range b.Grid {
		w.InsertEquipment(id, eq)
	}
	if b.Burner != nil {
		w.SetBurner(id, b.Burner)
	}
	if b.Occupant != "" {
		w.SetOccupant(id, b.Occupant)
	}
}

// ApplyTrain restores the captured itinerary and operating mode onto the
// train now owning the replacement. An empty itinerary is never assigned
// (the world rejects it); the mode is restored regardless.
func ApplyTrain(w world.World, id core.TrainID, b Bundle) error {
	if !b.Schedule.Empty() {
		if err := w.SetSchedule(id, b.Schedule); err != nil {
			return err
		}
	}
	w.SetManualMode(id, b.ManualMode)
	return nil
}
