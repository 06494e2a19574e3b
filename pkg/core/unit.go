// Package core holds the shared domain model: units, trains, schedules,
// replacement orders, world events and blueprint structures. It has no
// behavior beyond small accessors; every other package depends on it and it
// depends on nothing.
package core

// UnitID identifies a single rolling-stock entity for its lifetime.
// IDs are never reused; a replacement unit always gets a fresh ID.
type UnitID uint64

// End designates one coupling end of a unit.
type End uint8

const (
	FrontEnd End = iota
	BackEnd
)

func (e End) String() string {
	if e == FrontEnd {
		return "front"
	}
	return "back"
}

// RGBA is a unit paint color. Values are 0-255.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// GridEquipment is one item installed in a unit's equipment grid.
type GridEquipment struct {
	Name         string  `json:"name"`
	X            int     `json:"x"`
	Y            int     `json:"y"`
	StoredEnergy float64 `json:"storedEnergy"`
}

// BurnerState is the fuel state of a unit's burner, if it has one.
type BurnerState struct {
	Fuel            map[string]uint32 `json:"fuel"`
	Burning         string            `json:"burning"`
	RemainingEnergy float64           `json:"remainingEnergy"`
}

// Unit is a single rolling-stock entity.
//
// Coupling is expressed negatively: the world couples adjacent units by
// default, so only intentional disconnections are recorded per end.
type Unit struct {
	ID          UnitID
	Type        string
	Track       string
	Offset      float64
	Orientation uint16 // degrees, 0-359
	Force       string
	Health      float32
	Color       *RGBA
	LastUser    string
	KillCount   uint32

	// ToDeconstruct is set when a removal order is pending on the unit.
	ToDeconstruct bool

	// Occupant is the name of the crew member inside, empty if none.
	Occupant string

	// Grid is nil when the unit type has no equipment grid.
	Grid []GridEquipment

	// Cargo is the unit's sub-inventory (ammunition or fuel) by item type.
	Cargo map[string]uint32

	// Burner is nil for units without a fuel burner.
	Burner *BurnerState

	DisconnectedFront bool
	DisconnectedBack  bool
}

// Disconnected reports whether the given end was intentionally uncoupled.
func (u *Unit) Disconnected(end End) bool {
	if end == FrontEnd {
		return u.DisconnectedFront
	}
	return u.DisconnectedBack
}
