// Unit attribute writers used by the snapshot restore path.

package memory

import "github.com/trainworks/relink/pkg/core"

// SetHealth sets a unit's physical condition.
func (w *Memory) SetHealth(id core.UnitID, health float32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return false
	}
	u.Health = health
	return true
}

// SetColor sets a unit's paint color. Nil clears it.
func (w *Memory) SetColor(id core.UnitID, color *core.RGBA) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return false
	}
	if color == nil {
		u.Color = nil
		return true
	}
	c := *color
	u.Color = &c
	return true
}

// SetLastUser sets the last-modified-by marker.
func (w *Memory) SetLastUser(id core.UnitID, user string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return false
	}
	u.LastUser = user
	return true
}

// SetKillCount sets the unit's kill counter.
func (w *Memory) SetKillCount(id core.UnitID, kills uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return false
	}
	u.KillCount = kills
	return true
}

// OrderDeconstruction marks the unit for removal by the given force.
func (w *Memory) OrderDeconstruction(id core.UnitID, force string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok || u.Force != force {
		return false
	}
	u.ToDeconstruct = true
	return true
}

// InsertCargo adds items to the unit's sub-inventory, returning the count
// actually inserted.
func (w *Memory) InsertCargo(id core.UnitID, item string, count uint32) uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok || count == 0 {
		return 0
	}
	if u.Cargo == nil {
		u.Cargo = make(map[string]uint32)
	}
	u.Cargo[item] += count
	return count
}

// InsertEquipment installs one item into the unit's equipment grid.
func (w *Memory) InsertEquipment(id core.UnitID, eq core.GridEquipment) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return false
	}
	u.Grid = append(u.Grid, eq)
	return true
}

// SetBurner replaces the unit's burner fuel state.
func (w *Memory) SetBurner(id core.UnitID, b *core.BurnerState) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return false
	}
	if b == nil {
		u.Burner = nil
		return true
	}
	nb := *b
	if b.Fuel != nil {
		nb.Fuel = make(map[string]uint32, len(b.Fuel))
		for k, v := range b.Fuel {
			nb.Fuel[k] = v
		}
	}
	u.Burner = &nb
	return true
}

// SetOccupant places a crew member in the unit. Fails if the seat is taken
// by someone else.
func (w *Memory) SetOccupant(id core.UnitID, occupant string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[id]
	if !ok {
		return false
	}
	if occupant != "" && u.Occupant != "" && u.Occupant != occupant {
		return false
	}
	u.Occupant = occupant
	return true
}
