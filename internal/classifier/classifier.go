// Package classifier inspects a train's ordered unit sequence and decides
// which units should be replaced. Coordinated (linked) variants are only
// introduced while the train stands at a stop whose enable signal reads
// positive; breaking a linked unit back down to its base type is permitted
// unconditionally.
package classifier

import (
	"github.com/trainworks/relink/internal/pairs"
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/pkg/core"
)

// DefaultEnableSignal is the control signal consulted at the occupied stop.
const DefaultEnableSignal = "relink-enable"

// Classify returns the replacement orders warranted for the train, in
// detection order (front of the train first). A vanished train yields no
// orders; so does an empty pairs table.
func Classify(w world.World, trainID core.TrainID, table *pairs.Table, enableSignal string) []core.ReplacementOrder {
	if enableSignal == "" {
		enableSignal = DefaultEnableSignal
	}
	t, ok := w.Train(trainID)
	if !ok {
		return nil
	}

	units := make([]core.Unit, 0, len(t.Units))
	for _, id := range t.Units {
		if u, ok := w.Unit(id); ok {
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return nil
	}

	linkingAllowed := t.State == core.TrainWaitStation &&
		t.StationID != 0 &&
		w.Signal(t.StationID, enableSignal) > 0

	var orders []core.ReplacementOrder
	paired := make([]bool, len(units))

	// Adjacent-pair scan, front first. A matched pair of base types is an
	// upgrade candidate when linking is allowed; a matched pair of linked
	// types is already correct and is shielded from the downgrade scan.
	for i := 0; i+1 < len(units); i++ {
		if paired[i] || paired[i+1] {
			continue
		}
		a, b := units[i], units[i+1]
		if a.Type != b.Type {
			continue
		}
		if linked, ok := table.LinkedFor(a.Type); ok && linkingAllowed {
			paired[i], paired[i+1] = true, true
			orders = append(orders,
				core.ReplacementOrder{Unit: a.ID, TargetType: linked},
				core.ReplacementOrder{Unit: b.ID, TargetType: linked},
			)
			continue
		}
		if table.IsLinked(a.Type) {
			paired[i], paired[i+1] = true, true
		}
	}

	// Any linked unit left without a partner has lost it and goes back to
	// its base type.
	for i, u := range units {
		if paired[i] {
			continue
		}
		if base, ok := table.BaseFor(u.Type); ok {
			orders = append(orders, core.ReplacementOrder{Unit: u.ID, TargetType: base})
		}
	}
	return orders
}
