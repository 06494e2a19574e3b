package classifier

import (
	"testing"

	"github.com/trainworks/relink/internal/pairs"
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/internal/world/memory"
	"github.com/trainworks/relink/pkg/core"
)

func locoTable(t *testing.T) *pairs.Table {
	t.Helper()
	tbl := pairs.NewTable()
	tbl.Rebuild([]pairs.Pair{{Base: "loco-mk1", Linked: "loco-mk1-mu"}})
	return tbl
}

// place lines up the given types front to back on one track and returns
// their IDs in the same order.
func place(t *testing.T, w *memory.Memory, types ...string) []core.UnitID {
	t.Helper()
	ids := make([]core.UnitID, len(types))
	// Front of the train is the highest offset, so the first listed type
	// gets the largest one.
	for i, typ := range types {
		offset := float64(2 * (len(types) - 1 - i))
		id, ok := w.CreateUnit(world.CreateSpec{Type: typ, Track: "yard", Offset: offset, Force: "player"})
		if !ok {
			t.Fatalf("placement refused for %s at %v", typ, offset)
		}
		ids[i] = id
	}
	return ids
}

func haltAtEnabledStop(t *testing.T, w *memory.Memory, unit core.UnitID, enable int) core.TrainID {
	t.Helper()
	st := w.AddStation("Depot")
	w.SetSignal(st, DefaultEnableSignal, enable)
	tr, ok := w.TrainOf(unit)
	if !ok {
		t.Fatal("unit has no train")
	}
	w.HaltAt(tr.ID, st)
	return tr.ID
}

func TestClassify_UpgradePairAtEnabledStop(t *testing.T) {
	w := memory.New()
	ids := place(t, w, "loco-mk1", "loco-mk1", "freight-wagon")
	trainID := haltAtEnabledStop(t, w, ids[0], 1)

	orders := Classify(w, trainID, locoTable(t), "")
	want := []core.ReplacementOrder{
		{Unit: ids[0], TargetType: "loco-mk1-mu"},
		{Unit: ids[1], TargetType: "loco-mk1-mu"},
	}
	if len(orders) != len(want) {
		t.Fatalf("got %d orders %v, want %d", len(orders), orders, len(want))
	}
	for i := range want {
		if orders[i] != want[i] {
			t.Errorf("order %d: got %+v, want %+v", i, orders[i], want[i])
		}
	}
}

func TestClassify_NoUpgradeWithoutGate(t *testing.T) {
	base := []string{"loco-mk1", "loco-mk1"}
	tests := []struct {
		name string
		prep func(t *testing.T, w *memory.Memory, ids []core.UnitID) core.TrainID
	}{
		{
			"moving", func(t *testing.T, w *memory.Memory, ids []core.UnitID) core.TrainID {
				tr, _ := w.TrainOf(ids[0])
				w.SetSchedule(tr.ID, &core.Schedule{Stops: []core.ScheduleStop{{Station: "Depot"}}})
				w.SetManualMode(tr.ID, false)
				return tr.ID
			},
		},
		{
			"manual", func(t *testing.T, w *memory.Memory, ids []core.UnitID) core.TrainID {
				tr, _ := w.TrainOf(ids[0])
				return tr.ID
			},
		},
		{
			"signal unset", func(t *testing.T, w *memory.Memory, ids []core.UnitID) core.TrainID {
				return haltAtEnabledStop(t, w, ids[0], 0)
			},
		},
		{
			"signal negative", func(t *testing.T, w *memory.Memory, ids []core.UnitID) core.TrainID {
				return haltAtEnabledStop(t, w, ids[0], -1)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := memory.New()
			ids := place(t, w, base...)
			trainID := tt.prep(t, w, ids)
			if orders := Classify(w, trainID, locoTable(t), ""); len(orders) != 0 {
				t.Errorf("got orders %v, want none", orders)
			}
		})
	}
}

func TestClassify_LoneLinkedUnitDowngrades(t *testing.T) {
	w := memory.New()
	ids := place(t, w, "freight-wagon", "loco-mk1-mu")
	tr, _ := w.TrainOf(ids[0])

	// No stop, no signal; breaking a linked unit down is always allowed.
	orders := Classify(w, tr.ID, locoTable(t), "")
	if len(orders) != 1 || orders[0].Unit != ids[1] || orders[0].TargetType != "loco-mk1" {
		t.Errorf("got %v, want one downgrade of unit %d to loco-mk1", orders, ids[1])
	}
}

func TestClassify_MatchedLinkedPairShielded(t *testing.T) {
	w := memory.New()
	ids := place(t, w, "loco-mk1-mu", "loco-mk1-mu", "freight-wagon")
	tr, _ := w.TrainOf(ids[0])

	if orders := Classify(w, tr.ID, locoTable(t), ""); len(orders) != 0 {
		t.Errorf("matched linked pair produced orders: %v", orders)
	}
}

func TestClassify_ThreeLinkedLeavesOneDowngrade(t *testing.T) {
	w := memory.New()
	ids := place(t, w, "loco-mk1-mu", "loco-mk1-mu", "loco-mk1-mu")
	tr, _ := w.TrainOf(ids[0])

	orders := Classify(w, tr.ID, locoTable(t), "")
	if len(orders) != 1 || orders[0].Unit != ids[2] || orders[0].TargetType != "loco-mk1" {
		t.Errorf("got %v, want one downgrade of the trailing unit %d", orders, ids[2])
	}
}

func TestClassify_EmptyTable(t *testing.T) {
	w := memory.New()
	ids := place(t, w, "loco-mk1", "loco-mk1")
	trainID := haltAtEnabledStop(t, w, ids[0], 1)

	if orders := Classify(w, trainID, pairs.NewTable(), ""); len(orders) != 0 {
		t.Errorf("empty table produced orders: %v", orders)
	}
}

func TestClassify_VanishedTrain(t *testing.T) {
	w := memory.New()
	if orders := Classify(w, 7, locoTable(t), ""); orders != nil {
		t.Errorf("got %v for a train that does not exist", orders)
	}
}
