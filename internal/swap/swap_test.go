package swap

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/internal/world/memory"
	"github.com/trainworks/relink/pkg/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// consist places wagon, loco, wagon at offsets 0, 2, 4 on one track so
// they couple into a single train. Returned front to back: c, b, a.
func consist(t *testing.T, w *memory.Memory) (a, b, c core.UnitID) {
	t.Helper()
	var ok bool
	a, ok = w.CreateUnit(world.CreateSpec{Type: "freight-wagon", Track: "yard", Offset: 0, Force: "player"})
	if !ok {
		t.Fatal("placement refused")
	}
	b, ok = w.CreateUnit(world.CreateSpec{Type: "loco-mk1", Track: "yard", Offset: 2, Force: "player"})
	if !ok {
		t.Fatal("placement refused")
	}
	c, ok = w.CreateUnit(world.CreateSpec{Type: "freight-wagon", Track: "yard", Offset: 4, Force: "player"})
	if !ok {
		t.Fatal("placement refused")
	}
	return a, b, c
}

func members(t *testing.T, w *memory.Memory, id core.UnitID) []core.UnitID {
	t.Helper()
	tr, ok := w.TrainOf(id)
	if !ok {
		t.Fatalf("unit %d has no train", id)
	}
	return tr.Units
}

func sameMembers(got []core.UnitID, want ...core.UnitID) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestReplace_RoundTrip(t *testing.T) {
	w := memory.New()
	a, b, c := consist(t, w)

	w.SetHealth(b, 0.6)
	w.SetLastUser(b, "engineer")
	w.InsertCargo(b, "coal", 12)
	w.SetOccupant(b, "driver-1")

	tr, _ := w.TrainOf(b)
	if err := w.SetSchedule(tr.ID, &core.Schedule{Stops: []core.ScheduleStop{{Station: "Depot"}}}); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	w.SetManualMode(tr.ID, false)

	svc := NewService(w, discardLogger(), nil)
	newID, err := svc.Replace(b, "loco-mk1-mu")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if _, ok := w.Unit(b); ok {
		t.Error("original unit still exists")
	}
	got, ok := w.Unit(newID)
	if !ok {
		t.Fatal("replacement does not exist")
	}
	if got.Type != "loco-mk1-mu" {
		t.Errorf("type: got %q", got.Type)
	}
	if got.Track != "yard" || got.Offset != 2 {
		t.Errorf("placement: got %q/%v", got.Track, got.Offset)
	}
	if got.Health != 0.6 || got.LastUser != "engineer" || got.Cargo["coal"] != 12 || got.Occupant != "driver-1" {
		t.Errorf("state not preserved: %+v", got)
	}

	if !sameMembers(members(t, w, newID), c, newID, a) {
		t.Errorf("consist order: got %v, want [%d %d %d]", members(t, w, newID), c, newID, a)
	}

	newTrain, _ := w.TrainOf(newID)
	if newTrain.Schedule == nil || newTrain.Schedule.Stops[0].Station != "Depot" {
		t.Errorf("schedule not restored: %+v", newTrain.Schedule)
	}
	if newTrain.ManualMode {
		t.Error("operating mode not restored")
	}
}

func TestReplace_CouplingPreserved(t *testing.T) {
	tests := []struct {
		name      string
		loose     []core.End // ends of the middle unit uncoupled beforehand
		wantFront bool       // replacement coupled to the unit ahead
		wantBack  bool       // replacement coupled to the unit behind
	}{
		{"both coupled", nil, true, true},
		{"front loose", []core.End{core.FrontEnd}, false, true},
		{"back loose", []core.End{core.BackEnd}, true, false},
		{"both loose", []core.End{core.FrontEnd, core.BackEnd}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := memory.New()
			a, b, c := consist(t, w)
			for _, end := range tt.loose {
				w.Disconnect(b, end)
			}

			svc := NewService(w, discardLogger(), nil)
			newID, err := svc.Replace(b, "loco-mk1-mu")
			if err != nil {
				t.Fatalf("Replace: %v", err)
			}

			gotFront := sharesTrain(w, newID, c)
			gotBack := sharesTrain(w, newID, a)
			if gotFront != tt.wantFront || gotBack != tt.wantBack {
				t.Errorf("coupling: front=%v back=%v, want front=%v back=%v",
					gotFront, gotBack, tt.wantFront, tt.wantBack)
			}
		})
	}
}

func sharesTrain(w *memory.Memory, x, y core.UnitID) bool {
	tx, okx := w.TrainOf(x)
	ty, oky := w.TrainOf(y)
	return okx && oky && tx.ID == ty.ID
}

func TestReplace_NoScheduleStaysManual(t *testing.T) {
	w := memory.New()
	_, b, _ := consist(t, w)

	svc := NewService(w, discardLogger(), nil)
	newID, err := svc.Replace(b, "loco-mk1-mu")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	tr, _ := w.TrainOf(newID)
	if tr.Schedule != nil {
		t.Errorf("schedule appeared from nowhere: %+v", tr.Schedule)
	}
	if !tr.ManualMode {
		t.Error("train left manual mode without an itinerary")
	}
}

func TestReplace_InvalidUnit(t *testing.T) {
	w := memory.New()
	svc := NewService(w, discardLogger(), nil)
	if _, err := svc.Replace(99, "loco-mk1-mu"); !errors.Is(err, ErrUnitInvalid) {
		t.Errorf("got %v, want ErrUnitInvalid", err)
	}
}

func TestReplace_CreateRefusedIsTerminal(t *testing.T) {
	w := memory.New()
	a, b, c := consist(t, w)

	// Obstruct the spot so the recreate step is refused once the original
	// is gone.
	w.Block("yard", 2)

	var notices []string
	svc := NewService(w, discardLogger(), func(msg string) { notices = append(notices, msg) })

	_, err := svc.Replace(b, "loco-mk1-mu")
	if !errors.Is(err, ErrCreateFailed) {
		t.Fatalf("got %v, want ErrCreateFailed", err)
	}
	if _, ok := w.Unit(b); ok {
		t.Error("original survived a failed replacement")
	}
	if len(notices) == 0 {
		t.Error("operator was not notified")
	}

	// The neighbours carry on as separate trains.
	if sharesTrain(w, a, c) {
		t.Error("severed neighbours ended up coupled across the gap")
	}
}
