// Coupling topology. Trains are derived from unit positions and the
// per-end disconnection flags: consecutive units on a track couple when the
// gap between them is within couplingRange and neither facing end has been
// disconnected. Units face increasing offset, so the front-most unit of a
// chain is the one with the highest offset.

package memory

import (
	"sort"

	"github.com/trainworks/relink/pkg/core"
)

// coupledAt reports whether the given end of u is coupled to a neighbor.
// Caller holds w.mu.
func (w *Memory) coupledAt(u *core.Unit, end core.End) bool {
	if u.Disconnected(end) {
		return false
	}
	n := w.neighborAt(u, end)
	if n == nil {
		return false
	}
	return !n.Disconnected(opposite(end))
}

// neighborAt returns the nearest unit within coupling range on the given
// end of u, or nil. Caller holds w.mu.
func (w *Memory) neighborAt(u *core.Unit, end core.End) *core.Unit {
	var best *core.Unit
	for _, o := range w.units {
		if o.ID == u.ID || o.Track != u.Track {
			continue
		}
		if end == core.FrontEnd {
			if o.Offset > u.Offset && o.Offset-u.Offset <= couplingRange {
				if best == nil || o.Offset < best.Offset {
					best = o
				}
			}
		} else {
			if o.Offset < u.Offset && u.Offset-o.Offset <= couplingRange {
				if best == nil || o.Offset > best.Offset {
					best = o
				}
			}
		}
	}
	return best
}

func opposite(end core.End) core.End {
	if end == core.FrontEnd {
		return core.BackEnd
	}
	return core.FrontEnd
}

// recompute rebuilds the train set from coupling topology. Chains that match
// an existing train exactly keep it; any other chain becomes a structurally
// new train (fresh ID, no schedule, manual mode) and raises train_created
// naming the trains it consumed. Caller holds w.mu; events are delivered by
// the caller after unlocking.
func (w *Memory) recompute() []core.Event {
	keep := make(map[core.TrainID]bool)
	var events []core.Event

	for _, chain := range w.chains() {
		if tid, ok := w.findTrain(chain); ok {
			keep[tid] = true
			continue
		}
		oldSet := make(map[core.TrainID]bool)
		for _, uid := range chain {
			if tid, ok := w.unitTrain[uid]; ok {
				oldSet[tid] = true
			}
		}
		w.nextTrain++
		t := &core.Train{
			ID:         w.nextTrain,
			Units:      chain,
			ManualMode: true,
			State:      core.TrainManual,
		}
		w.trains[t.ID] = t
		for _, uid := range chain {
			w.unitTrain[uid] = t.ID
		}
		keep[t.ID] = true

		ev := core.Event{Type: core.EventTrainCreated, Train: t.ID}
		for tid := range oldSet {
			ev.OldTrains = append(ev.OldTrains, tid)
		}
		events = append(events, ev)
	}

	for tid := range w.trains {
		if !keep[tid] {
			delete(w.trains, tid)
		}
	}
	return events
}

// chains partitions all units into coupled chains, each ordered front to
// back. Caller holds w.mu.
func (w *Memory) chains() [][]core.UnitID {
	byTrack := make(map[string][]*core.Unit)
	for _, u := range w.units {
		byTrack[u.Track] = append(byTrack[u.Track], u)
	}

	var out [][]core.UnitID
	for _, units := range byTrack {
		sort.Slice(units, func(i, j int) bool { return units[i].Offset < units[j].Offset })
		var chain []*core.Unit
		flush := func() {
			if len(chain) == 0 {
				return
			}
			ids := make([]core.UnitID, len(chain))
			for i, u := range chain {
				ids[len(chain)-1-i] = u.ID // front-most unit has the highest offset
			}
			out = append(out, ids)
			chain = nil
		}
		for _, u := range units {
			if len(chain) > 0 {
				prev := chain[len(chain)-1]
				linked := u.Offset-prev.Offset <= couplingRange &&
					!prev.DisconnectedFront && !u.DisconnectedBack
				if !linked {
					flush()
				}
			}
			chain = append(chain, u)
		}
		flush()
	}
	return out
}

// findTrain returns the existing train whose unit sequence equals chain.
// Caller holds w.mu.
func (w *Memory) findTrain(chain []core.UnitID) (core.TrainID, bool) {
	tid, ok := w.unitTrain[chain[0]]
	if !ok {
		return 0, false
	}
	t, ok := w.trains[tid]
	if !ok || len(t.Units) != len(chain) {
		return 0, false
	}
	for i, uid := range chain {
		if t.Units[i] != uid {
			return 0, false
		}
	}
	return tid, true
}
