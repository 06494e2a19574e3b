// Package swap performs the replacement transaction: destroying one unit
// and recreating it as a functionally equivalent type while preserving
// every piece of state the original held.
//
// The world has no retype-in-place primitive, so the transaction runs
// capture → decouple → destroy → create → recouple → restore → re-announce
// as one non-interruptible sequence within a scheduler tick. The destroy
// and the re-announce both raise world events synchronously; callers must
// tolerate re-entering their enqueue paths while Replace is on the stack.
package swap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/trainworks/relink/internal/snapshot"
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/pkg/core"
)

// ErrUnitInvalid is returned when the unit vanished before the transaction
// captured it. Expected and frequent; callers discard the order silently.
var ErrUnitInvalid = errors.New("unit is no longer valid")

// ErrCreateFailed is returned when the world refuses to create the
// replacement. By then the original is already destroyed, so the failure is
// terminal for that unit: there is no state left to roll back to, and a
// retry would fabricate state that may no longer hold (the spot may now be
// occupied). Reported, not retried.
var ErrCreateFailed = errors.New("replacement unit could not be created")

// Notifier surfaces informational notices to the operator. Never blocking.
type Notifier func(msg string)

// Service executes replacement transactions.
type Service struct {
	world  world.World
	log    *slog.Logger
	notify Notifier
}

// NewService creates a transaction service. A nil notifier discards
// notices.
func NewService(w world.World, log *slog.Logger, notify Notifier) *Service {
	if log == nil {
		log = slog.Default()
	}
	if notify == nil {
		notify = func(string) {}
	}
	return &Service{world: w, log: log, notify: notify}
}

// Replace swaps the unit for one of targetType, preserving its captured
// state and its train's itinerary and mode. Returns the replacement's ID.
//
// The caller guarantees targetType is a valid replacement for the unit's
// current type; Replace does not consult the type-pair table.
func (s *Service) Replace(id core.UnitID, targetType string) (core.UnitID, error) {
	// 1. Capture everything the destroy will take with it.
	bundle, ok := snapshot.Capture(s.world, id)
	if !ok {
		return 0, ErrUnitInvalid
	}

	u, ok := s.world.Unit(id)
	if !ok {
		return 0, ErrUnitInvalid
	}
	s.notify(fmt.Sprintf("replacing unit %d (%s) with %s", id, u.Type, targetType))

	// 2. Decouple both ends unconditionally. The world auto-couples new
	// units to anything adjacent, which is wrong if an end had been
	// intentionally left loose; recording whether each decouple severed a
	// real coupling lets step 5 put the topology back exactly.
	bundle.SeveredBack = s.world.Disconnect(id, core.BackEnd)
	bundle.SeveredFront = s.world.Disconnect(id, core.FrontEnd)

	// 3. Destroy. The destroyed event is announced as part of the destroy
	// so observers holding incidental state update immediately.
	s.world.DestroyUnit(id)

	// 4. Recreate as the target type at the captured placement.
	newID, created := s.world.CreateUnit(world.CreateSpec{
		Type:        targetType,
		Track:       bundle.Track,
		Offset:      bundle.Offset,
		Orientation: bundle.Orientation,
		Force:       bundle.Force,
	})
	if !created {
		s.log.Error("replacement creation refused, original unit is lost",
			"unit", id, "targetType", targetType,
			"track", bundle.Track, "offset", bundle.Offset)
		s.notify(fmt.Sprintf("could not rebuild unit %d as %s", id, targetType))
		return 0, ErrCreateFailed
	}

	// 5. Reverse step 2: ends where no coupling was severed were loose on
	// purpose, so sever the auto-coupling on the new unit there too.
	if !bundle.SeveredBack {
		s.world.Disconnect(newID, core.BackEnd)
	}
	if !bundle.SeveredFront {
		s.world.Disconnect(newID, core.FrontEnd)
	}

	// 6. Restore unit-local state, occupant last.
	snapshot.Apply(s.world, newID, bundle)

	// 7. Re-announce so listeners bound to the destroyed original re-bind.
	s.world.AnnounceBuilt(newID)

	// 8. Restore train-level state on whichever train now owns the
	// replacement.
	if t, ok := s.world.TrainOf(newID); ok {
		if err := snapshot.ApplyTrain(s.world, t.ID, bundle); err != nil {
			s.log.Warn("schedule restore failed", "train", t.ID, "error", err)
		}
	}

	s.log.Debug("unit replaced", "old", id, "new", newID, "targetType", targetType)
	return newID, nil
}
