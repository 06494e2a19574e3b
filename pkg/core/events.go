package core

// EventType enumerates the world events this system reacts to. Handlers are
// registered against these values rather than dispatching on event names.
type EventType uint8

const (
	EventInit EventType = iota
	EventLoad
	EventConfigChanged
	EventTrainCreated
	EventTrainChangedState
	EventUnitBuilt
	EventUnitDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventInit:
		return "init"
	case EventLoad:
		return "load"
	case EventConfigChanged:
		return "config_changed"
	case EventTrainCreated:
		return "train_created"
	case EventTrainChangedState:
		return "train_changed_state"
	case EventUnitBuilt:
		return "unit_built"
	case EventUnitDestroyed:
		return "unit_destroyed"
	default:
		return "unknown"
	}
}

// Event is one world notification. Only the fields relevant to its type are
// populated.
type Event struct {
	Type EventType

	// Train is set for train_created and train_changed_state.
	Train TrainID

	// OldTrains lists the trains consumed by a merge/split that produced
	// Train, for train_created.
	OldTrains []TrainID

	// Unit is set for unit_built and unit_destroyed.
	Unit UnitID

	// Tick is the world tick the event was raised on.
	Tick uint64
}
