package core

// TrainID identifies a train. Any topology change (a unit added, removed or
// recoupled) produces a structurally new train with a new ID; the schedule
// and mode of the old train do not carry over automatically.
type TrainID uint64

// StationID identifies a stop in the world. Zero means "no station".
type StationID uint64

// TrainState describes what a train is currently doing.
type TrainState uint8

const (
	TrainMoving TrainState = iota
	TrainWaitStation
	TrainManual
)

func (s TrainState) String() string {
	switch s {
	case TrainMoving:
		return "moving"
	case TrainWaitStation:
		return "wait_station"
	case TrainManual:
		return "manual"
	default:
		return "unknown"
	}
}

// WaitCondition is one departure condition on a schedule stop.
type WaitCondition struct {
	Kind   string `json:"kind"` // "time", "inactivity", "circuit", "full", "empty"
	Ticks  uint32 `json:"ticks,omitempty"`
	Signal string `json:"signal,omitempty"`
	Count  int32  `json:"count,omitempty"`
}

// ScheduleStop is one record in a train's itinerary.
type ScheduleStop struct {
	Station    string          `json:"station"`
	Conditions []WaitCondition `json:"conditions,omitempty"`
}

// Schedule is a train's itinerary. Current indexes into Stops.
type Schedule struct {
	Current int            `json:"current"`
	Stops   []ScheduleStop `json:"stops"`
}

// Empty reports whether the schedule has no stops. The world rejects
// assigning an empty schedule, so callers must check this before writing.
func (s *Schedule) Empty() bool {
	return s == nil || len(s.Stops) == 0
}

// Clone returns a deep copy, nil for nil.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	out := &Schedule{Current: s.Current, Stops: make([]ScheduleStop, len(s.Stops))}
	for i, stop := range s.Stops {
		out.Stops[i] = ScheduleStop{Station: stop.Station}
		if len(stop.Conditions) > 0 {
			out.Stops[i].Conditions = append([]WaitCondition(nil), stop.Conditions...)
		}
	}
	return out
}

// Train is an ordered sequence of coupled units plus itinerary and mode.
type Train struct {
	ID         TrainID
	Units      []UnitID // front to back
	Schedule   *Schedule
	ManualMode bool
	State      TrainState

	// StationID is the stop the train currently occupies, zero if none.
	StationID StationID
}

// ReplacementOrder pairs a unit with the type it should be replaced by.
// An order whose unit is no longer valid when popped is discarded.
type ReplacementOrder struct {
	Unit       UnitID `json:"unit"`
	TargetType string `json:"targetType"`
}
