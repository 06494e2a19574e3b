// Package persist keeps the two work queues alive across restarts of the
// controlling process. Absent state on load is treated as empty, never as
// an error: a fresh world simply starts with nothing queued.
package persist

import "github.com/trainworks/relink/pkg/core"

// QueueState is the persisted snapshot of both queues.
type QueueState struct {
	Replacements []core.ReplacementOrder `json:"replacements"`
	Inspections  []core.TrainID          `json:"inspections"`
}

// Store is the durable home of process state.
type Store interface {
	SaveQueues(state QueueState) error
	// LoadQueues returns found=false when no state has ever been saved.
	LoadQueues() (state QueueState, found bool, err error)
	Close() error
}
