// Package blueprint keeps linked unit types out of externally supplied
// records. Linked variants exist only as live replacements; a blueprint or
// a pipette request must always reference the base type.
package blueprint

import (
	"github.com/trainworks/relink/internal/pairs"
	"github.com/trainworks/relink/pkg/core"
)

// Sanitize rewrites every linked-type reference in the blueprint back to
// its base type, entities and icons alike, and returns the number of
// references rewritten. Unrelated entries are untouched. Pure: no queue
// interaction.
func Sanitize(bp *core.Blueprint, table *pairs.Table) int {
	if bp == nil {
		return 0
	}
	rewritten := 0
	for i := range bp.Entities {
		if base, ok := table.BaseFor(bp.Entities[i].Name); ok {
			bp.Entities[i].Name = base
			rewritten++
		}
	}
	for i := range bp.Icons {
		if base, ok := table.BaseFor(bp.Icons[i].Signal); ok {
			bp.Icons[i].Signal = base
			rewritten++
		}
	}
	return rewritten
}

// PipetteSubstitute returns the base item to hand out for a quick-select
// request. Requests for anything but a linked type come back unchanged.
func PipetteSubstitute(item string, table *pairs.Table) string {
	if base, ok := table.BaseFor(item); ok {
		return base
	}
	return item
}
