package core

// BlueprintEntity is one planned unit in a blueprint record.
type BlueprintEntity struct {
	Name        string  `json:"name"`
	Track       string  `json:"track,omitempty"`
	Offset      float64 `json:"offset,omitempty"`
	Orientation uint16  `json:"orientation,omitempty"`
}

// BlueprintIcon is one icon slot on a blueprint.
type BlueprintIcon struct {
	Index  int    `json:"index"`
	Signal string `json:"signal"`
}

// Blueprint is an externally supplied construction plan. Linked unit types
// must never appear in one; sanitization rewrites them to their base types.
type Blueprint struct {
	Label    string            `json:"label,omitempty"`
	Entities []BlueprintEntity `json:"entities"`
	Icons    []BlueprintIcon   `json:"icons,omitempty"`
}
