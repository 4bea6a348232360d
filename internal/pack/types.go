// Package pack stores generated texture maps in a single SQLite database.
package pack

import "errors"

// ErrNotFound is returned when a pack has no map for the requested source and kind.
var ErrNotFound = errors.New("map not found")

// Metadata contains pack-level metadata fields.
type Metadata struct {
	Name        string // Human-readable pack identifier
	Description string
	Version     string
	Params      string // Generation parameters, free-form
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if m.Params != "" {
		result["params"] = m.Params
	}

	return result
}

// Entry is one encoded map. Source is the base name of the texture it was
// generated from; Kind is the map type (normal, spec, displace, occlusion).
type Entry struct {
	Source string
	Kind   string
	Format string // Encoding of Data (png, jpeg, tiff, bmp, webp)
	Width  int
	Height int
	Data   []byte
}
