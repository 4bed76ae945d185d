package faceindex

import "fmt"

// IndexType selects the on-disk index format.
type IndexType string

const (
	// IndexTypeDynamic is the mutable format: it preserves removed storage
	// slots and stays appendable after a save/load cycle.
	IndexTypeDynamic IndexType = "dynamic"

	// IndexTypeDense is the compact read-only format: removed slots are
	// compacted away and the file loads via memory mapping.
	IndexTypeDense IndexType = "dense"
)

// Validate checks that t names a known index type.
func (t IndexType) Validate() error {
	switch t {
	case IndexTypeDynamic, IndexTypeDense:
		return nil
	default:
		return fmt.Errorf("%w: unknown index type %q", ErrInvalidArgument, string(t))
	}
}

// IndexResult is one ranked hit of a descriptor search.
type IndexResult struct {
	// Index is the 0-based position of the matched descriptor.
	Index int

	// Distance is the squared L2 distance between query and match.
	Distance float32

	// Similarity is the match confidence in [0, 1], derived from Distance.
	Similarity float32
}

// AsMap returns the result as a plain map, the shape used when results are
// serialized for transport or logs.
func (r IndexResult) AsMap() map[string]any {
	return map[string]any{
		"index":      r.Index,
		"distance":   r.Distance,
		"similarity": r.Similarity,
	}
}
