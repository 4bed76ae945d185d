// Package descriptor defines the face descriptor value types consumed by the
// index layer: a fixed-length float32 feature vector tagged with the version
// of the extraction model that produced it, and an ordered batch of such
// vectors sharing one version.
package descriptor

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrEmptyData is returned when a descriptor is constructed from an empty vector.
	ErrEmptyData = errors.New("descriptor: empty data")

	// ErrEmptyBatch is returned when a batch is constructed without descriptors.
	ErrEmptyBatch = errors.New("descriptor: empty batch")
)

// ErrMixedVersions indicates that descriptors of different versions were
// combined into one batch.
type ErrMixedVersions struct {
	Expected int
	Actual   int
}

func (e *ErrMixedVersions) Error() string {
	return fmt.Sprintf("descriptor: mixed versions in batch: expected %d, got %d", e.Expected, e.Actual)
}

// Descriptor is an immutable fixed-length feature vector plus the version of
// the model that produced it. The zero value is invalid; use New.
type Descriptor struct {
	version int
	data    []float32
}

// New creates a Descriptor from a copy of data.
func New(version int, data []float32) (Descriptor, error) {
	if len(data) == 0 {
		return Descriptor{}, ErrEmptyData
	}
	return Descriptor{
		version: version,
		data:    slices.Clone(data),
	}, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(version int, data []float32) Descriptor {
	d, err := New(version, data)
	if err != nil {
		panic(err)
	}
	return d
}

// Version returns the extraction model version.
func (d Descriptor) Version() int { return d.version }

// Dimension returns the vector length.
func (d Descriptor) Dimension() int { return len(d.data) }

// Data returns a copy of the vector.
func (d Descriptor) Data() []float32 { return slices.Clone(d.data) }

// Vector returns the underlying vector without copying.
// Callers must treat the returned slice as read-only.
func (d Descriptor) Vector() []float32 { return d.data }

// Batch is an ordered sequence of descriptors sharing one version.
// Its length is fixed at construction.
type Batch struct {
	version int
	items   []Descriptor
}

// NewBatch creates a batch from the given descriptors. All descriptors must
// share one version; the batch version is taken from the first element.
func NewBatch(descriptors ...Descriptor) (*Batch, error) {
	if len(descriptors) == 0 {
		return nil, ErrEmptyBatch
	}

	version := descriptors[0].Version()
	for _, d := range descriptors[1:] {
		if d.Version() != version {
			return nil, &ErrMixedVersions{Expected: version, Actual: d.Version()}
		}
	}

	return &Batch{
		version: version,
		items:   slices.Clone(descriptors),
	}, nil
}

// Version returns the shared version of all descriptors in the batch.
func (b *Batch) Version() int { return b.version }

// Len returns the number of descriptors in the batch.
func (b *Batch) Len() int { return len(b.items) }

// At returns the descriptor at position i.
func (b *Batch) At(i int) Descriptor { return b.items[i] }

// Vectors returns the raw vectors of all descriptors in batch order.
// The inner slices alias descriptor memory and must be treated as read-only.
func (b *Batch) Vectors() [][]float32 {
	out := make([][]float32, len(b.items))
	for i, d := range b.items {
		out[i] = d.Vector()
	}
	return out
}
