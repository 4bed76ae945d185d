// Package engine defines the index engine capability consumed by the
// descriptor index layer: vector accumulation, compilation into a
// search-ready structure, k-nearest search and persistence of the compiled
// structure. The layer above never interprets an engine beyond the
// operations and errors declared here, so alternate engines (a brute-force
// reference implementation, an approximate production engine) can be
// substituted freely.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrEmptyVector is returned when an empty vector is passed to an engine
	// operation.
	ErrEmptyVector = errors.New("engine: empty vector")

	// ErrInvalidK is returned when a search is requested with k < 1.
	ErrInvalidK = errors.New("engine: k must be positive")
)

// ErrDimensionMismatch indicates a vector whose length does not match the
// dimensionality the engine is bound to.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("engine: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrPositionOutOfRange indicates a positional argument outside [0, Count).
type ErrPositionOutOfRange struct {
	Position int
	Count    int
}

func (e *ErrPositionOutOfRange) Error() string {
	return fmt.Sprintf("engine: position %d out of range [0, %d)", e.Position, e.Count)
}

// SearchResult is one ranked hit of a k-nearest search.
type SearchResult struct {
	// Position is the 0-based position of the hit within the index storage.
	Position int

	// Distance is the squared L2 distance between query and hit.
	Distance float32
}

// Builder accumulates vectors prior to compilation.
//
// Builders and indexes assume single-writer, unsynchronized access; callers
// needing concurrent use must guard every call externally.
type Builder interface {
	// Append adds one vector to the accumulation buffer.
	Append(vec []float32) error

	// AppendBatch adds all vectors or none of them.
	AppendBatch(vecs [][]float32) error

	// VectorAt returns the vector stored at pos.
	// The returned slice may alias engine memory; treat it as read-only.
	VectorAt(pos int) ([]float32, error)

	// RemoveAt removes the vector at pos; later positions shift down by one.
	RemoveAt(pos int) error

	// Count returns the number of vectors currently accumulated.
	Count() int

	// SetAnnotation stores an opaque 32-bit value carried by any index built
	// from this builder and persisted with it. The layer above uses it for
	// the descriptor model version.
	SetAnnotation(v uint32)

	// Build compiles the accumulated vectors into a new mutable index.
	// The builder keeps its contents; building is a copy-out operation.
	Build() (MutableIndex, error)
}

// Index is a compiled, search-ready vector collection.
type Index interface {
	// Search returns up to k hits ordered by ascending distance.
	Search(vec []float32, k int) ([]SearchResult, error)

	// VectorAt returns the vector stored at pos.
	// The returned slice may alias engine memory; treat it as read-only.
	VectorAt(pos int) ([]float32, error)

	// Count returns the number of vectors currently indexed.
	Count() int

	// BufSize returns the number of storage slots, including slots of
	// removed vectors that have not been compacted.
	BufSize() int

	// Annotation returns the opaque value set at build time.
	Annotation() uint32

	// SaveDynamic writes the index in the mutable on-disk format.
	SaveDynamic(ctx context.Context, w io.Writer) error

	// SaveDense writes the index in the compact read-only on-disk format.
	// Removed slots are compacted away; positions renumber to live rank.
	SaveDense(ctx context.Context, w io.Writer) error

	// Close releases resources backing the index (e.g. a memory mapping).
	Close() error
}

// MutableIndex is an Index that additionally supports append and removal.
type MutableIndex interface {
	Index

	// Append adds one vector to the index.
	Append(vec []float32) error

	// AppendBatch adds all vectors or none of them.
	AppendBatch(vecs [][]float32) error

	// RemoveAt removes the vector at pos; later positions shift down by one.
	RemoveAt(pos int) error

	// SetAnnotation updates the opaque annotation value.
	SetAnnotation(v uint32)
}

// Engine creates builders and loads previously persisted indexes.
type Engine interface {
	// NewBuilder creates an empty accumulation builder.
	NewBuilder() Builder

	// LoadDynamic reads an index persisted in the dynamic format.
	LoadDynamic(ctx context.Context, r io.Reader) (MutableIndex, error)

	// LoadDense maps an index persisted in the dense format from a file.
	LoadDense(ctx context.Context, path string) (Index, error)

	// LoadDenseBytes opens a dense index over an in-memory or caller-mapped
	// byte buffer. The buffer must stay valid until the index is closed.
	LoadDenseBytes(data []byte) (Index, error)
}
