package faceindex

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/faceindex/descriptor"
	"github.com/hupe1980/faceindex/distance"
	"github.com/hupe1980/faceindex/engine"
	"github.com/hupe1980/faceindex/persistence"
	"github.com/hupe1980/faceindex/resource"
)

// Index is the operation set shared by DynamicIndex and DenseIndex.
// Operations a concrete type cannot support return ErrUnsupportedOperation.
type Index interface {
	// Search returns up to maxCount matches ordered by descending similarity.
	Search(query descriptor.Descriptor, maxCount int) ([]IndexResult, error)

	// GetDescriptor returns the descriptor stored at pos.
	GetDescriptor(pos int, template descriptor.Descriptor) (descriptor.Descriptor, error)

	// RemoveAt removes the descriptor at pos; later positions shift down by one.
	RemoveAt(pos int) error

	// DescriptorsCount returns the number of searchable descriptors.
	DescriptorsCount() int

	// BufSize returns the number of storage slots, including slots of removed
	// descriptors that have not been compacted.
	BufSize() int

	// Version returns the descriptor model version the index is bound to.
	Version() int

	// Save persists the index at path in the given format.
	Save(path string, kind IndexType) error

	// Close releases resources backing the index.
	Close() error
}

// indexSaver is implemented by both index types for publication to blob
// stores.
type indexSaver interface {
	saveTo(ctx context.Context, w io.Writer, kind IndexType) error
}

// searchIndex runs a version-checked search and maps distances to
// similarities.
func searchIndex(idx engine.Index, version int, query descriptor.Descriptor, maxCount int) ([]IndexResult, error) {
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: maxCount must be positive, got %d", ErrInvalidArgument, maxCount)
	}
	if version != 0 && query.Version() != version {
		return nil, &ErrVersionMismatch{Expected: version, Actual: query.Version()}
	}

	hits, err := idx.Search(query.Vector(), maxCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, translateError(err))
	}

	results := make([]IndexResult, len(hits))
	for i, h := range hits {
		results[i] = IndexResult{
			Index:      h.Position,
			Distance:   h.Distance,
			Similarity: distance.Similarity(h.Distance),
		}
	}
	return results, nil
}

// getDescriptorAt reads the descriptor at pos with position-before-version
// validation.
func getDescriptorAt(idx engine.Index, version int, pos int, template descriptor.Descriptor) (descriptor.Descriptor, error) {
	if count := idx.Count(); pos < 0 || pos >= count {
		return descriptor.Descriptor{}, &ErrOutOfRange{Position: pos, Count: count}
	}
	if template.Version() != version {
		return descriptor.Descriptor{}, &ErrVersionMismatch{Expected: version, Actual: template.Version()}
	}

	vec, err := idx.VectorAt(pos)
	if err != nil {
		return descriptor.Descriptor{}, translateError(err)
	}
	return descriptor.New(version, vec)
}

// saveIndexFile persists idx at path through the target checks and the
// atomic temp-file write, throttled by rc when set.
func saveIndexFile(ctx context.Context, idx engine.Index, rc *resource.Controller, path string, kind IndexType) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if err := persistence.ValidateSaveTarget(path); err != nil {
		return translateTargetError(err)
	}

	err := persistence.WriteFileAtomic(path, func(w io.Writer) error {
		lw := resource.NewWriter(ctx, w, rc)
		if kind == IndexTypeDense {
			return idx.SaveDense(ctx, lw)
		}
		return idx.SaveDynamic(ctx, lw)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// translateTargetError maps path precondition failures to the package
// taxonomy.
func translateTargetError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrTargetIsDirectory),
		errors.Is(err, persistence.ErrParentMissing):
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	case errors.Is(err, persistence.ErrParentNotWritable):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
}
