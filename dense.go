package faceindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/faceindex/descriptor"
	"github.com/hupe1980/faceindex/engine"
)

// Compile-time check against the shared operation set.
var _ Index = (*DenseIndex)(nil)

// DenseIndex is a read-only descriptor index loaded from the dense format,
// typically backed by a memory mapping. It supports search and descriptor
// access; mutation returns ErrUnsupportedOperation.
type DenseIndex struct {
	opts    options
	idx     engine.Index
	version int
	backing io.Closer // extra resource backing the vectors, nil for files
}

// Version returns the descriptor model version the index is bound to.
func (x *DenseIndex) Version() int { return x.version }

// DescriptorsCount returns the number of searchable descriptors.
func (x *DenseIndex) DescriptorsCount() int { return x.idx.Count() }

// BufSize returns the number of storage slots. Dense files are compacted on
// save, so this always equals DescriptorsCount.
func (x *DenseIndex) BufSize() int { return x.idx.BufSize() }

// Search returns up to maxCount matches for query, ordered by descending
// similarity (ascending distance).
func (x *DenseIndex) Search(query descriptor.Descriptor, maxCount int) ([]IndexResult, error) {
	start := time.Now()
	results, err := searchIndex(x.idx, x.version, query, maxCount)
	x.opts.metrics.RecordSearch(maxCount, time.Since(start), err)
	x.opts.logger.LogSearch(context.Background(), maxCount, len(results), time.Since(start), err)
	return results, err
}

// GetDescriptor returns the descriptor stored at pos. The template supplies
// the expected model version.
func (x *DenseIndex) GetDescriptor(pos int, template descriptor.Descriptor) (descriptor.Descriptor, error) {
	return getDescriptorAt(x.idx, x.version, pos, template)
}

// RemoveAt always fails: dense indexes are read-only.
func (x *DenseIndex) RemoveAt(pos int) error {
	return fmt.Errorf("%w: dense index does not support removal", ErrUnsupportedOperation)
}

// Save persists the index at path. Only IndexTypeDense is supported; a dense
// index cannot be turned back into the mutable format.
func (x *DenseIndex) Save(path string, kind IndexType) error {
	return x.SaveContext(context.Background(), path, kind)
}

// SaveContext is Save honoring ctx cancellation.
func (x *DenseIndex) SaveContext(ctx context.Context, path string, kind IndexType) error {
	start := time.Now()
	err := x.save(ctx, path, kind)
	x.opts.metrics.RecordSave(kind, time.Since(start), err)
	x.opts.logger.LogSave(ctx, path, kind, time.Since(start), err)
	return err
}

func (x *DenseIndex) save(ctx context.Context, path string, kind IndexType) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if kind != IndexTypeDense {
		return fmt.Errorf("%w: dense index can only be saved densely", ErrUnsupportedOperation)
	}
	return saveIndexFile(ctx, x.idx, x.opts.ioController, path, kind)
}

func (x *DenseIndex) saveTo(ctx context.Context, w io.Writer, kind IndexType) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if kind != IndexTypeDense {
		return fmt.Errorf("%w: dense index can only be saved densely", ErrUnsupportedOperation)
	}
	return x.idx.SaveDense(ctx, w)
}

// Close releases the memory mapping or blob backing the index.
func (x *DenseIndex) Close() error {
	err := x.idx.Close()
	if x.backing != nil {
		if cerr := x.backing.Close(); err == nil {
			err = cerr
		}
		x.backing = nil
	}
	return err
}
