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
var _ Index = (*DynamicIndex)(nil)

// DynamicIndex is a mutable descriptor index: it supports search, append and
// removal, and can be persisted in either on-disk format. Removal detaches a
// descriptor from search without rewriting storage, so DescriptorsCount and
// BufSize diverge until a dense save compacts the file.
//
// DynamicIndex is not safe for concurrent use.
type DynamicIndex struct {
	opts    options
	idx     engine.MutableIndex
	version int
}

// Version returns the descriptor model version the index is bound to,
// or 0 if the index is still empty and unbound.
func (x *DynamicIndex) Version() int { return x.version }

// DescriptorsCount returns the number of searchable descriptors.
func (x *DynamicIndex) DescriptorsCount() int { return x.idx.Count() }

// BufSize returns the number of storage slots, including slots of removed
// descriptors.
func (x *DynamicIndex) BufSize() int { return x.idx.BufSize() }

// Search returns up to maxCount matches for query, ordered by descending
// similarity (ascending distance). The query version must match the index
// version.
func (x *DynamicIndex) Search(query descriptor.Descriptor, maxCount int) ([]IndexResult, error) {
	start := time.Now()
	results, err := searchIndex(x.idx, x.version, query, maxCount)
	x.opts.metrics.RecordSearch(maxCount, time.Since(start), err)
	x.opts.logger.LogSearch(context.Background(), maxCount, len(results), time.Since(start), err)
	return results, err
}

// GetDescriptor returns the descriptor stored at pos. The template supplies
// the expected model version.
func (x *DynamicIndex) GetDescriptor(pos int, template descriptor.Descriptor) (descriptor.Descriptor, error) {
	return getDescriptorAt(x.idx, x.version, pos, template)
}

// Append adds one descriptor to the index.
func (x *DynamicIndex) Append(d descriptor.Descriptor) error {
	start := time.Now()
	err := x.append(d)
	x.opts.metrics.RecordAppend(1, time.Since(start), err)
	x.opts.logger.LogAppend(context.Background(), 1, err)
	return err
}

func (x *DynamicIndex) append(d descriptor.Descriptor) error {
	if x.version != 0 && d.Version() != x.version {
		return &ErrVersionMismatch{Expected: x.version, Actual: d.Version()}
	}
	if err := x.idx.Append(d.Vector()); err != nil {
		return fmt.Errorf("%w: %w", ErrAppend, translateError(err))
	}
	x.bind(d.Version())
	return nil
}

// AppendBatch adds all descriptors of the batch or none of them.
func (x *DynamicIndex) AppendBatch(batch *descriptor.Batch) error {
	start := time.Now()
	err := x.appendBatch(batch)
	x.opts.metrics.RecordAppend(batch.Len(), time.Since(start), err)
	x.opts.logger.LogAppend(context.Background(), batch.Len(), err)
	return err
}

func (x *DynamicIndex) appendBatch(batch *descriptor.Batch) error {
	if x.version != 0 && batch.Version() != x.version {
		return &ErrVersionMismatch{Expected: x.version, Actual: batch.Version()}
	}
	if err := x.idx.AppendBatch(batch.Vectors()); err != nil {
		return fmt.Errorf("%w: %w", ErrAppend, translateError(err))
	}
	x.bind(batch.Version())
	return nil
}

func (x *DynamicIndex) bind(version int) {
	if x.version == 0 {
		x.version = version
		x.idx.SetAnnotation(uint32(version))
	}
}

// RemoveAt removes the descriptor at pos from search; later positions shift
// down by one. Storage is reclaimed when the index is saved densely.
func (x *DynamicIndex) RemoveAt(pos int) error {
	start := time.Now()
	err := translateError(x.idx.RemoveAt(pos))
	x.opts.metrics.RecordRemove(time.Since(start), err)
	return err
}

// Save persists the index at path. Saving with IndexTypeDynamic keeps the
// index mutable after a reload; IndexTypeDense writes the compact read-only
// format, compacting removed slots away.
func (x *DynamicIndex) Save(path string, kind IndexType) error {
	return x.SaveContext(context.Background(), path, kind)
}

// SaveContext is Save honoring ctx cancellation, which matters for large
// collections under IO throttling.
func (x *DynamicIndex) SaveContext(ctx context.Context, path string, kind IndexType) error {
	start := time.Now()
	err := saveIndexFile(ctx, x.idx, x.opts.ioController, path, kind)
	x.opts.metrics.RecordSave(kind, time.Since(start), err)
	x.opts.logger.LogSave(ctx, path, kind, time.Since(start), err)
	return err
}

func (x *DynamicIndex) saveTo(ctx context.Context, w io.Writer, kind IndexType) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if kind == IndexTypeDense {
		return x.idx.SaveDense(ctx, w)
	}
	return x.idx.SaveDynamic(ctx, w)
}

// Close releases resources backing the index.
func (x *DynamicIndex) Close() error {
	return x.idx.Close()
}
