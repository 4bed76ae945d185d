package faceindex

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/faceindex/descriptor"
	"github.com/hupe1980/faceindex/engine"
)

// IndexBuilder accumulates descriptors and compiles them into a DynamicIndex.
//
// The builder binds to a descriptor model version: either up front via
// WithVersion, or by the first descriptor it accepts. Every later append
// must carry the same version. Builders are not safe for concurrent use.
type IndexBuilder struct {
	opts    options
	builder engine.Builder
	version int // 0 until bound
}

// NewIndexBuilder creates an empty IndexBuilder.
func NewIndexBuilder(optFns ...Option) *IndexBuilder {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	b := o.engine.NewBuilder()
	if o.version != 0 {
		b.SetAnnotation(uint32(o.version))
	}

	return &IndexBuilder{
		opts:    o,
		builder: b,
		version: o.version,
	}
}

// Version returns the descriptor model version the builder is bound to,
// or 0 if no descriptor has been accepted yet.
func (b *IndexBuilder) Version() int { return b.version }

// Count returns the number of descriptors currently accumulated.
func (b *IndexBuilder) Count() int { return b.builder.Count() }

// Append adds one descriptor to the accumulation buffer.
// The first accepted descriptor binds the builder's version.
func (b *IndexBuilder) Append(d descriptor.Descriptor) error {
	start := time.Now()
	err := b.append(d)
	b.opts.metrics.RecordAppend(1, time.Since(start), err)
	b.opts.logger.LogAppend(context.Background(), 1, err)
	return err
}

func (b *IndexBuilder) append(d descriptor.Descriptor) error {
	if b.version != 0 && d.Version() != b.version {
		return &ErrVersionMismatch{Expected: b.version, Actual: d.Version()}
	}
	if err := b.builder.Append(d.Vector()); err != nil {
		return fmt.Errorf("%w: %w", ErrAppend, translateError(err))
	}
	b.bind(d.Version())
	return nil
}

// AppendBatch adds all descriptors of the batch or none of them.
func (b *IndexBuilder) AppendBatch(batch *descriptor.Batch) error {
	start := time.Now()
	err := b.appendBatch(batch)
	b.opts.metrics.RecordAppend(batch.Len(), time.Since(start), err)
	b.opts.logger.LogAppend(context.Background(), batch.Len(), err)
	return err
}

func (b *IndexBuilder) appendBatch(batch *descriptor.Batch) error {
	if b.version != 0 && batch.Version() != b.version {
		return &ErrVersionMismatch{Expected: b.version, Actual: batch.Version()}
	}
	if err := b.builder.AppendBatch(batch.Vectors()); err != nil {
		return fmt.Errorf("%w: %w", ErrAppend, translateError(err))
	}
	b.bind(batch.Version())
	return nil
}

func (b *IndexBuilder) bind(version int) {
	if b.version == 0 {
		b.version = version
		b.builder.SetAnnotation(uint32(version))
	}
}

// GetDescriptor returns the descriptor stored at pos. The template supplies
// the expected model version; a version other than the one the builder is
// bound to yields ErrVersionMismatch.
func (b *IndexBuilder) GetDescriptor(pos int, template descriptor.Descriptor) (descriptor.Descriptor, error) {
	// Position is validated before the version so a bad position reports as
	// out of range even when the template version is also wrong.
	if count := b.builder.Count(); pos < 0 || pos >= count {
		return descriptor.Descriptor{}, &ErrOutOfRange{Position: pos, Count: count}
	}
	if template.Version() != b.version {
		return descriptor.Descriptor{}, &ErrVersionMismatch{Expected: b.version, Actual: template.Version()}
	}

	vec, err := b.builder.VectorAt(pos)
	if err != nil {
		return descriptor.Descriptor{}, translateError(err)
	}
	return descriptor.New(b.version, vec)
}

// RemoveAt removes the descriptor at pos; later positions shift down by one.
func (b *IndexBuilder) RemoveAt(pos int) error {
	start := time.Now()
	err := translateError(b.builder.RemoveAt(pos))
	b.opts.metrics.RecordRemove(time.Since(start), err)
	return err
}

// Build compiles the accumulated descriptors into a DynamicIndex.
// The builder remains usable afterwards; the index owns its own storage.
func (b *IndexBuilder) Build() (*DynamicIndex, error) {
	start := time.Now()
	count := b.builder.Count()

	idx, err := b.builder.Build()
	b.opts.metrics.RecordBuild(count, time.Since(start), err)
	b.opts.logger.WithVersion(b.version).LogBuild(context.Background(), count, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, translateError(err))
	}

	return &DynamicIndex{
		opts:    b.opts,
		idx:     idx,
		version: b.version,
	}, nil
}
