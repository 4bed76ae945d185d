package faceindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hupe1980/faceindex/persistence"
	"github.com/hupe1980/faceindex/resource"
)

// LoadIndex loads a persisted index of the given type from path.
func LoadIndex(path string, kind IndexType, optFns ...Option) (Index, error) {
	return LoadIndexContext(context.Background(), path, kind, optFns...)
}

// LoadIndexContext is LoadIndex honoring ctx cancellation.
func LoadIndexContext(ctx context.Context, path string, kind IndexType, optFns ...Option) (Index, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if kind == IndexTypeDense {
		return LoadDenseIndexContext(ctx, path, optFns...)
	}
	return LoadDynamicIndexContext(ctx, path, optFns...)
}

// LoadDynamicIndex loads an index saved in the dynamic format. The loaded
// index stays mutable.
func LoadDynamicIndex(path string, optFns ...Option) (*DynamicIndex, error) {
	return LoadDynamicIndexContext(context.Background(), path, optFns...)
}

// LoadDynamicIndexContext is LoadDynamicIndex honoring ctx cancellation.
func LoadDynamicIndexContext(ctx context.Context, path string, optFns ...Option) (*DynamicIndex, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	start := time.Now()
	idx, err := loadDynamic(ctx, path, &o)
	o.metrics.RecordLoad(IndexTypeDynamic, time.Since(start), err)
	count := 0
	if idx != nil {
		count = idx.DescriptorsCount()
	}
	o.logger.LogLoad(ctx, path, IndexTypeDynamic, count, err)
	return idx, err
}

func loadDynamic(ctx context.Context, path string, o *options) (*DynamicIndex, error) {
	if err := validateLoadPath(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer func() { _ = f.Close() }()

	idx, err := o.engine.LoadDynamic(ctx, resource.NewReader(ctx, f, o.ioController))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return &DynamicIndex{
		opts:    *o,
		idx:     idx,
		version: int(idx.Annotation()),
	}, nil
}

// LoadDenseIndex maps an index saved in the dense format from path.
// The descriptors stay backed by the mapping until the index is closed.
func LoadDenseIndex(path string, optFns ...Option) (*DenseIndex, error) {
	return LoadDenseIndexContext(context.Background(), path, optFns...)
}

// LoadDenseIndexContext is LoadDenseIndex honoring ctx cancellation.
func LoadDenseIndexContext(ctx context.Context, path string, optFns ...Option) (*DenseIndex, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	start := time.Now()
	idx, err := loadDense(ctx, path, &o)
	o.metrics.RecordLoad(IndexTypeDense, time.Since(start), err)
	count := 0
	if idx != nil {
		count = idx.DescriptorsCount()
	}
	o.logger.LogLoad(ctx, path, IndexTypeDense, count, err)
	return idx, err
}

func loadDense(ctx context.Context, path string, o *options) (*DenseIndex, error) {
	if err := validateLoadPath(path); err != nil {
		return nil, err
	}

	idx, err := o.engine.LoadDense(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return &DenseIndex{
		opts:    *o,
		idx:     idx,
		version: int(idx.Annotation()),
	}, nil
}

func validateLoadPath(path string) error {
	err := persistence.ValidateLoadSource(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	case errors.Is(err, persistence.ErrTargetIsDirectory):
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	default:
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
}
