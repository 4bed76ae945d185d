package faceindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/faceindex/blobstore"
)

// PublishToStore serializes idx in the given format and uploads it to the
// blob store under name. Object stores replace whole objects atomically, so
// readers resolving name never observe a partial index.
func PublishToStore(ctx context.Context, store blobstore.WritableStore, name string, idx Index, kind IndexType) error {
	saver, ok := idx.(indexSaver)
	if !ok {
		return fmt.Errorf("%w: index type %T cannot be published", ErrInvalidArgument, idx)
	}

	var buf bytes.Buffer
	if err := saver.saveTo(ctx, &buf, kind); err != nil {
		if errors.Is(err, ErrUnsupportedOperation) || errors.Is(err, ErrInvalidArgument) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// LoadDenseFromStore opens a dense index published under name. Blobs that
// expose their bytes directly (local files, memory stores) are opened
// zero-copy; others are read in full. The returned index holds the blob open
// until it is closed.
func LoadDenseFromStore(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*DenseIndex, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	data, err := blobstore.ReadAll(blob)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	idx, err := o.engine.LoadDenseBytes(data)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return &DenseIndex{
		opts:    o,
		idx:     idx,
		version: int(idx.Annotation()),
		backing: blob,
	}, nil
}
