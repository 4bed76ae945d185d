package flat_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/faceindex/engine"
	"github.com/hupe1980/faceindex/engine/flat"
	"github.com/hupe1980/faceindex/persistence"
	"github.com/hupe1980/faceindex/testutil"
)

// oneHot returns a unit vector along axis i, which survives normalization
// unchanged.
func oneHot(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

func buildIndex(t *testing.T, e *flat.Engine, vecs ...[]float32) engine.MutableIndex {
	t.Helper()
	b := e.NewBuilder()
	require.NoError(t, b.AppendBatch(vecs))
	idx, err := b.Build()
	require.NoError(t, err)
	return idx
}

func TestBuilderAppend(t *testing.T) {
	e := flat.New()

	t.Run("binds dimension on first vector", func(t *testing.T) {
		b := e.NewBuilder()
		require.NoError(t, b.Append(oneHot(4, 0)))
		assert.Equal(t, 1, b.Count())

		err := b.Append(oneHot(3, 0))
		var dm *engine.ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 4, dm.Expected)
		assert.Equal(t, 3, dm.Actual)
	})

	t.Run("empty vector rejected", func(t *testing.T) {
		b := e.NewBuilder()
		require.ErrorIs(t, b.Append(nil), engine.ErrEmptyVector)
	})

	t.Run("zero vector rejected under normalization", func(t *testing.T) {
		b := e.NewBuilder()
		require.ErrorIs(t, b.Append([]float32{0, 0, 0}), engine.ErrEmptyVector)
	})

	t.Run("fixed dimension option", func(t *testing.T) {
		b := flat.New(func(o *flat.Options) { o.Dimension = 8 }).NewBuilder()
		err := b.Append(oneHot(4, 0))
		var dm *engine.ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 8, dm.Expected)
	})
}

func TestBuilderAppendBatchAtomic(t *testing.T) {
	e := flat.New()
	b := e.NewBuilder()
	require.NoError(t, b.Append(oneHot(4, 0)))

	// Second vector has the wrong dimension; nothing of the batch lands.
	err := b.AppendBatch([][]float32{oneHot(4, 1), oneHot(3, 0)})
	require.Error(t, err)
	assert.Equal(t, 1, b.Count())

	// An all-invalid batch on an unbound builder leaves the dimension unbound.
	b2 := e.NewBuilder()
	require.Error(t, b2.AppendBatch([][]float32{oneHot(4, 0), oneHot(5, 0)}))
	require.NoError(t, b2.Append(oneHot(7, 0)))
}

func TestBuilderRemoveAt(t *testing.T) {
	e := flat.New()
	b := e.NewBuilder()
	require.NoError(t, b.AppendBatch([][]float32{oneHot(4, 0), oneHot(4, 1), oneHot(4, 2)}))

	require.NoError(t, b.RemoveAt(0))
	assert.Equal(t, 2, b.Count())

	// Later positions shift down by one.
	vec, err := b.VectorAt(0)
	require.NoError(t, err)
	assert.Equal(t, float32(1), vec[1])

	err = b.RemoveAt(5)
	var oor *engine.ErrPositionOutOfRange
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 5, oor.Position)
	assert.Equal(t, 2, oor.Count)
}

func TestBuilderIndependentOfIndex(t *testing.T) {
	e := flat.New()
	b := e.NewBuilder()
	require.NoError(t, b.Append(oneHot(4, 0)))

	idx, err := b.Build()
	require.NoError(t, err)

	// Mutating the builder afterwards does not affect the built index.
	require.NoError(t, b.Append(oneHot(4, 1)))
	assert.Equal(t, 2, b.Count())
	assert.Equal(t, 1, idx.Count())
}

func TestIndexRemoveAt(t *testing.T) {
	e := flat.New()
	idx := buildIndex(t, e, oneHot(4, 0), oneHot(4, 1), oneHot(4, 2))

	require.NoError(t, idx.RemoveAt(1))
	assert.Equal(t, 2, idx.Count())
	assert.Equal(t, 3, idx.BufSize()) // storage slot stays until compaction

	// Position 1 now addresses the former position 2.
	vec, err := idx.VectorAt(1)
	require.NoError(t, err)
	assert.Equal(t, float32(1), vec[2])

	err = idx.RemoveAt(2)
	var oor *engine.ErrPositionOutOfRange
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 2, oor.Count)
}

func TestIndexAppendAfterBuild(t *testing.T) {
	e := flat.New()
	idx := buildIndex(t, e, oneHot(4, 0))

	require.NoError(t, idx.Append(oneHot(4, 1)))
	require.NoError(t, idx.AppendBatch([][]float32{oneHot(4, 2), oneHot(4, 3)}))
	assert.Equal(t, 4, idx.Count())
	assert.Equal(t, 4, idx.BufSize())
}

func TestSearch(t *testing.T) {
	e := flat.New()
	idx := buildIndex(t, e, oneHot(4, 0), oneHot(4, 1), oneHot(4, 2))

	t.Run("orders by ascending distance", func(t *testing.T) {
		hits, err := idx.Search(oneHot(4, 1), 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, 1, hits[0].Position)
		assert.Equal(t, float32(0), hits[0].Distance)
		assert.Equal(t, float32(2), hits[1].Distance)
	})

	t.Run("equidistant hits order by position", func(t *testing.T) {
		hits, err := idx.Search(oneHot(4, 3), 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, 0, hits[0].Position)
		assert.Equal(t, 1, hits[1].Position)
		assert.Equal(t, 2, hits[2].Position)
	})

	t.Run("k capped at count", func(t *testing.T) {
		hits, err := idx.Search(oneHot(4, 0), 100)
		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})

	t.Run("k below one rejected", func(t *testing.T) {
		_, err := idx.Search(oneHot(4, 0), 0)
		require.ErrorIs(t, err, engine.ErrInvalidK)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := idx.Search(oneHot(3, 0), 1)
		var dm *engine.ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
	})

	t.Run("empty index yields no hits", func(t *testing.T) {
		empty, err := e.NewBuilder().Build()
		require.NoError(t, err)
		hits, err := empty.Search(oneHot(4, 0), 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("removed vectors are not found", func(t *testing.T) {
		mut := buildIndex(t, e, oneHot(4, 0), oneHot(4, 1))
		require.NoError(t, mut.RemoveAt(0))

		hits, err := mut.Search(oneHot(4, 0), 2)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, 0, hits[0].Position) // former position 1
		assert.Equal(t, float32(2), hits[0].Distance)
	})
}

func TestSearchParallelMatchesSerial(t *testing.T) {
	rng := testutil.NewRNG(42)
	vecs := rng.Vectors(5000, 16)

	serial := flat.New(func(o *flat.Options) { o.ParallelThreshold = 1 << 30 })
	parallel := flat.New(func(o *flat.Options) {
		o.Parallelism = 4
		o.ParallelThreshold = 1
	})

	si := buildIndex(t, serial, vecs...)
	pi := buildIndex(t, parallel, vecs...)

	query := rng.Vector(16)
	want, err := si.Search(query, 10)
	require.NoError(t, err)
	got, err := pi.Search(query, 10)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestSearchMatchesExactScan(t *testing.T) {
	rng := testutil.NewRNG(7)
	vecs := rng.Vectors(200, 8)

	e := flat.New()
	idx := buildIndex(t, e, vecs...)

	query := rng.Vector(8)
	hits, err := idx.Search(query, 5)
	require.NoError(t, err)

	exact := testutil.ExactTopK(query, vecs, 5)
	require.Len(t, hits, len(exact))
	for i := range exact {
		assert.Equal(t, exact[i].Position, hits[i].Position)
		assert.InDelta(t, exact[i].Distance, hits[i].Distance, 1e-5)
	}
}

func TestDynamicRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, comp := range []persistence.CompressionType{
		persistence.CompressionNone,
		persistence.CompressionLZ4,
		persistence.CompressionZSTD,
	} {
		t.Run(comp.String(), func(t *testing.T) {
			e := flat.New(func(o *flat.Options) { o.Compression = comp })

			b := e.NewBuilder()
			b.SetAnnotation(56)
			require.NoError(t, b.AppendBatch([][]float32{oneHot(4, 0), oneHot(4, 1), oneHot(4, 2)}))
			idx, err := b.Build()
			require.NoError(t, err)
			require.NoError(t, idx.RemoveAt(1))

			var buf bytes.Buffer
			require.NoError(t, idx.SaveDynamic(ctx, &buf))

			loaded, err := e.LoadDynamic(ctx, &buf)
			require.NoError(t, err)

			assert.Equal(t, 2, loaded.Count())
			assert.Equal(t, 3, loaded.BufSize()) // removed slot survives the round trip
			assert.Equal(t, uint32(56), loaded.Annotation())

			// Still mutable after reload.
			require.NoError(t, loaded.Append(oneHot(4, 3)))
			assert.Equal(t, 3, loaded.Count())

			hits, err := loaded.Search(oneHot(4, 2), 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, 1, hits[0].Position)
		})
	}
}

func TestDenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := flat.New()

	idx := buildIndex(t, e, oneHot(4, 0), oneHot(4, 1), oneHot(4, 2))
	idx.SetAnnotation(54)
	require.NoError(t, idx.RemoveAt(0))

	var buf bytes.Buffer
	require.NoError(t, idx.SaveDense(ctx, &buf))

	t.Run("from file via mmap", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.dense")
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

		loaded, err := e.LoadDense(ctx, path)
		require.NoError(t, err)
		defer func() { require.NoError(t, loaded.Close()) }()

		// Dense saves compact removed slots away.
		assert.Equal(t, 2, loaded.Count())
		assert.Equal(t, 2, loaded.BufSize())
		assert.Equal(t, uint32(54), loaded.Annotation())

		hits, err := loaded.Search(oneHot(4, 2), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, 1, hits[0].Position)
		assert.Equal(t, float32(0), hits[0].Distance)
	})

	t.Run("from bytes", func(t *testing.T) {
		loaded, err := e.LoadDenseBytes(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 2, loaded.Count())
	})

	t.Run("read only", func(t *testing.T) {
		loaded, err := e.LoadDenseBytes(buf.Bytes())
		require.NoError(t, err)

		mut, ok := loaded.(engine.MutableIndex)
		require.True(t, ok)
		require.ErrorIs(t, mut.Append(oneHot(4, 0)), flat.ErrReadOnly)
		require.ErrorIs(t, mut.RemoveAt(0), flat.ErrReadOnly)
	})
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	e := flat.New()
	idx := buildIndex(t, e, oneHot(4, 0), oneHot(4, 1))

	t.Run("checksum mismatch", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, idx.SaveDynamic(ctx, &buf))

		data := buf.Bytes()
		data[len(data)-1] ^= 0xff

		_, err := e.LoadDynamic(ctx, bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrChecksumMismatch)
	})

	t.Run("type mismatch", func(t *testing.T) {
		var dense bytes.Buffer
		require.NoError(t, idx.SaveDense(ctx, &dense))

		_, err := e.LoadDynamic(ctx, bytes.NewReader(dense.Bytes()))
		require.ErrorIs(t, err, persistence.ErrIndexTypeMismatch)

		var dynamic bytes.Buffer
		require.NoError(t, idx.SaveDynamic(ctx, &dynamic))

		_, err = e.LoadDenseBytes(dynamic.Bytes())
		require.ErrorIs(t, err, persistence.ErrIndexTypeMismatch)
	})

	t.Run("truncated payload", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, idx.SaveDynamic(ctx, &buf))

		data := buf.Bytes()[:buf.Len()-4]
		_, err := e.LoadDynamic(ctx, bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrTruncated)
	})
}
