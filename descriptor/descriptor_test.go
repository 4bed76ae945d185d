package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/faceindex/descriptor"
)

func TestNew(t *testing.T) {
	t.Run("copies data", func(t *testing.T) {
		data := []float32{1, 2, 3}
		d, err := descriptor.New(54, data)
		require.NoError(t, err)

		data[0] = 99
		assert.Equal(t, float32(1), d.Vector()[0])
	})

	t.Run("empty data rejected", func(t *testing.T) {
		_, err := descriptor.New(54, nil)
		require.ErrorIs(t, err, descriptor.ErrEmptyData)
	})

	t.Run("accessors", func(t *testing.T) {
		d := descriptor.MustNew(56, []float32{1, 2, 3, 4})
		assert.Equal(t, 56, d.Version())
		assert.Equal(t, 4, d.Dimension())
		assert.Equal(t, []float32{1, 2, 3, 4}, d.Data())
	})

	t.Run("Data returns a copy", func(t *testing.T) {
		d := descriptor.MustNew(54, []float32{1, 2})
		d.Data()[0] = 99
		assert.Equal(t, float32(1), d.Vector()[0])
	})
}

func TestNewBatch(t *testing.T) {
	t.Run("shared version", func(t *testing.T) {
		b, err := descriptor.NewBatch(
			descriptor.MustNew(54, []float32{1, 0}),
			descriptor.MustNew(54, []float32{0, 1}),
		)
		require.NoError(t, err)
		assert.Equal(t, 54, b.Version())
		assert.Equal(t, 2, b.Len())
		assert.Equal(t, []float32{0, 1}, b.At(1).Vector())
	})

	t.Run("mixed versions rejected", func(t *testing.T) {
		_, err := descriptor.NewBatch(
			descriptor.MustNew(54, []float32{1, 0}),
			descriptor.MustNew(56, []float32{0, 1}),
		)

		var mixed *descriptor.ErrMixedVersions
		require.ErrorAs(t, err, &mixed)
		assert.Equal(t, 54, mixed.Expected)
		assert.Equal(t, 56, mixed.Actual)
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		_, err := descriptor.NewBatch()
		require.ErrorIs(t, err, descriptor.ErrEmptyBatch)
	})

	t.Run("vectors in batch order", func(t *testing.T) {
		b, err := descriptor.NewBatch(
			descriptor.MustNew(54, []float32{1, 0}),
			descriptor.MustNew(54, []float32{0, 1}),
		)
		require.NoError(t, err)

		vecs := b.Vectors()
		require.Len(t, vecs, 2)
		assert.Equal(t, []float32{1, 0}, vecs[0])
		assert.Equal(t, []float32{0, 1}, vecs[1])
	})
}
