package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/faceindex/testutil"
)

func TestRNGDeterminism(t *testing.T) {
	a := testutil.NewRNG(42).Vectors(3, 8)
	b := testutil.NewRNG(42).Vectors(3, 8)
	assert.Equal(t, a, b)
}

func TestDescriptors(t *testing.T) {
	rng := testutil.NewRNG(1)
	ds := rng.Descriptors(4, 54, 16)
	require.Len(t, ds, 4)
	for _, d := range ds {
		assert.Equal(t, 54, d.Version())
		assert.Equal(t, 16, d.Dimension())
	}

	batch := rng.Batch(3, 56, 8)
	assert.Equal(t, 56, batch.Version())
	assert.Equal(t, 3, batch.Len())
}

func TestExactTopK(t *testing.T) {
	dataset := [][]float32{
		{1, 0},
		{0, 1},
		{1, 0.1},
	}

	results := testutil.ExactTopK([]float32{1, 0}, dataset, 2)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Position)
	assert.Equal(t, 2, results[1].Position)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}
