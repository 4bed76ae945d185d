// Package testutil provides testing utilities: seeded random vector and
// descriptor generation, and exact nearest-neighbor computation for
// verifying search results.
//
// This package is intended for use in tests and benchmarks only.
package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/faceindex/descriptor"
	"github.com/hupe1980/faceindex/distance"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// Vector generates one random vector of the given dimension.
func (r *RNG) Vector(dimension int) []float32 {
	vec := make([]float32, dimension)
	r.FillUniform(vec)
	return vec
}

// Vectors generates num random vectors.
// Uses a single backing array for efficiency.
func (r *RNG) Vectors(num, dimension int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimension)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimension : (i+1)*dimension]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}
	return vectors
}

// Descriptor generates one random descriptor with the given model version.
func (r *RNG) Descriptor(version, dimension int) descriptor.Descriptor {
	return descriptor.MustNew(version, r.Vector(dimension))
}

// Descriptors generates num random descriptors sharing one model version.
func (r *RNG) Descriptors(num, version, dimension int) []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, num)
	for i := range out {
		out[i] = r.Descriptor(version, dimension)
	}
	return out
}

// Batch generates a random descriptor batch sharing one model version.
func (r *RNG) Batch(num, version, dimension int) *descriptor.Batch {
	b, err := descriptor.NewBatch(r.Descriptors(num, version, dimension)...)
	if err != nil {
		panic(err)
	}
	return b
}

// ExactResult is one hit of an exact nearest-neighbor scan.
type ExactResult struct {
	Position int
	Distance float32
}

// ExactTopK computes the exact k nearest neighbors of query within dataset
// under squared L2 distance on L2-normalized vectors, matching the
// normalization the index applies. Ties break by ascending position.
func ExactTopK(query []float32, dataset [][]float32, k int) []ExactResult {
	q, _ := distance.NormalizeL2Copy(query)

	results := make([]ExactResult, 0, len(dataset))
	for i, vec := range dataset {
		v, _ := distance.NormalizeL2Copy(vec)
		results = append(results, ExactResult{
			Position: i,
			Distance: distance.SquaredL2(q, v),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Position < results[j].Position
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}
