package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_Deterministic(t *testing.T) {
	a := Seed(30.2672, -97.7431, 2.0, 0)
	b := Seed(30.2672, -97.7431, 2.0, 0)
	assert.Equal(t, a, b)
}

func TestSeed_SensitiveToInputs(t *testing.T) {
	base := Seed(30.2672, -97.7431, 2.0, 0)

	assert.NotEqual(t, base, Seed(30.2673, -97.7431, 2.0, 0))
	assert.NotEqual(t, base, Seed(30.2672, -97.7430, 2.0, 0))
	assert.NotEqual(t, base, Seed(30.2672, -97.7431, 2.001, 0))
	assert.NotEqual(t, base, Seed(30.2672, -97.7431, 2.0, 1))
}

func TestSeed_QuantisedBelowPrecision(t *testing.T) {
	// Differences below the quantisation step must not change the seed.
	a := Seed(30.26720001, -97.74310001, 2.0, 0)
	b := Seed(30.26720002, -97.74310002, 2.0, 0)
	assert.Equal(t, a, b)
}

func TestSource_IdenticalSequences(t *testing.T) {
	s1 := New(Seed(40, -74, 1, 7))
	s2 := New(Seed(40, -74, 1, 7))

	for i := 0; i < 1000; i++ {
		require.Equal(t, s1.Float64(), s2.Float64(), "sequence diverged at step %d", i)
	}
}

func TestSource_Float64Range(t *testing.T) {
	s := New(12345)
	for i := 0; i < 10000; i++ {
		v := s.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestSource_RoughlyUniform(t *testing.T) {
	s := New(Seed(30.2672, -97.7431, 2.0, 0))

	const n = 100000
	var sum float64
	buckets := make([]int, 10)
	for i := 0; i < n; i++ {
		v := s.Float64()
		sum += v
		buckets[int(v*10)]++
	}

	assert.InDelta(t, 0.5, sum/n, 0.01)
	for i, count := range buckets {
		assert.InDelta(t, n/10, count, float64(n)*0.01, "bucket %d", i)
	}
}

func TestForPoint_IndependentStreams(t *testing.T) {
	seed := Seed(40, -74, 1, 0)

	a := ForPoint(seed, 0)
	b := ForPoint(seed, 1)
	assert.NotEqual(t, a.Float64(), b.Float64())

	// Same index reproduces the same stream.
	c := ForPoint(seed, 1)
	d := ForPoint(seed, 1)
	for i := 0; i < 100; i++ {
		require.Equal(t, c.Float64(), d.Float64())
	}
}
