// Package rng provides the seeded random streams used by every engine.
//
// A Stream is not safe for concurrent use. Parallel work derives one
// sub-stream per unit of work with Derive, which depends only on the
// parent seed and the index, so results do not depend on scheduling.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
)

// Source is the randomness consumed by the sequential engines.
type Source interface {
	// Uniform returns a value in the open interval (0, 1).
	Uniform() float64
	// Normal returns a normal variate with the given mean and standard deviation.
	Normal(mean, std float64) float64
}

// Stream is a deterministic PCG-backed Source.
type Stream struct {
	seed uint64
	r    *rand.Rand
}

// New creates a stream from seed.
func New(seed uint64) *Stream {
	return &Stream{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, splitmix64(seed))),
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() uint64 { return s.seed }

// Derive returns an independent stream for unit of work index.
// It does not consume values from s.
func (s *Stream) Derive(index uint64) *Stream {
	return New(splitmix64(s.seed ^ splitmix64(index+0x9e3779b97f4a7c15)))
}

// Uniform returns a value in (0, 1). Exact zeros are resampled.
func (s *Stream) Uniform() float64 {
	for {
		if u := s.r.Float64(); u != 0 {
			return u
		}
	}
}

// Normal returns mean + std*Z where Z is drawn with the Box-Muller transform.
func (s *Stream) Normal(mean, std float64) float64 {
	u := s.Uniform()
	v := s.Uniform()
	z := math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
	return mean + std*z
}

var _ Source = (*Stream)(nil)

// NewSeed draws a seed from crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
