package rng

import (
	"math"
	"testing"
)

func TestStream_Deterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 1000; i++ {
		if x, y := a.Normal(0, 1), b.Normal(0, 1); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestStream_UniformOpenInterval(t *testing.T) {
	s := New(7)
	for i := 0; i < 100000; i++ {
		u := s.Uniform()
		if u <= 0 || u >= 1 {
			t.Fatalf("uniform out of (0,1): %v", u)
		}
	}
}

func TestStream_NormalMoments(t *testing.T) {
	s := New(1)
	const n = 200000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		z := s.Normal(3, 2)
		sum += z
		sumSq += z * z
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	// 4 standard errors
	if math.Abs(mean-3) > 4*2/math.Sqrt(n) {
		t.Errorf("mean = %v, want ~3", mean)
	}
	if math.Abs(variance-4) > 4*4*math.Sqrt(2.0/n) {
		t.Errorf("variance = %v, want ~4", variance)
	}
}

func TestStream_DeriveIndependentOfState(t *testing.T) {
	a := New(99)
	b := New(99)
	for i := 0; i < 10; i++ {
		b.Uniform()
	}

	da := a.Derive(3)
	db := b.Derive(3)
	if da.Uniform() != db.Uniform() {
		t.Error("derived stream depends on parent state")
	}

	if a.Derive(3).Uniform() == a.Derive(4).Uniform() {
		t.Error("different indices produced the same first draw")
	}
}

func TestNewSeed(t *testing.T) {
	s1, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	s2, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	if s1 == s2 {
		t.Error("two seeds collided")
	}
}
