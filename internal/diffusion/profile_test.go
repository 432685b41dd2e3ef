package diffusion

import (
	"context"
	"errors"
	"math"
	"testing"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

func trapezoid(points []domain.ProfilePoint) float64 {
	var area float64
	for i := 1; i < len(points); i++ {
		dx := points[i].X - points[i-1].X
		area += 0.5 * dx * (points[i].Density + points[i-1].Density)
	}
	return area
}

func TestEvaluate_Grid(t *testing.T) {
	p, err := Evaluate(1, 10, 0, domain.ConditionPointMass, domain.DefaultProfileDomain())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(p.Points) != 201 {
		t.Fatalf("expected 201 points, got %d", len(p.Points))
	}
	if p.Points[0].X != 50 || math.Abs(p.Points[200].X-150) > 1e-9 {
		t.Errorf("grid spans [%v, %v], want [50, 150]", p.Points[0].X, p.Points[200].X)
	}
}

func TestEvaluate_PointMass(t *testing.T) {
	p, err := Evaluate(1, 10, 0, domain.ConditionPointMass, domain.DefaultProfileDomain())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if area := trapezoid(p.Points); math.Abs(area-1) > 1e-3 {
		t.Errorf("mass = %v, want ~1", area)
	}

	peak := 0
	for i, pt := range p.Points {
		if pt.Density > p.Points[peak].Density {
			peak = i
		}
	}
	if p.Points[peak].X != 100 {
		t.Errorf("peak at %v, want 100", p.Points[peak].X)
	}
}

func TestEvaluate_PointMassDrift(t *testing.T) {
	p, err := Evaluate(2, 5, 10, domain.ConditionPointMass, domain.DefaultProfileDomain())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	peak := 0
	for i, pt := range p.Points {
		if pt.Density > p.Points[peak].Density {
			peak = i
		}
	}
	if p.Points[peak].X != 120 {
		t.Errorf("peak at %v, want 120", p.Points[peak].X)
	}
}

func TestEvaluate_TwoPointSymmetric(t *testing.T) {
	p, err := Evaluate(1, 5, 0, domain.ConditionTwoPoint, domain.DefaultProfileDomain())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	n := len(p.Points)
	for i := 0; i < n/2; i++ {
		a, b := p.Points[i].Density, p.Points[n-1-i].Density
		if math.Abs(a-b) > 1e-12 {
			t.Fatalf("asymmetric at %d: %v vs %v", i, a, b)
		}
	}
	if area := trapezoid(p.Points); math.Abs(area-1) > 1e-3 {
		t.Errorf("mass = %v, want ~1", area)
	}
}

func TestEvaluate_Step(t *testing.T) {
	p, err := Evaluate(1, 10, 0, domain.ConditionStep, domain.DefaultProfileDomain())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 1; i < len(p.Points); i++ {
		if p.Points[i].Density < p.Points[i-1].Density {
			t.Fatalf("step profile decreases at %d", i)
		}
	}
	if mid := p.Points[100]; mid.X != 100 || mid.Density != 0.5 {
		t.Errorf("midpoint = %+v, want x=100 u=0.5", mid)
	}
}

func TestEvaluate_ZeroTimeIsFloored(t *testing.T) {
	p, err := Evaluate(0, 20, 0, domain.ConditionStep, domain.DefaultProfileDomain())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if p.Points[0].Density > 1e-9 || p.Points[200].Density < 1-1e-9 {
		t.Errorf("t=0 step should be sharp: u(50)=%v u(150)=%v", p.Points[0].Density, p.Points[200].Density)
	}

	p, err = Evaluate(0, 20, 0, domain.ConditionPointMass, domain.DefaultProfileDomain())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for _, pt := range p.Points {
		if math.IsNaN(pt.Density) || math.IsInf(pt.Density, 0) {
			t.Fatalf("non-finite density at x=%v", pt.X)
		}
	}
}

func TestEvaluate_Invalid(t *testing.T) {
	dom := domain.DefaultProfileDomain()
	cases := map[string]func() error{
		"zero sigma": func() error {
			_, err := Evaluate(1, 0, 0, domain.ConditionPointMass, dom)
			return err
		},
		"negative time": func() error {
			_, err := Evaluate(-1, 1, 0, domain.ConditionPointMass, dom)
			return err
		},
		"unknown condition": func() error {
			_, err := Evaluate(1, 1, 0, "wave", dom)
			return err
		},
		"empty domain": func() error {
			_, err := Evaluate(1, 1, 0, domain.ConditionPointMass, domain.ProfileDomain{XMin: 1, XMax: 1, Intervals: 10})
			return err
		},
		"NaN centre": func() error {
			d := dom
			d.S0 = math.NaN()
			_, err := Evaluate(1, 1, 0, domain.ConditionPointMass, d)
			return err
		},
		"NaN offset": func() error {
			d := dom
			d.Offset = math.NaN()
			_, err := Evaluate(1, 1, 0, domain.ConditionTwoPoint, d)
			return err
		},
		"infinite xmax": func() error {
			d := dom
			d.XMax = math.Inf(1)
			_, err := Evaluate(1, 1, 0, domain.ConditionPointMass, d)
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.Is(err, domain.ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestTheoreticalBands(t *testing.T) {
	params := domain.DefaultDiffusionParams()
	bands := TheoreticalBands([]float64{0, 0.25, 1}, params)

	if bands[0].StdDev != 0 || bands[0].Mean != 100 {
		t.Errorf("t=0 band = %+v", bands[0])
	}
	if math.Abs(bands[1].Upper1-110) > 1e-12 || math.Abs(bands[1].Lower2-80) > 1e-12 {
		t.Errorf("t=0.25 band = %+v", bands[1])
	}
	if math.Abs(bands[2].Upper2-140) > 1e-12 {
		t.Errorf("t=1 band = %+v", bands[2])
	}
}

func TestOverlay(t *testing.T) {
	ens, err := Overlay(context.Background(), 1, 1, 0, 200, 100, rng.New(3))
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if len(ens.Times) != OverlaySteps+1 {
		t.Fatalf("expected %d times, got %d", OverlaySteps+1, len(ens.Times))
	}
	if math.Abs(ens.Times[OverlaySteps]-1) > 1e-12 {
		t.Errorf("final time = %v, want 1", ens.Times[OverlaySteps])
	}
	if len(ens.Paths) != 200 {
		t.Errorf("expected 200 paths, got %d", len(ens.Paths))
	}
}
