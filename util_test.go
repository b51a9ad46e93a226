package main

import (
	"math"
	"testing"
)

func TestNormDegRange(t *testing.T) {
	inputs := []float64{0, 1, 359.999, 360, 361, 720, -1, -0.0001, -360, -719.5, 123456.78, -98765.4}
	for _, x := range inputs {
		got := NormDeg(x)
		if got < 0 || got >= 360 {
			t.Errorf("NormDeg(%v) = %v, out of [0,360)", x, got)
		}
	}
}

func TestNormDegPeriodic(t *testing.T) {
	for _, x := range []float64{0, 17.5, 315, 359.9, -45} {
		base := NormDeg(x)
		for _, k := range []float64{-3, -1, 1, 2, 10} {
			got := NormDeg(x + 360*k)
			if math.Abs(got-base) > 1e-9 {
				t.Errorf("NormDeg(%v + 360*%v) = %v, want %v", x, k, got, base)
			}
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-0.5, 0, 1); got != 0 {
		t.Errorf("Clamp(-0.5,0,1) = %v, want 0", got)
	}
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Errorf("Clamp(1.5,0,1) = %v, want 1", got)
	}
	if got := Clamp(0.3, 0, 1); got != 0.3 {
		t.Errorf("Clamp(0.3,0,1) = %v, want 0.3", got)
	}
}

func TestRotatePointPreservesRadius(t *testing.T) {
	x, y := 200.0, 0.0
	for i := 0; i < 100; i++ {
		x, y = RotatePoint(x, y, 0.1)
	}
	r := math.Hypot(x, y)
	if math.Abs(r-200) > 1e-6 {
		t.Errorf("radius after 100 rotations = %v, want 200", r)
	}
}

func TestReflectVelocityPreservesSpeed(t *testing.T) {
	cases := []struct{ vx, vy, nx, ny float64 }{
		{100, 0, 1, 0},
		{70, -30, 0, 1},
		{-55, 120, math.Sqrt2 / 2, math.Sqrt2 / 2},
		{140, 140, -0.6, 0.8},
	}
	for _, c := range cases {
		vx, vy := reflectVelocity(c.vx, c.vy, c.nx, c.ny)
		before := math.Hypot(c.vx, c.vy)
		after := math.Hypot(vx, vy)
		if math.Abs(before-after) > 1e-9 {
			t.Errorf("reflect (%v,%v) across (%v,%v): speed %v -> %v", c.vx, c.vy, c.nx, c.ny, before, after)
		}
	}
}

func TestReflectVelocityHeadOn(t *testing.T) {
	// Moving straight along the outward normal must come straight back
	vx, vy := reflectVelocity(100, 0, 1, 0)
	if vx != -100 || vy != 0 {
		t.Errorf("head-on reflection = (%v,%v), want (-100,0)", vx, vy)
	}
}
