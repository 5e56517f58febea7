package collision

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-kcc/pkg/math"
)

func near(a, b float64) bool {
	return gomath.Abs(a-b) < 1e-6
}

func TestSweep_SpherePlane(t *testing.T) {
	floor := Plane{Normal: math.Up}
	ball := Sphere{Radius: 0.5}

	h, ok := Sweep(ball, math.Vec3{0, 2, 0}, math.Down, 5, floor, math.Vec3{})
	if !ok {
		t.Fatal("expected hit against floor")
	}
	if !near(h.Distance, 1.5) {
		t.Errorf("Distance = %v, want 1.5", h.Distance)
	}
	if !near(h.Fraction, 0.3) {
		t.Errorf("Fraction = %v, want 0.3", h.Fraction)
	}
	if h.Normal != math.Up {
		t.Errorf("Normal = %v, want %v", h.Normal, math.Up)
	}

	if _, ok := Sweep(ball, math.Vec3{0, 2, 0}, math.Down, 1, floor, math.Vec3{}); ok {
		t.Error("expected no hit when the floor is out of range")
	}
	if _, ok := Sweep(ball, math.Vec3{0, 2, 0}, math.Up, 5, floor, math.Vec3{}); ok {
		t.Error("expected no hit when moving away from the floor")
	}
}

func TestSweep_SpherePlane_Overlap(t *testing.T) {
	h, ok := Sweep(Sphere{Radius: 0.5}, math.Vec3{0, 0.3, 0}, math.Vec3{}, 0, Plane{Normal: math.Up}, math.Vec3{})
	if !ok {
		t.Fatal("expected overlap hit")
	}
	if !h.Overlapping() || !near(h.Penetration, 0.2) {
		t.Errorf("Penetration = %v, want 0.2", h.Penetration)
	}
}

func TestSweep_BoxPlaneUsesSupportRadius(t *testing.T) {
	box := Box{HalfExtents: math.Vec3{0.5, 1, 0.5}}
	h, ok := Sweep(box, math.Vec3{0, 3, 0}, math.Down, 10, Plane{Normal: math.Up}, math.Vec3{})
	if !ok {
		t.Fatal("expected hit")
	}
	if !near(h.Distance, 2) {
		t.Errorf("Distance = %v, want 2", h.Distance)
	}
}

func TestSweep_SphereSphere(t *testing.T) {
	h, ok := Sweep(Sphere{Radius: 1}, math.Vec3{-5, 0, 0}, math.Vec3{1, 0, 0}, 10, Sphere{Radius: 1}, math.Vec3{})
	if !ok {
		t.Fatal("expected hit")
	}
	if !near(h.Distance, 3) {
		t.Errorf("Distance = %v, want 3", h.Distance)
	}
	if !math.ApproxEqual(h.Normal, math.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("Normal = %v, want (-1,0,0)", h.Normal)
	}

	if _, ok := Sweep(Sphere{Radius: 1}, math.Vec3{-5, 3, 0}, math.Vec3{1, 0, 0}, 10, Sphere{Radius: 1}, math.Vec3{}); ok {
		t.Error("expected miss for a parallel pass")
	}
}

func TestSweep_BoxBox(t *testing.T) {
	mover := Box{HalfExtents: math.Vec3{0.5, 0.5, 0.5}}
	wall := Box{HalfExtents: math.Vec3{0.5, 5, 5}}

	h, ok := Sweep(mover, math.Vec3{0, 0, 0}, math.Vec3{1, 0, 0}, 10, wall, math.Vec3{4, 0, 0})
	if !ok {
		t.Fatal("expected hit")
	}
	if !near(h.Distance, 3) {
		t.Errorf("Distance = %v, want 3", h.Distance)
	}
	if h.Normal != (math.Vec3{-1, 0, 0}) {
		t.Errorf("Normal = %v, want (-1,0,0)", h.Normal)
	}
}

func TestSweep_BoxBox_SlidingAlongFaceIsNotAHit(t *testing.T) {
	mover := Box{HalfExtents: math.Vec3{0.5, 0.5, 0.5}}
	floor := Box{HalfExtents: math.Vec3{10, 0.5, 10}}

	// Resting exactly on top of the floor box, moving sideways.
	if _, ok := Sweep(mover, math.Vec3{0, 1, 0}, math.Vec3{1, 0, 0}, 3, floor, math.Vec3{}); ok {
		t.Error("expected no hit while sliding along the top face")
	}
}

func TestSweep_BoxBox_Overlap(t *testing.T) {
	mover := Box{HalfExtents: math.Vec3{0.5, 0.5, 0.5}}
	floor := Box{HalfExtents: math.Vec3{10, 0.5, 10}}

	h, ok := Sweep(mover, math.Vec3{0, 0.9, 0}, math.Vec3{}, 0, floor, math.Vec3{})
	if !ok {
		t.Fatal("expected overlap")
	}
	if h.Normal != math.Up {
		t.Errorf("Normal = %v, want up", h.Normal)
	}
	if !near(h.Penetration, 0.1) {
		t.Errorf("Penetration = %v, want 0.1", h.Penetration)
	}
}

func TestSweep_SphereBox(t *testing.T) {
	ball := Sphere{Radius: 0.5}
	crate := Box{HalfExtents: math.Vec3{1, 1, 1}}

	tests := []struct {
		name     string
		origin   math.Vec3
		dir      math.Vec3
		distance float64
		normal   math.Vec3
	}{
		{"face", math.Vec3{-5, 0, 0}, math.Vec3{1, 0, 0}, 3.5, math.Vec3{-1, 0, 0}},
		{"top", math.Vec3{0, 4, 0}, math.Down, 2.5, math.Up},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := Sweep(ball, tt.origin, tt.dir, 10, crate, math.Vec3{})
			if !ok {
				t.Fatal("expected hit")
			}
			if !near(h.Distance, tt.distance) {
				t.Errorf("Distance = %v, want %v", h.Distance, tt.distance)
			}
			if !math.ApproxEqual(h.Normal, tt.normal, 1e-6) {
				t.Errorf("Normal = %v, want %v", h.Normal, tt.normal)
			}
		})
	}
}

func TestSweep_SphereBox_GrazingApproach(t *testing.T) {
	ball := Sphere{Radius: 0.5}
	slab := Box{HalfExtents: math.Vec3{5, 0.5, 5}}
	move := math.Vec3{10, -0.2, 0}.Mul(1.0 / 60)

	// Bottom of the ball starts 0.003 above the slab and sinks 0.0033 over the move.
	h, ok := Sweep(ball, math.Vec3{0, 0.503, 0}, move.Normalize(), move.Len(), slab, math.Vec3{0, -0.5, 0})
	if !ok {
		t.Fatal("expected hit on a shallow approach")
	}
	want := 0.003 / (0.2 / math.Vec3{10, -0.2, 0}.Len())
	if h.Distance > want+1e-6 || h.Distance < want-1e-3 {
		t.Errorf("Distance = %v, want about %v", h.Distance, want)
	}
	if !math.ApproxEqual(h.Normal, math.Up, 1e-6) {
		t.Errorf("Normal = %v, want up", h.Normal)
	}

	// Parallel to the top face and never touching it.
	if _, ok := Sweep(ball, math.Vec3{0, 0.503, 0}, math.Vec3{1, 0, 0}, 1, slab, math.Vec3{0, -0.5, 0}); ok {
		t.Error("parallel move above the slab reported a hit")
	}
}

func TestSweep_BoxSphereMirrorsSphereBox(t *testing.T) {
	box := Box{HalfExtents: math.Vec3{1, 1, 1}}
	ball := Sphere{Radius: 0.5}

	h, ok := Sweep(box, math.Vec3{-5, 0, 0}, math.Vec3{1, 0, 0}, 10, ball, math.Vec3{})
	if !ok {
		t.Fatal("expected hit")
	}
	if !near(h.Distance, 3.5) {
		t.Errorf("Distance = %v, want 3.5", h.Distance)
	}
	if !math.ApproxEqual(h.Normal, math.Vec3{-1, 0, 0}, 1e-6) {
		t.Errorf("Normal = %v, want (-1,0,0)", h.Normal)
	}
}

func TestCast_Accepts(t *testing.T) {
	overlap := Hit{Normal: math.Up, Penetration: 0.1}

	into := Cast{Direction: math.Down, MaxDistance: 1}
	if !into.Accepts(overlap) {
		t.Error("overlap moving into the surface should be accepted")
	}
	away := Cast{Direction: math.Up, MaxDistance: 1}
	if away.Accepts(overlap) {
		t.Error("overlap moving out of the surface should be skipped")
	}
	probe := Cast{MaxDistance: 0}
	if !probe.Accepts(overlap) {
		t.Error("pure overlap tests should report overlaps")
	}
	ignore := Cast{Direction: math.Down, MaxDistance: 1, IgnoreOriginPenetration: true}
	if ignore.Accepts(overlap) {
		t.Error("IgnoreOriginPenetration should drop starting overlaps")
	}
	if !ignore.Accepts(Hit{Normal: math.Up, Distance: 0.5}) {
		t.Error("regular hits are always accepted")
	}
}
