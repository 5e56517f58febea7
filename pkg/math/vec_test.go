package math

import (
	"math"
	"testing"
)

func TestProjectOnPlane(t *testing.T) {
	v := Vec3{5, 3, 0}
	n := Vec3{-1, 0, 0}
	got := ProjectOnPlane(v, n)
	want := Vec3{0, 3, 0}
	if got != want {
		t.Errorf("ProjectOnPlane() = %v, want %v", got, want)
	}
	if got.Dot(n) != 0 {
		t.Errorf("ProjectOnPlane() left %v along the normal", got.Dot(n))
	}
}

func TestProjectOnto(t *testing.T) {
	got := ProjectOnto(Vec3{2, 7, -4}, Up)
	want := Vec3{0, 7, 0}
	if got != want {
		t.Errorf("ProjectOnto() = %v, want %v", got, want)
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		v    Vec3
		want bool
	}{
		{Vec3{1, 2, 3}, true},
		{Vec3{}, true},
		{Vec3{math.NaN(), 0, 0}, false},
		{Vec3{0, math.Inf(1), 0}, false},
		{Vec3{0, 0, math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		if got := IsFinite(tt.v); got != tt.want {
			t.Errorf("IsFinite(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestNormalizeOrZero(t *testing.T) {
	if got := NormalizeOrZero(Vec3{}); got != Zero {
		t.Errorf("NormalizeOrZero(0) = %v, want zero", got)
	}
	if got := NormalizeOrZero(Vec3{math.NaN(), 1, 0}); got != Zero {
		t.Errorf("NormalizeOrZero(NaN) = %v, want zero", got)
	}
	l := NormalizeOrZero(Vec3{3, 4, 0}).Len()
	if l < 0.999 || l > 1.001 {
		t.Errorf("NormalizeOrZero().Len() = %v, want ~1", l)
	}
}

func TestDirectionAndLength(t *testing.T) {
	dir, l := DirectionAndLength(Vec3{0, 0, -8})
	if dir != (Vec3{0, 0, -1}) || l != 8 {
		t.Errorf("DirectionAndLength() = %v, %v, want (0,0,-1), 8", dir, l)
	}
}

func TestAngleBetween(t *testing.T) {
	got := AngleBetween(Up, Vec3{1, 1, 0})
	want := math.Pi / 4
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("AngleBetween() = %v, want %v", got, want)
	}
	if got := AngleBetween(Up, Up); got != 0 {
		t.Errorf("AngleBetween(up, up) = %v, want 0", got)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestApproxEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec3
		eps  float64
		want bool
	}{
		{"rounding near zero", Vec3{-2, 0, -4.440892098500626e-16}, Vec3{-2, 0, 0}, 1e-9, true},
		{"exact", Vec3{1, 2, 3}, Vec3{1, 2, 3}, 0, true},
		{"outside eps", Vec3{0, 0, 1e-6}, Vec3{}, 1e-9, false},
		{"large values", Vec3{1000, 0, 0}, Vec3{1000.5, 0, 0}, 0.1, false},
		{"nan", Vec3{math.NaN(), 0, 0}, Vec3{}, 1, false},
	}
	for _, tt := range tests {
		if got := ApproxEqual(tt.a, tt.b, tt.eps); got != tt.want {
			t.Errorf("%s: ApproxEqual(%v, %v, %v) = %v, want %v", tt.name, tt.a, tt.b, tt.eps, got, tt.want)
		}
	}
}
