// Package math provides vector helpers for character movement built on mgl64.
package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a 3D vector.
type Vec3 = mgl64.Vec3

// Common axes.
var (
	Zero = Vec3{}
	Up   = Vec3{0, 1, 0}
	Down = Vec3{0, -1, 0}
)

// IsZero reports whether every component is exactly zero.
func IsZero(v Vec3) bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// IsFinite reports whether no component is NaN or infinite.
func IsFinite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// NormalizeOrZero returns a unit vector, or the zero vector for zero-length
// and non-finite input. mgl64's Normalize divides by zero in that case.
func NormalizeOrZero(v Vec3) Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// DirectionAndLength splits v into a unit direction and its magnitude.
func DirectionAndLength(v Vec3) (Vec3, float64) {
	l := v.Len()
	if l == 0 {
		return Vec3{}, 0
	}
	return v.Mul(1 / l), l
}

// ProjectOnPlane removes the component of v along the plane normal n.
// n must be unit length.
func ProjectOnPlane(v, n Vec3) Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}

// ProjectOnto returns the component of v along axis. axis must be unit length.
func ProjectOnto(v, axis Vec3) Vec3 {
	return axis.Mul(axis.Dot(v))
}

// AngleBetween returns the angle between a and b in radians.
// Zero-length input yields pi/2.
func AngleBetween(a, b Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return math.Pi / 2
	}
	cos := a.Dot(b) / (la * lb)
	return math.Acos(mgl64.Clamp(cos, -1, 1))
}

// ApproxEqual reports whether every component of a and b differs by at most
// eps. The comparison is absolute, so it behaves the same near zero.
func ApproxEqual(a, b Vec3, eps float64) bool {
	for i := range a {
		if !(math.Abs(a[i]-b[i]) <= eps) {
			return false
		}
	}
	return true
}

// Abs returns the component-wise absolute value.
func Abs(v Vec3) Vec3 {
	return Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

// Clamp clamps every component of v into [lo, hi].
func Clamp(v, lo, hi Vec3) Vec3 {
	return Vec3{
		mgl64.Clamp(v[0], lo[0], hi[0]),
		mgl64.Clamp(v[1], lo[1], hi[1]),
		mgl64.Clamp(v[2], lo[2], hi[2]),
	}
}
