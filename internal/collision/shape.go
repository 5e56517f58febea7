// Package collision provides collider shapes and the swept shape tests behind
// the character controller's spatial queries.
package collision

import (
	gomath "math"

	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Shape is a convex collider. Shapes are positioned by their center and are
// axis aligned; rotation is not applied to the built-in shapes.
type Shape interface {
	// Bounds returns the world-space bounding box of the shape centered at c.
	Bounds(c math.Vec3) AABB
	// SupportRadius returns the extent of the shape along the unit direction n.
	SupportRadius(n math.Vec3) float64
}

// Sphere is a ball collider.
type Sphere struct {
	Radius float64
}

// Bounds implements Shape.
func (s Sphere) Bounds(c math.Vec3) AABB {
	r := math.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: c.Sub(r), Max: c.Add(r)}
}

// SupportRadius implements Shape.
func (s Sphere) SupportRadius(math.Vec3) float64 {
	return s.Radius
}

// Box is an axis-aligned box collider.
type Box struct {
	HalfExtents math.Vec3
}

// Bounds implements Shape.
func (b Box) Bounds(c math.Vec3) AABB {
	return AABB{Min: c.Sub(b.HalfExtents), Max: c.Add(b.HalfExtents)}
}

// SupportRadius implements Shape.
func (b Box) SupportRadius(n math.Vec3) float64 {
	h := b.HalfExtents
	return gomath.Abs(h[0]*n[0]) + gomath.Abs(h[1]*n[1]) + gomath.Abs(h[2]*n[2])
}

// Plane is an infinite half-space. The obstacle position is a point on the
// plane and everything behind Normal is solid. Planes are only valid as
// static geometry; casting a plane never hits.
type Plane struct {
	Normal math.Vec3
}

// Bounds implements Shape. A plane is unbounded.
func (Plane) Bounds(math.Vec3) AABB {
	inf := gomath.Inf(1)
	return AABB{
		Min: math.Vec3{-inf, -inf, -inf},
		Max: math.Vec3{inf, inf, inf},
	}
}

// SupportRadius implements Shape.
func (Plane) SupportRadius(math.Vec3) float64 {
	return gomath.Inf(1)
}
