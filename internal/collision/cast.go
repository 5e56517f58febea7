package collision

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// EntityID identifies a body in the collision world.
type EntityID uint64

// NoEntity is the zero EntityID. It is never assigned to a body.
const NoEntity EntityID = 0

// Hit is the result of a shape cast. It is only valid for the query that
// produced it.
type Hit struct {
	// Entity is the body that was hit.
	Entity EntityID
	// Normal is the unit surface normal, pointing away from the surface
	// towards the cast shape.
	Normal math.Vec3
	// Distance is how far the shape travelled along the cast direction
	// before touching.
	Distance float64
	// Fraction is Distance divided by the cast's max distance, in [0,1].
	// Zero-length casts report 0.
	Fraction float64
	// Penetration is the overlap depth along Normal when the shape started
	// inside the surface; 0 otherwise.
	Penetration float64
}

// Overlapping reports whether the cast started in contact with the surface.
func (h Hit) Overlapping() bool {
	return h.Penetration > 0
}

// Filter selects which bodies a cast may hit.
type Filter struct {
	Exclude []EntityID
}

// Excluding returns a filter that skips the given bodies.
func Excluding(ids ...EntityID) Filter {
	return Filter{Exclude: ids}
}

// Excludes reports whether id must be skipped.
func (f Filter) Excludes(id EntityID) bool {
	return slices.Contains(f.Exclude, id)
}

// Cast describes a swept shape query.
type Cast struct {
	Shape    Shape
	Origin   math.Vec3
	Rotation mgl64.Quat
	// Direction must be unit length, or zero for an overlap test.
	Direction   math.Vec3
	MaxDistance float64
	// IgnoreOriginPenetration drops hits against bodies the shape already
	// overlaps at its origin.
	IgnoreOriginPenetration bool
	Filter                  Filter
}

// Caster is the spatial query provider used by the character controller.
// Implementations must be safe for concurrent use by multiple goroutines and
// deterministic for a fixed set of obstacles.
type Caster interface {
	// CastShape returns the nearest hit along the cast, or false if the
	// shape reaches MaxDistance without touching anything.
	CastShape(c Cast) (Hit, bool)
}

// Accepts applies the cast's origin-overlap policy to a candidate hit.
// Starting overlaps are reported only when the cast moves into the surface
// or is a pure overlap test, so a shape can always leave a surface it rests in.
func (c Cast) Accepts(h Hit) bool {
	if h.Distance > 0 {
		return true
	}
	if h.Overlapping() && c.IgnoreOriginPenetration {
		return false
	}
	if c.MaxDistance == 0 || math.IsZero(c.Direction) {
		return true
	}
	return c.Direction.Dot(h.Normal) < 0
}
