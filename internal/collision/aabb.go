package collision

import (
	gomath "math"

	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// NewAABB creates an AABB from two corners in any order.
func NewAABB(a, b math.Vec3) AABB {
	box := AABB{Min: a, Max: b}
	for i := 0; i < 3; i++ {
		if box.Min[i] > box.Max[i] {
			box.Min[i], box.Max[i] = box.Max[i], box.Min[i]
		}
	}
	return box
}

// Center returns the box center.
func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Inflate grows the box by d on every side.
func (b AABB) Inflate(d math.Vec3) AABB {
	return AABB{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// Extend returns the smallest box containing b and b translated by delta.
// This is the region swept by b moving along delta.
func (b AABB) Extend(delta math.Vec3) AABB {
	out := b
	for i := 0; i < 3; i++ {
		if delta[i] < 0 {
			out.Min[i] += delta[i]
		} else {
			out.Max[i] += delta[i]
		}
	}
	return out
}

// Overlaps reports whether the boxes intersect or touch.
func (b AABB) Overlaps(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// ContainsStrict reports whether p lies strictly inside the box.
func (b AABB) ContainsStrict(p math.Vec3) bool {
	return p[0] > b.Min[0] && p[0] < b.Max[0] &&
		p[1] > b.Min[1] && p[1] < b.Max[1] &&
		p[2] > b.Min[2] && p[2] < b.Max[2]
}

// ClosestPoint returns the point of the box nearest to p.
func (b AABB) ClosestPoint(p math.Vec3) math.Vec3 {
	return math.Clamp(p, b.Min, b.Max)
}

// exitFace returns the face nearest to an interior point: its outward normal
// and the distance to it.
func (b AABB) exitFace(p math.Vec3) (math.Vec3, float64) {
	best := gomath.Inf(1)
	var normal math.Vec3
	for i := 0; i < 3; i++ {
		if d := p[i] - b.Min[i]; d < best {
			best = d
			normal = math.Vec3{}
			normal[i] = -1
		}
		if d := b.Max[i] - p[i]; d < best {
			best = d
			normal = math.Vec3{}
			normal[i] = 1
		}
	}
	return normal, best
}

// IsFinite reports whether both corners are finite.
func (b AABB) IsFinite() bool {
	return math.IsFinite(b.Min) && math.IsFinite(b.Max)
}
