package collision

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-kcc/pkg/math"
)

const (
	// advanceTolerance is the gap at which conservative advancement
	// considers two shapes touching.
	advanceTolerance = 1e-7
	maxAdvanceSteps  = 64
	maxRefineSteps   = 100
)

// Sweep moves shape from origin along the unit direction dir for up to
// maxDist and tests it against target resting at pos. The returned hit has no
// Entity set. Shapes that start overlapping report Distance 0 with the
// push-out normal and Penetration depth.
func Sweep(shape Shape, origin, dir math.Vec3, maxDist float64, target Shape, pos math.Vec3) (Hit, bool) {
	var (
		h  Hit
		ok bool
	)
	switch t := target.(type) {
	case Plane:
		h, ok = sweepPlane(shape, origin, dir, maxDist, t, pos)
	case Sphere:
		switch s := shape.(type) {
		case Sphere:
			h, ok = sweepSphereSphere(s.Radius, origin, dir, maxDist, t.Radius, pos)
		case Box:
			// A box moving onto a sphere is the sphere moving onto the box
			// in the opposite direction, seen from the other side.
			h, ok = sweepSphereBox(t.Radius, pos, dir.Mul(-1), maxDist, s.Bounds(origin))
			h.Normal = h.Normal.Mul(-1)
		}
	case Box:
		switch s := shape.(type) {
		case Sphere:
			h, ok = sweepSphereBox(s.Radius, origin, dir, maxDist, t.Bounds(pos))
		case Box:
			h, ok = sweepBoxBox(s.HalfExtents, origin, dir, maxDist, t.Bounds(pos))
		}
	}
	if !ok {
		return Hit{}, false
	}
	if maxDist > 0 {
		h.Fraction = mgl64.Clamp(h.Distance/maxDist, 0, 1)
	}
	return h, true
}

// sweepPlane handles any convex shape against a half-space using the shape's
// support radius along the plane normal.
func sweepPlane(shape Shape, origin, dir math.Vec3, maxDist float64, p Plane, pos math.Vec3) (Hit, bool) {
	if _, isPlane := shape.(Plane); isPlane {
		return Hit{}, false
	}
	n := p.Normal
	r := shape.SupportRadius(n)
	gap := n.Dot(origin.Sub(pos)) - r
	if gap < 0 {
		return Hit{Normal: n, Penetration: -gap}, true
	}
	closing := -n.Dot(dir)
	if closing <= 0 {
		return Hit{}, false
	}
	t := gap / closing
	if t > maxDist {
		return Hit{}, false
	}
	return Hit{Normal: n, Distance: t}, true
}

func sweepSphereSphere(r float64, origin, dir math.Vec3, maxDist float64, targetRadius float64, pos math.Vec3) (Hit, bool) {
	sum := r + targetRadius
	m := origin.Sub(pos)
	c := m.Dot(m) - sum*sum
	if c < 0 {
		dist := m.Len()
		n := math.NormalizeOrZero(m)
		if math.IsZero(n) {
			n = math.Up
		}
		return Hit{Normal: n, Penetration: sum - dist}, true
	}
	b := m.Dot(dir)
	if b >= 0 {
		return Hit{}, false
	}
	disc := b*b - c
	if disc < 0 {
		return Hit{}, false
	}
	t := -b - gomath.Sqrt(disc)
	if t < 0 {
		t = 0
	}
	if t > maxDist {
		return Hit{}, false
	}
	contact := origin.Add(dir.Mul(t))
	return Hit{Normal: math.NormalizeOrZero(contact.Sub(pos)), Distance: t}, true
}

// sweepBoxBox is a ray test against the Minkowski sum of both boxes, using the
// slab method. The normal comes from the last slab the ray entered.
func sweepBoxBox(half, origin, dir math.Vec3, maxDist float64, target AABB) (Hit, bool) {
	sum := target.Inflate(half)
	if sum.ContainsStrict(origin) {
		n, depth := sum.exitFace(origin)
		return Hit{Normal: n, Penetration: depth}, true
	}

	tmin := gomath.Inf(-1)
	tmax := gomath.Inf(1)
	enterAxis := -1
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			// Parallel slab; sliding exactly along a face is not a hit.
			if origin[i] <= sum.Min[i] || origin[i] >= sum.Max[i] {
				return Hit{}, false
			}
			continue
		}
		t1 := (sum.Min[i] - origin[i]) / dir[i]
		t2 := (sum.Max[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
			enterAxis = i
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if enterAxis < 0 || tmax < tmin || tmax <= 0 || tmin > maxDist {
		return Hit{}, false
	}
	var n math.Vec3
	if dir[enterAxis] > 0 {
		n[enterAxis] = -1
	} else {
		n[enterAxis] = 1
	}
	return Hit{Normal: n, Distance: gomath.Max(tmin, 0)}, true
}

// sweepSphereBox uses conservative advancement: the exact distance from the
// sphere center to the box bounds how far the sphere can safely travel.
func sweepSphereBox(r float64, origin, dir math.Vec3, maxDist float64, target AABB) (Hit, bool) {
	closest := target.ClosestPoint(origin)
	if closest == origin {
		n, depth := target.exitFace(origin)
		return Hit{Normal: n, Penetration: depth + r}, true
	}
	offset := origin.Sub(closest)
	gap := offset.Len() - r
	if gap < 0 {
		return Hit{Normal: offset.Mul(1 / offset.Len()), Penetration: -gap}, true
	}
	if gap <= advanceTolerance && dir.Dot(offset) >= 0 {
		return Hit{}, false
	}

	t := 0.0
	for step := 0; step < maxAdvanceSteps; step++ {
		p := origin.Add(dir.Mul(t))
		offset = p.Sub(target.ClosestPoint(p))
		dist := offset.Len()
		gap = dist - r
		if gap <= advanceTolerance {
			return Hit{Normal: math.NormalizeOrZero(offset), Distance: t}, true
		}
		t += gap
		if t > maxDist {
			return Hit{}, false
		}
	}
	return refineSphereBox(r, origin, dir, t, maxDist, target)
}

// refineSphereBox finishes a grazing approach that advancement could not
// close. The gap along the ray is convex in t, so its minimum is found by
// ternary search and the first contact by bisection between lo and it.
func refineSphereBox(r float64, origin, dir math.Vec3, lo, maxDist float64, target AABB) (Hit, bool) {
	gapAt := func(t float64) float64 {
		p := origin.Add(dir.Mul(t))
		return p.Sub(target.ClosestPoint(p)).Len() - r
	}

	a, b := lo, maxDist
	for i := 0; i < maxRefineSteps && b-a > 1e-12; i++ {
		m1 := a + (b-a)/3
		m2 := b - (b-a)/3
		if gapAt(m1) < gapAt(m2) {
			b = m2
		} else {
			a = m1
		}
	}
	hi := (a + b) / 2
	if gapAt(hi) > advanceTolerance {
		return Hit{}, false
	}

	for i := 0; i < maxRefineSteps && hi-lo > 1e-12; i++ {
		mid := (lo + hi) / 2
		if gapAt(mid) > advanceTolerance {
			lo = mid
		} else {
			hi = mid
		}
	}
	p := origin.Add(dir.Mul(lo))
	return Hit{Normal: math.NormalizeOrZero(p.Sub(target.ClosestPoint(p))), Distance: lo}, true
}
