package kcc

import (
	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// DetectFloor probes for ground below the character and records the result in
// c.Floor. The previous normal is kept in PrevNormal. A probe that starts
// overlapping the ground counts as standing on it at distance 0.
func DetectFloor(caster collision.Caster, c *Controller) bool {
	f := &c.Floor
	f.PrevNormal = f.Normal

	dir := math.NormalizeOrZero(f.Direction)
	if math.IsZero(dir) {
		dir = c.up().Mul(-1)
	}
	probe := f.Probe
	if probe == nil {
		probe = c.Character.Collider
	}

	hit, ok := caster.CastShape(collision.Cast{
		Shape:       probe,
		Origin:      c.Character.Position,
		Rotation:    c.Character.Rotation,
		Direction:   dir,
		MaxDistance: f.MaxDistance,
		Filter:      c.filter(),
	})
	if !ok || math.IsZero(hit.Normal) || !math.IsFinite(hit.Normal) {
		f.Normal = math.Zero
		f.Distance = 0
		return false
	}
	f.Normal = hit.Normal
	f.Distance = hit.Distance
	return true
}

// UpdateGrounded derives the grounded state from the latest floor probe.
// Only surfaces within Settings.MaxSlopeAngle of the up axis count; steeper
// ground leaves the character airborne.
func UpdateGrounded(c *Controller) {
	c.Grounded.PrevGrounded = c.Grounded.Grounded
	c.Grounded.Grounded = c.Walkable(c.Floor.Normal)
}
