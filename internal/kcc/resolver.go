package kcc

import (
	"fmt"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/internal/logger"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// StopReason tells why the resolver loop ended.
type StopReason uint8

const (
	// StopClear means the remaining motion was applied without a hit.
	StopClear StopReason = iota
	// StopRest means the velocity fell below VelocityEpsilon.
	StopRest
	// StopConsumed means the remaining displacement became negligible.
	StopConsumed
	// StopDegenerate means sliding would reverse the intended motion.
	StopDegenerate
	// StopNonFinite means the velocity contained NaN or Inf.
	StopNonFinite
	// StopBudget means every bounce was spent while still blocked.
	StopBudget
	// StopSkipped means the step was not run because dt was not usable.
	StopSkipped
)

var stopNames = [...]string{"clear", "rest", "consumed", "degenerate", "non-finite", "budget", "skipped"}

// String returns the reason name.
func (r StopReason) String() string {
	if int(r) < len(stopNames) {
		return stopNames[r]
	}
	return fmt.Sprintf("stop(%d)", uint8(r))
}

// Result summarizes one resolve.
type Result struct {
	// Displacement is the motion applied by the slide loop.
	Displacement math.Vec3
	// Depenetration is the push-out applied after the loop.
	Depenetration math.Vec3
	// Velocity is the resolved velocity stored on the character.
	Velocity math.Vec3
	// Casts is the number of shape casts the slide loop issued.
	Casts int
	// Contacts is the number of surfaces hit.
	Contacts int
	Stop     StopReason
}

// Resolve moves the character by Velocity*dt, sliding along whatever it hits.
//
// Each bounce casts the collider along the remaining motion, advances to just
// short of the contact, and clips the remaining motion and the velocity
// against the contact plane. Consecutive contacts form a set of active planes;
// with two or more, motion is confined to the creases between them. At most
// Character.Bounces casts are issued; motion left over when the budget runs
// out is dropped.
//
// The clipped velocity becomes the new Velocity and the previous resolved
// velocity moves to PrevVelocity. Non-finite velocity is zeroed and logged.
// An invalid dt leaves position and velocity untouched but still shifts the
// velocity history.
func Resolve(caster collision.Caster, c *Controller, dt float64) Result {
	ch := &c.Character
	if !(dt > 0) || gomath.IsInf(dt, 0) {
		ch.PrevVelocity = c.resolved
		c.resolved = ch.Velocity
		return Result{Velocity: ch.Velocity, Stop: StopSkipped}
	}

	var (
		res       Result
		vel       = ch.Velocity
		remaining = vel.Mul(dt)
		skin      = c.Settings.SkinPadding
		filter    = c.filter()
	)
	c.planes = c.planes[:0]
	res.Stop = StopBudget

	for bounce := 0; bounce < ch.Bounces; bounce++ {
		if !math.IsFinite(vel) || !math.IsFinite(remaining) {
			logger.Named("kcc").Warn("non-finite velocity, stopping character",
				zap.Uint64("entity", uint64(ch.ID)),
				zap.Int("bounce", bounce),
				zap.String("velocity", fmt.Sprint(vel)),
			)
			vel = math.Zero
			res.Stop = StopNonFinite
			break
		}
		if vel.LenSqr() < VelocityEpsilon {
			vel = math.Zero
			res.Stop = StopRest
			break
		}
		dir, length := math.DirectionAndLength(remaining)
		if length < MinStepLength {
			res.Stop = StopConsumed
			break
		}

		hit, ok := caster.CastShape(collision.Cast{
			Shape:       ch.Collider,
			Origin:      ch.Position,
			Rotation:    ch.Rotation,
			Direction:   dir,
			MaxDistance: length,
			Filter:      filter,
		})
		res.Casts++
		if !ok {
			ch.Position = ch.Position.Add(remaining)
			res.Displacement = res.Displacement.Add(remaining)
			res.Stop = StopClear
			break
		}
		res.Contacts++

		safe := gomath.Max(hit.Distance-skin, 0)
		step := dir.Mul(safe)
		ch.Position = ch.Position.Add(step)
		res.Displacement = res.Displacement.Add(step)

		if gomath.Abs(hit.Distance-skin) > PlaneResetThreshold {
			c.planes = c.planes[:0]
		}
		c.planes = append(c.planes, hit.Normal)

		next := math.ProjectOnPlane(dir.Mul(length-safe), hit.Normal)
		nextVel := math.ProjectOnPlane(vel, hit.Normal)
		if len(c.planes) > 1 {
			next, nextVel = clipToCreases(c.planes, next, nextVel)
		}

		if next.Dot(remaining) <= 0 {
			logger.Named("kcc").Debug("slide reverses motion, stopping",
				zap.Uint64("entity", uint64(ch.ID)),
				zap.Int("bounce", bounce),
				zap.Int("planes", len(c.planes)),
			)
			vel = math.Zero
			res.Stop = StopDegenerate
			break
		}
		remaining = next
		vel = nextVel
	}

	c.Character.PrevVelocity = c.resolved
	c.resolved = vel
	ch.Velocity = vel
	res.Velocity = vel
	return res
}

// clipToCreases confines motion to the lines where cyclically adjacent active
// planes meet. Parallel planes have no crease and are skipped.
func clipToCreases(planes []math.Vec3, disp, vel math.Vec3) (math.Vec3, math.Vec3) {
	for i, p := range planes {
		crease := math.NormalizeOrZero(p.Cross(planes[(i+1)%len(planes)]))
		if math.IsZero(crease) {
			continue
		}
		disp = math.ProjectOnto(disp, crease)
		vel = math.ProjectOnto(vel, crease)
	}
	return disp, vel
}

// Depenetrate runs a zero-length overlap test and pushes the character out of
// the deepest overlap along its normal. It returns the applied push.
func Depenetrate(caster collision.Caster, c *Controller) math.Vec3 {
	ch := &c.Character
	dir := math.NormalizeOrZero(c.Settings.DepenetrationDirection)
	if math.IsZero(dir) {
		dir = c.up().Mul(-1)
	}
	hit, ok := caster.CastShape(collision.Cast{
		Shape:     ch.Collider,
		Origin:    ch.Position,
		Rotation:  ch.Rotation,
		Direction: dir,
		Filter:    c.filter(),
	})
	if !ok || !hit.Overlapping() {
		return math.Zero
	}
	push := hit.Normal.Mul(hit.Penetration + DepenetrationEpsilon)
	if !math.IsFinite(push) {
		return math.Zero
	}
	ch.Position = ch.Position.Add(push)
	return push
}
