// Package movement provides the velocity contributors that run before a
// character is resolved and the consumers that react to the result.
package movement

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-kcc/internal/kcc"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Movement defaults.
const (
	DefaultGravity   = -9.81 * 2
	DefaultDampening = 0.9
	DefaultWalkSpeed = 2.0
	DefaultJumpSpeed = 5.0

	// settleThreshold is how far velocity may point against gravity while
	// grounded and still be treated as resting on the floor.
	settleThreshold = 0.01
)

// Gravity accelerates characters. While grounded and not moving against
// gravity, the velocity component along the character's up axis is removed.
type Gravity struct {
	Acceleration math.Vec3
}

// NewGravity returns the stock gravity pulling down the Y axis.
func NewGravity() Gravity {
	return Gravity{Acceleration: math.Vec3{0, DefaultGravity, 0}}
}

// Contribute implements kcc.Contributor.
func (g Gravity) Contribute(c *kcc.Controller, dt float64) {
	ch := &c.Character
	ch.Velocity = ch.Velocity.Add(g.Acceleration.Mul(dt))
	if c.Grounded.Grounded && g.Acceleration.Dot(ch.Velocity) > -settleThreshold {
		ch.Velocity = ch.Velocity.Sub(math.ProjectOnto(ch.Velocity, up(c)))
	}
}

// Dampening scales the velocity orthogonal to the up axis once per tick.
type Dampening struct {
	Factor float64
}

// Contribute implements kcc.Contributor.
func (d Dampening) Contribute(c *kcc.Controller, _ float64) {
	ch := &c.Character
	vertical := math.ProjectOnto(ch.Velocity, up(c))
	ch.Velocity = vertical.Add(ch.Velocity.Sub(vertical).Mul(d.Factor))
}

// Intent is an already normalized movement request for one tick.
type Intent struct {
	// Move is the planar move axis: X strafes right, Y walks forward.
	Move mgl64.Vec2
	Jump bool
	// Yaw is the facing angle around the up axis, in radians.
	Yaw float64
}

// Walker turns an Intent into velocity. Walking overrides the planar
// velocity while the move axis is non-zero; jumping is only allowed on the
// ground.
type Walker struct {
	Intent    Intent
	Speed     float64
	JumpSpeed float64
}

// NewWalker returns a walker with the stock speeds.
func NewWalker() *Walker {
	return &Walker{Speed: DefaultWalkSpeed, JumpSpeed: DefaultJumpSpeed}
}

// Contribute implements kcc.Contributor.
func (w *Walker) Contribute(c *kcc.Controller, _ float64) {
	ch := &c.Character
	u := up(c)
	facing := mgl64.QuatRotate(w.Intent.Yaw, u)
	ch.Rotation = facing

	if w.Intent.Move != (mgl64.Vec2{}) {
		local := math.Vec3{w.Intent.Move.X(), 0, -w.Intent.Move.Y()}
		dir := math.NormalizeOrZero(math.ProjectOnPlane(facing.Rotate(local), u))
		vertical := math.ProjectOnto(ch.Velocity, u)
		ch.Velocity = vertical.Add(dir.Mul(w.Speed))
	}

	if w.Intent.Jump && c.Grounded.Grounded {
		planar := math.ProjectOnPlane(ch.Velocity, u)
		ch.Velocity = planar.Add(u.Mul(w.JumpSpeed))
	}
}

func up(c *kcc.Controller) math.Vec3 {
	if math.IsZero(c.Character.Up) {
		return math.Up
	}
	return c.Character.Up
}
