// Package kcc implements a kinematic character controller: collide-and-slide
// movement resolution, floor detection and the grounded state built on top of
// it.
//
// Each character's state lives in one Controller that is owned by whoever
// ticks it. Nothing in this package keeps global mutable state, so distinct
// controllers may be ticked concurrently against the same collision.Caster.
package kcc

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Resolver policy constants.
const (
	// VelocityEpsilon is the squared speed below which a character is
	// treated as resting.
	VelocityEpsilon = 1e-4
	// MinStepLength is the remaining displacement below which the resolver
	// stops casting for this tick.
	MinStepLength = 1e-6
	// PlaneResetThreshold is how far a hit distance may drift from the skin
	// padding before the active planes are considered unrelated contacts.
	PlaneResetThreshold = 0.01
	// DepenetrationEpsilon is added to the overlap depth when pushing out.
	DepenetrationEpsilon = 1e-3
)

// ErrInvalidSettings is returned for settings a controller cannot run with.
var ErrInvalidSettings = errors.New("invalid controller settings")

// Settings are the per-character tunables supplied at spawn.
type Settings struct {
	// Bounces caps the shape casts the resolver may issue per tick.
	Bounces int
	// SkinPadding is the gap kept between the collider and surfaces.
	SkinPadding float64
	// MaxFloorDistance is the ground probe range.
	MaxFloorDistance float64
	// MaxSlopeAngle is the steepest walkable surface, in radians.
	MaxSlopeAngle float64
	// Depenetrate enables the overlap push-out pass after resolving.
	Depenetrate bool
	// DepenetrationDirection is the overlap test direction. Zero means the
	// character's down axis.
	DepenetrationDirection math.Vec3
}

// DefaultSettings returns the tunables of the stock character.
func DefaultSettings() Settings {
	return Settings{
		Bounces:          4,
		SkinPadding:      0.01,
		MaxFloorDistance: 0.1,
		MaxSlopeAngle:    mgl64.DegToRad(45),
		Depenetrate:      true,
	}
}

// Validate reports every problem with s.
func (s Settings) Validate() error {
	var errs []error
	if s.Bounces <= 0 {
		errs = append(errs, fmt.Errorf("bounces must be positive, got %d", s.Bounces))
	}
	if !(s.SkinPadding >= 0) || gomath.IsInf(s.SkinPadding, 0) {
		errs = append(errs, fmt.Errorf("skin padding must be a finite value >= 0, got %v", s.SkinPadding))
	}
	if !(s.MaxFloorDistance >= 0) || gomath.IsInf(s.MaxFloorDistance, 0) {
		errs = append(errs, fmt.Errorf("max floor distance must be a finite value >= 0, got %v", s.MaxFloorDistance))
	}
	if !(s.MaxSlopeAngle >= 0 && s.MaxSlopeAngle <= gomath.Pi) {
		errs = append(errs, fmt.Errorf("max slope angle must be within [0, pi], got %v", s.MaxSlopeAngle))
	}
	if !math.IsFinite(s.DepenetrationDirection) {
		errs = append(errs, errors.New("depenetration direction must be finite"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

// Character is the movement state of one entity.
type Character struct {
	ID       collision.EntityID
	Collider collision.Shape
	Position math.Vec3
	Rotation mgl64.Quat
	// Up is the unit up axis of the character.
	Up math.Vec3
	// Bounces is the iteration cap of the resolver.
	Bounces int
	// Velocity is the desired velocity before Resolve and the resolved
	// velocity after it.
	Velocity math.Vec3
	// PrevVelocity is the resolved velocity of the previous tick.
	PrevVelocity math.Vec3
}

// FloorState is the output of the floor detector.
type FloorState struct {
	// Direction is the unit direction the ground is probed in.
	Direction math.Vec3
	// Probe is the collider swept towards the ground. Nil uses the
	// character collider.
	Probe       collision.Shape
	MaxDistance float64
	// Normal is the ground normal, or zero when nothing was found within
	// MaxDistance.
	Normal     math.Vec3
	PrevNormal math.Vec3
	// Distance to the ground. Only meaningful while Normal is non-zero.
	Distance float64
}

// Found reports whether ground was detected this tick.
func (f FloorState) Found() bool {
	return !math.IsZero(f.Normal)
}

// GroundedState tracks walkable contact across ticks.
type GroundedState struct {
	Grounded     bool
	PrevGrounded bool
}

// Landed reports the airborne to grounded edge.
func (g GroundedState) Landed() bool {
	return g.Grounded && !g.PrevGrounded
}

// LeftGround reports the grounded to airborne edge.
func (g GroundedState) LeftGround() bool {
	return !g.Grounded && g.PrevGrounded
}

// Controller aggregates all per-entity movement state.
type Controller struct {
	Character Character
	Floor     FloorState
	Grounded  GroundedState
	Settings  Settings

	resolved math.Vec3
	planes   []math.Vec3
}

// NewController creates a controller for a character spawned at pos.
// The character starts airborne with zero velocity.
func NewController(id collision.EntityID, collider collision.Shape, pos math.Vec3, s Settings) (*Controller, error) {
	if collider == nil {
		return nil, fmt.Errorf("%w: nil collider", ErrInvalidSettings)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		Character: Character{
			ID:       id,
			Collider: collider,
			Position: pos,
			Rotation: mgl64.QuatIdent(),
			Up:       math.Up,
			Bounces:  s.Bounces,
		},
		Floor: FloorState{
			Direction:   math.Down,
			MaxDistance: s.MaxFloorDistance,
		},
		Settings: s,
		planes:   make([]math.Vec3, 0, s.Bounces),
	}, nil
}

// SetUp changes the character's up axis and points the floor probe the
// opposite way.
func (c *Controller) SetUp(up math.Vec3) {
	up = math.NormalizeOrZero(up)
	if math.IsZero(up) {
		return
	}
	c.Character.Up = up
	c.Floor.Direction = up.Mul(-1)
}

// Walkable reports whether a surface with normal n can be stood on.
func (c *Controller) Walkable(n math.Vec3) bool {
	if math.IsZero(n) {
		return false
	}
	return math.AngleBetween(n, c.up()) <= c.Settings.MaxSlopeAngle+1e-9
}

func (c *Controller) up() math.Vec3 {
	if math.IsZero(c.Character.Up) {
		return math.Up
	}
	return c.Character.Up
}

func (c *Controller) filter() collision.Filter {
	return collision.Excluding(c.Character.ID)
}
