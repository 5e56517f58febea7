// Package scene loads level descriptions from YAML and builds them into a
// collision world.
package scene

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/internal/movement"
	"github.com/Faultbox/midgard-kcc/internal/world"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Scene errors.
var (
	ErrUnknownShape = errors.New("unknown shape")
	ErrUnknownKind  = errors.New("unknown obstacle kind")
)

// Scene is a level: fixed geometry plus character spawn points.
type Scene struct {
	Name      string         `yaml:"name"`
	Obstacles []ObstacleSpec `yaml:"obstacles"`
	Spawns    []SpawnSpec    `yaml:"spawns"`
}

// ObstacleSpec describes one obstacle. Which size fields apply depends on
// Shape: planes use Normal, boxes HalfExtents and spheres Radius.
type ObstacleSpec struct {
	Name        string    `yaml:"name"`
	Shape       string    `yaml:"shape"`
	Kind        string    `yaml:"kind,omitempty"`
	Position    math.Vec3 `yaml:"position"`
	Normal      math.Vec3 `yaml:"normal,omitempty"`
	HalfExtents math.Vec3 `yaml:"half_extents,omitempty"`
	Radius      float64   `yaml:"radius,omitempty"`
	// Sway moves a dynamic obstacle back and forth around Position by up to
	// this offset, once per Period seconds.
	Sway   math.Vec3 `yaml:"sway,omitempty"`
	Period float64   `yaml:"period,omitempty"`
}

// Moving reports whether the obstacle follows a sway path.
func (o ObstacleSpec) Moving() bool {
	return !math.IsZero(o.Sway)
}

// PositionAt returns the obstacle position t seconds into the run.
func (o ObstacleSpec) PositionAt(t float64) math.Vec3 {
	if !o.Moving() || !(o.Period > 0) {
		return o.Position
	}
	return o.Position.Add(o.Sway.Mul(gomath.Sin(2 * gomath.Pi * t / o.Period)))
}

// SpawnSpec places a character.
type SpawnSpec struct {
	Name     string    `yaml:"name"`
	Position math.Vec3 `yaml:"position"`
	// Radius overrides the configured collider radius when positive.
	Radius float64    `yaml:"radius,omitempty"`
	Intent IntentSpec `yaml:"intent,omitempty"`
}

// IntentSpec is a constant movement request for a spawned character, used by
// headless runs.
type IntentSpec struct {
	Move [2]float64 `yaml:"move,omitempty"`
	Jump bool       `yaml:"jump,omitempty"`
	// YawDeg is the facing angle in degrees.
	YawDeg float64 `yaml:"yaw_deg,omitempty"`
}

// Intent converts the spec to a movement intent.
func (s IntentSpec) Intent() movement.Intent {
	return movement.Intent{
		Move: mgl64.Vec2{s.Move[0], s.Move[1]},
		Jump: s.Jump,
		Yaw:  mgl64.DegToRad(s.YawDeg),
	}
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scene.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every obstacle and spawn.
func (s *Scene) Validate() error {
	var errs []error
	for i, o := range s.Obstacles {
		if _, err := o.Collider(); err != nil {
			errs = append(errs, fmt.Errorf("obstacle %d (%s): %w", i, o.Name, err))
		}
		if _, err := o.ObstacleKind(); err != nil {
			errs = append(errs, fmt.Errorf("obstacle %d (%s): %w", i, o.Name, err))
		}
		if !math.IsFinite(o.Position) {
			errs = append(errs, fmt.Errorf("obstacle %d (%s): non-finite position", i, o.Name))
		}
		if err := o.validateSway(); err != nil {
			errs = append(errs, fmt.Errorf("obstacle %d (%s): %w", i, o.Name, err))
		}
	}
	for i, sp := range s.Spawns {
		if !math.IsFinite(sp.Position) {
			errs = append(errs, fmt.Errorf("spawn %d (%s): non-finite position", i, sp.Name))
		}
		if sp.Radius < 0 {
			errs = append(errs, fmt.Errorf("spawn %d (%s): negative radius %v", i, sp.Name, sp.Radius))
		}
	}
	return errors.Join(errs...)
}

// Collider returns the collision shape for the spec.
func (o ObstacleSpec) Collider() (collision.Shape, error) {
	switch strings.ToLower(o.Shape) {
	case "plane":
		n := math.NormalizeOrZero(o.Normal)
		if math.IsZero(n) || !math.IsFinite(n) {
			return nil, fmt.Errorf("plane needs a non-zero normal")
		}
		return collision.Plane{Normal: n}, nil
	case "box":
		h := o.HalfExtents
		if !(h.X() > 0 && h.Y() > 0 && h.Z() > 0) || !math.IsFinite(h) {
			return nil, fmt.Errorf("box needs positive half extents, got %v", h)
		}
		return collision.Box{HalfExtents: h}, nil
	case "sphere":
		if !(o.Radius > 0) {
			return nil, fmt.Errorf("sphere needs a positive radius, got %v", o.Radius)
		}
		return collision.Sphere{Radius: o.Radius}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, o.Shape)
	}
}

func (o ObstacleSpec) validateSway() error {
	if !o.Moving() {
		return nil
	}
	if !math.IsFinite(o.Sway) {
		return errors.New("non-finite sway")
	}
	if kind, err := o.ObstacleKind(); err == nil && kind != world.Dynamic {
		return fmt.Errorf("sway needs a dynamic obstacle, got %s", kind)
	}
	if !(o.Period > 0) || gomath.IsInf(o.Period, 0) {
		return fmt.Errorf("sway needs a positive period, got %v", o.Period)
	}
	return nil
}

// ObstacleKind parses Kind. Empty means static.
func (o ObstacleSpec) ObstacleKind() (world.Kind, error) {
	switch strings.ToLower(o.Kind) {
	case "", "static":
		return world.Static, nil
	case "dynamic":
		return world.Dynamic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, o.Kind)
	}
}

// Build adds the scene's obstacles to w in one batch and returns their IDs
// in scene order.
func (s *Scene) Build(w *world.World) ([]collision.EntityID, error) {
	return s.Replace(w, nil)
}

// Replace removes the obstacles in old and adds the scene's obstacles, all in
// one batch, so no tick ever sees a half-built level. IDs in old that are no
// longer present are ignored.
func (s *Scene) Replace(w *world.World, old []collision.EntityID) ([]collision.EntityID, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	ids := make([]collision.EntityID, 0, len(s.Obstacles))
	w.Update(func(tx *world.Tx) {
		for _, id := range old {
			_ = tx.Remove(id)
		}
		for _, o := range s.Obstacles {
			shape, _ := o.Collider()
			kind, _ := o.ObstacleKind()
			ids = append(ids, tx.Add(o.Name, kind, shape, o.Position))
		}
	})
	return ids, nil
}
