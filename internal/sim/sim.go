// Package sim ticks every character in a world at a fixed rate.
//
// A step reads one world snapshot for all characters, resolves them
// (concurrently when more than one worker is configured), writes the new
// character positions back to the world in a single batch and finally runs
// the observers in spawn order. Characters therefore see each other at their
// previous-step positions, independent of scheduling.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/internal/kcc"
	"github.com/Faultbox/midgard-kcc/internal/logger"
	"github.com/Faultbox/midgard-kcc/internal/world"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Registry errors.
var (
	ErrDuplicateID = errors.New("body already registered")
	ErrUnknownID   = errors.New("unknown body")
)

// Observer consumes a character's state after its tick has completed.
// Observers run on the stepping goroutine, one body at a time.
type Observer interface {
	Observe(tick uint64, c *kcc.Controller, res kcc.Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(tick uint64, c *kcc.Controller, res kcc.Result)

// Observe implements Observer.
func (f ObserverFunc) Observe(tick uint64, c *kcc.Controller, res kcc.Result) {
	f(tick, c, res)
}

// Options configure a Simulation.
type Options struct {
	// Step is the fixed tick length used by Advance.
	Step time.Duration
	// MaxSteps caps the steps Advance runs per call. Backlog beyond it is
	// dropped.
	MaxSteps int
	// Workers is the number of characters resolved in parallel. Values
	// below 2 resolve serially.
	Workers int
}

// DefaultOptions returns a 60 Hz serial simulation.
func DefaultOptions() Options {
	return Options{
		Step:     time.Second / 60,
		MaxSteps: 5,
		Workers:  1,
	}
}

// Body is a registered character.
type Body struct {
	Name         string
	Controller   *kcc.Controller
	Contributors []kcc.Contributor
	// Last is the result of the most recent tick.
	Last kcc.Result
}

// BodySpec describes a character to spawn.
type BodySpec struct {
	Name         string
	Collider     collision.Shape
	Position     math.Vec3
	Settings     kcc.Settings
	Contributors []kcc.Contributor
}

// State is a read-only copy of a body's movement state.
type State struct {
	ID              collision.EntityID
	Name            string
	Position        math.Vec3
	Velocity        math.Vec3
	PrevVelocity    math.Vec3
	Grounded        bool
	PrevGrounded    bool
	FloorNormal     math.Vec3
	PrevFloorNormal math.Vec3
	FloorDistance   float64
}

// Simulation owns the characters of one world.
type Simulation struct {
	opts  Options
	world *world.World

	mu        sync.Mutex
	bodies    *orderedmap.OrderedMap[collision.EntityID, *Body]
	observers []Observer
	tick      uint64
	acc       time.Duration
}

// New creates a simulation over w.
func New(w *world.World, opts Options) *Simulation {
	if opts.Step <= 0 {
		opts.Step = DefaultOptions().Step
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultOptions().MaxSteps
	}
	return &Simulation{
		opts:   opts,
		world:  w,
		bodies: orderedmap.NewOrderedMap[collision.EntityID, *Body](),
	}
}

// World returns the simulated world.
func (s *Simulation) World() *world.World {
	return s.world
}

// Options returns the simulation options.
func (s *Simulation) Options() Options {
	return s.opts
}

// AddObserver registers an observer. Observers run in registration order.
func (s *Simulation) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Spawn adds a character body to the world and registers it.
func (s *Simulation) Spawn(spec BodySpec) (collision.EntityID, error) {
	if spec.Collider == nil {
		return collision.NoEntity, fmt.Errorf("spawn %q: %w: nil collider", spec.Name, kcc.ErrInvalidSettings)
	}
	if err := spec.Settings.Validate(); err != nil {
		return collision.NoEntity, fmt.Errorf("spawn %q: %w", spec.Name, err)
	}

	id := s.world.Add(spec.Name, world.Dynamic, spec.Collider, spec.Position)
	c, err := kcc.NewController(id, spec.Collider, spec.Position, spec.Settings)
	if err != nil {
		_ = s.world.Remove(id)
		return collision.NoEntity, fmt.Errorf("spawn %q: %w", spec.Name, err)
	}
	if err := s.Adopt(spec.Name, c, spec.Contributors...); err != nil {
		_ = s.world.Remove(id)
		return collision.NoEntity, err
	}
	return id, nil
}

// Adopt registers an existing controller. Its ID must name a dynamic
// obstacle of the world that stands for the character's body.
func (s *Simulation) Adopt(name string, c *kcc.Controller, contributors ...kcc.Contributor) error {
	id := c.Character.ID
	o, ok := s.world.Snapshot().Obstacle(id)
	if !ok {
		return fmt.Errorf("adopt %d: %w", id, world.ErrUnknownObstacle)
	}
	if o.Kind != world.Dynamic {
		return fmt.Errorf("adopt %d: obstacle %q is %s", id, o.Name, o.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bodies.Get(id); exists {
		return fmt.Errorf("adopt %d: %w", id, ErrDuplicateID)
	}
	s.bodies.Set(id, &Body{Name: name, Controller: c, Contributors: contributors})
	logger.Named("sim").Debug("body registered", zap.Uint64("entity", uint64(id)), zap.String("name", name))
	return nil
}

// Despawn unregisters a body and removes it from the world.
func (s *Simulation) Despawn(id collision.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bodies.Delete(id) {
		return fmt.Errorf("despawn %d: %w", id, ErrUnknownID)
	}
	if err := s.world.Remove(id); err != nil && !errors.Is(err, world.ErrUnknownObstacle) {
		return fmt.Errorf("despawn %d: %w", id, err)
	}
	return nil
}

// Len returns the number of registered bodies.
func (s *Simulation) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies.Len()
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// State returns a copy of a body's state.
func (s *Simulation) State(id collision.EntityID) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies.Get(id)
	if !ok {
		return State{}, fmt.Errorf("state %d: %w", id, ErrUnknownID)
	}
	return stateOf(b), nil
}

// States returns every body's state in spawn order.
func (s *Simulation) States() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]State, 0, s.bodies.Len())
	for el := s.bodies.Front(); el != nil; el = el.Next() {
		out = append(out, stateOf(el.Value))
	}
	return out
}

// Modify runs fn on a body's controller between steps. Position changes
// are written to the world immediately.
func (s *Simulation) Modify(id collision.EntityID, fn func(c *kcc.Controller)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies.Get(id)
	if !ok {
		return fmt.Errorf("modify %d: %w", id, ErrUnknownID)
	}
	before := b.Controller.Character.Position
	fn(b.Controller)
	if after := b.Controller.Character.Position; after != before {
		if err := s.world.Move(id, after); err != nil {
			return fmt.Errorf("modify %d: %w", id, err)
		}
	}
	return nil
}

// SetVelocity overwrites a body's velocity.
func (s *Simulation) SetVelocity(id collision.EntityID, v math.Vec3) error {
	return s.Modify(id, func(c *kcc.Controller) { c.Character.Velocity = v })
}

// Teleport moves a body without resolving collisions.
func (s *Simulation) Teleport(id collision.EntityID, pos math.Vec3) error {
	return s.Modify(id, func(c *kcc.Controller) { c.Character.Position = pos })
}

// MoveObstacle relocates a dynamic obstacle. The move is seen from the next
// step on.
func (s *Simulation) MoveObstacle(id collision.EntityID, pos math.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, isBody := s.bodies.Get(id); isBody {
		return fmt.Errorf("move obstacle %d: is a character, use Teleport", id)
	}
	return s.world.Move(id, pos)
}

// Step advances every body by dt seconds.
func (s *Simulation) Step(dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(dt)
}

// Advance adds elapsed wall time to the accumulator and runs as many fixed
// steps as fit, up to Options.MaxSteps. It returns the number of steps run.
func (s *Simulation) Advance(elapsed time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elapsed > 0 {
		s.acc += elapsed
	}
	dt := s.opts.Step.Seconds()
	n := 0
	for s.acc >= s.opts.Step && n < s.opts.MaxSteps {
		if err := s.step(dt); err != nil {
			return n, err
		}
		s.acc -= s.opts.Step
		n++
	}
	if s.acc >= s.opts.Step {
		dropped := s.acc / s.opts.Step
		logger.Named("sim").Warn("simulation falling behind, dropping steps",
			zap.Int64("dropped", int64(dropped)),
			zap.Uint64("tick", s.tick),
		)
		s.acc %= s.opts.Step
	}
	return n, nil
}

func (s *Simulation) step(dt float64) error {
	snap := s.world.Snapshot()
	bodies := make([]*Body, 0, s.bodies.Len())
	for el := s.bodies.Front(); el != nil; el = el.Next() {
		bodies = append(bodies, el.Value)
	}

	if s.opts.Workers > 1 && len(bodies) > 1 {
		var g errgroup.Group
		g.SetLimit(s.opts.Workers)
		for _, b := range bodies {
			g.Go(func() error {
				b.Last = kcc.Tick(snap, b.Controller, dt, b.Contributors...)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, b := range bodies {
			b.Last = kcc.Tick(snap, b.Controller, dt, b.Contributors...)
		}
	}

	var syncErr error
	s.world.Update(func(tx *world.Tx) {
		for _, b := range bodies {
			ch := &b.Controller.Character
			if err := tx.Move(ch.ID, ch.Position); err != nil {
				syncErr = errors.Join(syncErr, err)
			}
		}
	})
	s.tick++
	if syncErr != nil {
		return fmt.Errorf("step %d: sync bodies: %w", s.tick, syncErr)
	}

	for _, b := range bodies {
		for _, o := range s.observers {
			o.Observe(s.tick, b.Controller, b.Last)
		}
	}
	return nil
}

func stateOf(b *Body) State {
	c := b.Controller
	return State{
		ID:              c.Character.ID,
		Name:            b.Name,
		Position:        c.Character.Position,
		Velocity:        c.Character.Velocity,
		PrevVelocity:    c.Character.PrevVelocity,
		Grounded:        c.Grounded.Grounded,
		PrevGrounded:    c.Grounded.PrevGrounded,
		FloorNormal:     c.Floor.Normal,
		PrevFloorNormal: c.Floor.PrevNormal,
		FloorDistance:   c.Floor.Distance,
	}
}
