// Package world stores the collision geometry characters move through.
//
// Readers never lock: every write publishes a new immutable Snapshot, and a
// tick queries the one snapshot it took at its start. Writes are serialized by
// the world's mutex, so obstacle movement is never observed halfway through a
// query phase.
package world

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// ErrUnknownObstacle is returned when an ID does not name an obstacle.
var ErrUnknownObstacle = errors.New("unknown obstacle")

// Kind classifies obstacles.
type Kind uint8

const (
	// Static obstacles never move after they are added.
	Static Kind = iota
	// Dynamic obstacles may move between ticks.
	Dynamic
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Obstacle is a collider placed in the world.
type Obstacle struct {
	ID       collision.EntityID
	Name     string
	Kind     Kind
	Shape    collision.Shape
	Position math.Vec3
}

// Bounds returns the obstacle's world-space bounds.
func (o Obstacle) Bounds() collision.AABB {
	return o.Shape.Bounds(o.Position)
}

// World owns the obstacle set.
type World struct {
	mu     sync.Mutex
	nextID collision.EntityID
	snap   atomic.Pointer[Snapshot]
}

// New creates an empty world.
func New() *World {
	w := &World{}
	w.snap.Store(&Snapshot{})
	return w
}

// Snapshot returns the current immutable view of the world.
func (w *World) Snapshot() *Snapshot {
	return w.snap.Load()
}

// Add inserts an obstacle and returns its ID.
func (w *World) Add(name string, kind Kind, shape collision.Shape, pos math.Vec3) collision.EntityID {
	var id collision.EntityID
	w.Update(func(tx *Tx) {
		id = tx.Add(name, kind, shape, pos)
	})
	return id
}

// Move relocates a dynamic obstacle.
func (w *World) Move(id collision.EntityID, pos math.Vec3) error {
	var err error
	w.Update(func(tx *Tx) {
		err = tx.Move(id, pos)
	})
	return err
}

// Remove deletes an obstacle.
func (w *World) Remove(id collision.EntityID) error {
	var err error
	w.Update(func(tx *Tx) {
		err = tx.Remove(id)
	})
	return err
}

// Update applies a batch of writes and publishes them as one snapshot.
func (w *World) Update(fn func(tx *Tx)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur := w.snap.Load()
	tx := &Tx{world: w, obstacles: make([]Obstacle, len(cur.obstacles))}
	copy(tx.obstacles, cur.obstacles)
	fn(tx)
	if !tx.dirty {
		return
	}
	w.snap.Store(&Snapshot{obstacles: tx.obstacles, version: cur.version + 1})
}

// Tx is a batch of writes against a private copy of the obstacle set.
// It is only valid inside World.Update.
type Tx struct {
	world     *World
	obstacles []Obstacle
	dirty     bool
}

// Add inserts an obstacle. IDs are assigned in increasing order, which keeps
// the obstacle slice sorted by ID.
func (tx *Tx) Add(name string, kind Kind, shape collision.Shape, pos math.Vec3) collision.EntityID {
	tx.world.nextID++
	id := tx.world.nextID
	tx.obstacles = append(tx.obstacles, Obstacle{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Shape:    shape,
		Position: pos,
	})
	tx.dirty = true
	return id
}

// Move relocates a dynamic obstacle.
func (tx *Tx) Move(id collision.EntityID, pos math.Vec3) error {
	i, ok := tx.index(id)
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrUnknownObstacle)
	}
	if tx.obstacles[i].Kind != Dynamic {
		return fmt.Errorf("move %d: obstacle %q is %s", id, tx.obstacles[i].Name, tx.obstacles[i].Kind)
	}
	tx.obstacles[i].Position = pos
	tx.dirty = true
	return nil
}

// Remove deletes an obstacle.
func (tx *Tx) Remove(id collision.EntityID) error {
	i, ok := tx.index(id)
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownObstacle)
	}
	tx.obstacles = append(tx.obstacles[:i], tx.obstacles[i+1:]...)
	tx.dirty = true
	return nil
}

func (tx *Tx) index(id collision.EntityID) (int, bool) {
	return findObstacle(tx.obstacles, id)
}
