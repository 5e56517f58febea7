package world

import (
	"sort"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Snapshot is an immutable view of the world. It implements collision.Caster
// and is safe for concurrent use.
type Snapshot struct {
	obstacles []Obstacle
	version   uint64
}

// Version increases with every published write.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of obstacles.
func (s *Snapshot) Len() int {
	return len(s.obstacles)
}

// Obstacle looks up an obstacle by ID.
func (s *Snapshot) Obstacle(id collision.EntityID) (Obstacle, bool) {
	i, ok := findObstacle(s.obstacles, id)
	if !ok {
		return Obstacle{}, false
	}
	return s.obstacles[i], true
}

// Obstacles returns a copy of the obstacle list ordered by ID.
func (s *Snapshot) Obstacles() []Obstacle {
	out := make([]Obstacle, len(s.obstacles))
	copy(out, s.obstacles)
	return out
}

// CastShape implements collision.Caster. Obstacles are tested in ID order;
// the nearest hit wins, and between starting overlaps the deepest one wins.
// Casts with non-finite input never hit.
func (s *Snapshot) CastShape(c collision.Cast) (collision.Hit, bool) {
	if c.Shape == nil || !math.IsFinite(c.Origin) || !math.IsFinite(c.Direction) || !(c.MaxDistance >= 0) {
		return collision.Hit{}, false
	}

	swept := c.Shape.Bounds(c.Origin).Extend(c.Direction.Mul(c.MaxDistance))
	var (
		best  collision.Hit
		found bool
	)
	for _, o := range s.obstacles {
		if c.Filter.Excludes(o.ID) {
			continue
		}
		if _, isPlane := o.Shape.(collision.Plane); !isPlane && !swept.Overlaps(o.Bounds()) {
			continue
		}
		h, ok := collision.Sweep(c.Shape, c.Origin, c.Direction, c.MaxDistance, o.Shape, o.Position)
		if !ok || !c.Accepts(h) {
			continue
		}
		h.Entity = o.ID
		if !found || closer(h, best) {
			best = h
			found = true
		}
	}
	return best, found
}

func closer(a, b collision.Hit) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Penetration > b.Penetration
}

func findObstacle(obstacles []Obstacle, id collision.EntityID) (int, bool) {
	i := sort.Search(len(obstacles), func(i int) bool {
		return obstacles[i].ID >= id
	})
	if i < len(obstacles) && obstacles[i].ID == id {
		return i, true
	}
	return 0, false
}
