package movement

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/internal/kcc"
	"github.com/Faultbox/midgard-kcc/internal/logger"
)

// EventKind identifies a grounded transition.
type EventKind uint8

// Event kinds.
const (
	EventLanded EventKind = iota
	EventTookOff
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventLanded:
		return "landed"
	case EventTookOff:
		return "took_off"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is a grounded state transition of one character.
type Event struct {
	Tick   uint64
	Entity collision.EntityID
	Kind   EventKind
	// Speed is the speed along the up axis before the transition: the
	// impact speed for a landing, the launch speed for a takeoff.
	Speed float64
}

// GroundEvents collects landing and takeoff events. It reads the grounded
// state after the tick has finished and never modifies the character.
type GroundEvents struct {
	// OnEvent is called for every transition, if set.
	OnEvent func(Event)

	mu     sync.Mutex
	events []Event
}

// Observe records the transition of c at tick, if there is one.
func (g *GroundEvents) Observe(tick uint64, c *kcc.Controller, _ kcc.Result) {
	var ev Event
	switch {
	case c.Grounded.Landed():
		ev = Event{Kind: EventLanded, Speed: -c.Character.PrevVelocity.Dot(up(c))}
	case c.Grounded.LeftGround():
		ev = Event{Kind: EventTookOff, Speed: c.Character.Velocity.Dot(up(c))}
	default:
		return
	}
	ev.Tick = tick
	ev.Entity = c.Character.ID

	logger.Named("movement").Debug("ground transition",
		zap.Uint64("entity", uint64(ev.Entity)),
		zap.Stringer("kind", ev.Kind),
		zap.Uint64("tick", tick),
		zap.Float64("speed", ev.Speed),
	)

	g.mu.Lock()
	g.events = append(g.events, ev)
	g.mu.Unlock()

	if g.OnEvent != nil {
		g.OnEvent(ev)
	}
}

// Drain returns the collected events and clears the buffer.
func (g *GroundEvents) Drain() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.events
	g.events = nil
	return out
}
