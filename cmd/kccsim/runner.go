package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/internal/config"
	"github.com/Faultbox/midgard-kcc/internal/kcc"
	"github.com/Faultbox/midgard-kcc/internal/logger"
	"github.com/Faultbox/midgard-kcc/internal/movement"
	"github.com/Faultbox/midgard-kcc/internal/scene"
	"github.com/Faultbox/midgard-kcc/internal/sim"
	"github.com/Faultbox/midgard-kcc/internal/world"
)

// runner wires a scene, the simulation and the optional scene watcher.
type runner struct {
	cfg       *config.Config
	world     *world.World
	sim       *sim.Simulation
	events    *movement.GroundEvents
	watcher   *scene.Watcher
	obstacles []collision.EntityID
	movers    []mover
}

// mover is a scene obstacle driven along its sway path.
type mover struct {
	id   collision.EntityID
	spec scene.ObstacleSpec
}

func moversOf(lvl *scene.Scene, ids []collision.EntityID) []mover {
	var out []mover
	for i, o := range lvl.Obstacles {
		if o.Moving() {
			out = append(out, mover{id: ids[i], spec: o})
		}
	}
	return out
}

func newRunner(cfg *config.Config) (*runner, error) {
	lvl, err := loadScene(cfg.Scene.Path)
	if err != nil {
		return nil, err
	}

	w := world.New()
	ids, err := lvl.Build(w)
	if err != nil {
		return nil, fmt.Errorf("build scene %q: %w", lvl.Name, err)
	}

	r := &runner{
		cfg:       cfg,
		world:     w,
		sim:       sim.New(w, cfg.Simulation.Options()),
		obstacles: ids,
		movers:    moversOf(lvl, ids),
	}
	r.events = &movement.GroundEvents{OnEvent: r.logEvent}
	r.sim.AddObserver(r.events)

	for _, sp := range lvl.Spawns {
		if _, err := r.spawn(sp); err != nil {
			return nil, err
		}
	}

	logger.Info("scene loaded",
		zap.String("scene", lvl.Name),
		zap.Int("obstacles", len(ids)),
		zap.Int("moving", len(r.movers)),
		zap.Int("characters", r.sim.Len()),
	)

	if cfg.Scene.Watch && cfg.Scene.Path != "" {
		r.watcher, err = scene.NewWatcher(cfg.Scene.Path)
		if err != nil {
			return nil, fmt.Errorf("watch scene: %w", err)
		}
	}
	return r, nil
}

func loadScene(path string) (*scene.Scene, error) {
	if path == "" {
		return scene.Demo()
	}
	return scene.Load(path)
}

func (r *runner) spawn(sp scene.SpawnSpec) (collision.EntityID, error) {
	mv := r.cfg.Movement
	radius := r.cfg.Character.Radius
	if sp.Radius > 0 {
		radius = sp.Radius
	}

	walker := movement.NewWalker()
	walker.Speed = mv.WalkSpeed
	walker.JumpSpeed = mv.JumpSpeed
	walker.Intent = sp.Intent.Intent()

	return r.sim.Spawn(sim.BodySpec{
		Name:     sp.Name,
		Collider: collision.Sphere{Radius: radius},
		Position: sp.Position,
		Settings: r.cfg.Character.Settings(),
		Contributors: []kcc.Contributor{
			movement.Dampening{Factor: mv.Dampening},
			walker,
			movement.Gravity{Acceleration: mv.Gravity},
		},
	})
}

// Run steps the simulation until the configured tick count is reached or
// ctx is cancelled.
func (r *runner) Run(ctx context.Context) error {
	limit := uint64(r.cfg.Simulation.Ticks)
	opts := r.sim.Options()
	dt := opts.Step.Seconds()
	reportEvery := uint64(r.cfg.Simulation.TickRate)

	var pace <-chan time.Time
	if r.cfg.Simulation.Realtime {
		ticker := time.NewTicker(opts.Step)
		defer ticker.Stop()
		pace = ticker.C
	}
	var changed <-chan string
	var watchErrs <-chan error
	if r.watcher != nil {
		changed = r.watcher.Events
		watchErrs = r.watcher.Errors
	}

	last := time.Now()
	for limit == 0 || r.sim.Tick() < limit {
		select {
		case <-ctx.Done():
			logger.Info("interrupted", zap.Uint64("tick", r.sim.Tick()))
			return nil
		case path, ok := <-changed:
			if !ok {
				changed = nil
				continue
			}
			r.reload(path)
			continue
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warn("scene watcher error", zap.Error(err))
			continue
		default:
		}

		before := r.sim.Tick()
		if pace != nil {
			select {
			case <-ctx.Done():
				continue
			case now := <-pace:
				if _, err := r.sim.Advance(now.Sub(last)); err != nil {
					return err
				}
				last = now
			}
		} else if err := r.sim.Step(dt); err != nil {
			return err
		}
		if err := r.moveObstacles(); err != nil {
			return err
		}

		if tick := r.sim.Tick(); reportEvery > 0 && tick/reportEvery != before/reportEvery {
			r.report(tick)
		}
	}
	r.report(r.sim.Tick())
	return nil
}

func (r *runner) reload(path string) {
	lvl, err := scene.Load(path)
	if err != nil {
		logger.Warn("scene reload failed, keeping current level", zap.String("path", path), zap.Error(err))
		return
	}
	ids, err := lvl.Replace(r.world, r.obstacles)
	if err != nil {
		logger.Warn("scene rebuild failed, keeping current level", zap.String("path", path), zap.Error(err))
		return
	}
	r.obstacles = ids
	r.movers = moversOf(lvl, ids)
	logger.Info("scene reloaded", zap.String("scene", lvl.Name), zap.Int("obstacles", len(ids)))
}

// moveObstacles places every moving obstacle for the current tick. The new
// positions are seen by the next step.
func (r *runner) moveObstacles() error {
	at := float64(r.sim.Tick()) * r.sim.Options().Step.Seconds()
	for _, m := range r.movers {
		if err := r.sim.MoveObstacle(m.id, m.spec.PositionAt(at)); err != nil {
			return fmt.Errorf("move obstacle %q: %w", m.spec.Name, err)
		}
	}
	return nil
}

func (r *runner) report(tick uint64) {
	log := logger.Named("report")
	for _, st := range r.sim.States() {
		log.Debug("body",
			zap.Uint64("tick", tick),
			zap.String("name", st.Name),
			zap.String("position", fmt.Sprint(st.Position)),
			zap.String("velocity", fmt.Sprint(st.Velocity)),
			zap.Bool("grounded", st.Grounded),
		)
	}
	log.Info("tick",
		zap.Uint64("tick", tick),
		zap.Int("events", len(r.events.Drain())),
		zap.String("hash", fmt.Sprintf("%016x", r.sim.Hash())),
	)
}

func (r *runner) logEvent(ev movement.Event) {
	logger.Info("ground event",
		zap.Stringer("kind", ev.Kind),
		zap.Uint64("entity", uint64(ev.Entity)),
		zap.Uint64("tick", ev.Tick),
		zap.Float64("speed", ev.Speed),
	)
}

// Close stops the scene watcher.
func (r *runner) Close() {
	if r.watcher != nil {
		_ = r.watcher.Close()
	}
}
