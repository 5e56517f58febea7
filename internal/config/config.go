// Package config handles simulator configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/midgard-kcc/internal/kcc"
	"github.com/Faultbox/midgard-kcc/internal/movement"
	"github.com/Faultbox/midgard-kcc/internal/sim"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Config holds all simulator settings.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Simulation SimulationConfig `yaml:"simulation"`
	Character  CharacterConfig  `yaml:"character"`
	Movement   MovementConfig   `yaml:"movement"`
	Scene      SceneConfig      `yaml:"scene"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// SimulationConfig holds tick loop settings.
type SimulationConfig struct {
	TickRate int  `yaml:"tick_rate"` // Fixed steps per second
	MaxSteps int  `yaml:"max_steps"` // Steps per Advance before dropping backlog
	Workers  int  `yaml:"workers"`
	Ticks    int  `yaml:"ticks"` // Steps to run; 0 runs until interrupted
	Realtime bool `yaml:"realtime"`
}

// CharacterConfig holds the tunables every spawned character gets.
type CharacterConfig struct {
	Radius           float64 `yaml:"radius"`
	Bounces          int     `yaml:"bounces"`
	SkinPadding      float64 `yaml:"skin_padding"`
	MaxFloorDistance float64 `yaml:"max_floor_distance"`
	MaxSlopeDeg      float64 `yaml:"max_slope_deg"`
	Depenetrate      bool    `yaml:"depenetrate"`
}

// MovementConfig holds the velocity contributor settings.
type MovementConfig struct {
	Gravity   math.Vec3 `yaml:"gravity"`
	Dampening float64   `yaml:"dampening"`
	WalkSpeed float64   `yaml:"walk_speed"`
	JumpSpeed float64   `yaml:"jump_speed"`
}

// SceneConfig selects the level.
type SceneConfig struct {
	Path  string `yaml:"path"` // Empty uses the built-in demo level
	Watch bool   `yaml:"watch"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	s := kcc.DefaultSettings()
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Simulation: SimulationConfig{
			TickRate: 60,
			MaxSteps: 5,
			Workers:  1,
			Ticks:    600,
			Realtime: false,
		},
		Character: CharacterConfig{
			Radius:           0.4,
			Bounces:          s.Bounces,
			SkinPadding:      s.SkinPadding,
			MaxFloorDistance: s.MaxFloorDistance,
			MaxSlopeDeg:      mgl64.RadToDeg(s.MaxSlopeAngle),
			Depenetrate:      s.Depenetrate,
		},
		Movement: MovementConfig{
			Gravity:   math.Vec3{0, movement.DefaultGravity, 0},
			Dampening: movement.DefaultDampening,
			WalkSpeed: movement.DefaultWalkSpeed,
			JumpSpeed: movement.DefaultJumpSpeed,
		},
	}
}

// Settings converts the character section to controller settings.
func (c CharacterConfig) Settings() kcc.Settings {
	return kcc.Settings{
		Bounces:          c.Bounces,
		SkinPadding:      c.SkinPadding,
		MaxFloorDistance: c.MaxFloorDistance,
		MaxSlopeAngle:    mgl64.DegToRad(c.MaxSlopeDeg),
		Depenetrate:      c.Depenetrate,
	}
}

// Options converts the simulation section to sim options.
func (c SimulationConfig) Options() sim.Options {
	opts := sim.DefaultOptions()
	if c.TickRate > 0 {
		opts.Step = time.Second / time.Duration(c.TickRate)
	}
	opts.MaxSteps = c.MaxSteps
	opts.Workers = c.Workers
	return opts
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Simulation.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_rate must be positive, got %d", c.Simulation.TickRate))
	}
	if c.Simulation.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("simulation.max_steps must be positive, got %d", c.Simulation.MaxSteps))
	}
	if c.Simulation.Workers < 1 {
		errs = append(errs, fmt.Errorf("simulation.workers must be at least 1, got %d", c.Simulation.Workers))
	}
	if c.Simulation.Ticks < 0 {
		errs = append(errs, fmt.Errorf("simulation.ticks must not be negative, got %d", c.Simulation.Ticks))
	}
	if !(c.Character.Radius > 0) {
		errs = append(errs, fmt.Errorf("character.radius must be positive, got %v", c.Character.Radius))
	}
	if err := c.Character.Settings().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("character: %w", err))
	}
	if !math.IsFinite(c.Movement.Gravity) {
		errs = append(errs, errors.New("movement.gravity must be finite"))
	}
	if c.Movement.Dampening < 0 || c.Movement.Dampening > 1 {
		errs = append(errs, fmt.Errorf("movement.dampening must be within [0, 1], got %v", c.Movement.Dampening))
	}
	return errors.Join(errs...)
}
