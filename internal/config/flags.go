package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile  = flag.String("log-file", "", "Write JSON logs to this file")
	flagScene    = flag.String("scene", "", "Scene file to load (default: built-in demo)")
	flagWatch    = flag.Bool("watch", false, "Reload the scene file when it changes")
	flagTicks    = flag.Int("ticks", -1, "Number of steps to run, 0 runs until interrupted")
	flagWorkers  = flag.Int("workers", 0, "Characters resolved in parallel")
	flagRealtime = flag.Bool("realtime", false, "Pace steps to the wall clock")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	}
	if *flagWatch {
		cfg.Scene.Watch = true
	}
	if *flagTicks >= 0 {
		cfg.Simulation.Ticks = *flagTicks
	}
	if *flagWorkers > 0 {
		cfg.Simulation.Workers = *flagWorkers
	}
	if *flagRealtime {
		cfg.Simulation.Realtime = true
	}
}
