// Package main is the entry point for the headless character controller
// simulator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-kcc/internal/config"
	"github.com/Faultbox/midgard-kcc/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Midgard KCC Simulator ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	r, err := newRunner(cfg)
	if err != nil {
		logger.Error("failed to set up simulation", zap.Error(err))
		os.Exit(1)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Run(ctx); err != nil {
		logger.Error("simulation error", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("ticks=%d bodies=%d hash=%016x\n", r.sim.Tick(), r.sim.Len(), r.sim.Hash())
	logger.Info("simulation finished")
}
