// Package main starts the exposition telemetry simulator.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	simulatorcmd "github.com/drblury/expostream/internal/cmd/simulator"
	"github.com/drblury/expostream/internal/runtime/config"
)

func main() {
	cfg, err := simulatorcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simulatorcmd.Run(ctx, cfg, simulatorcmd.Dependencies{}); err != nil {
		stop()
		config.Exitf("simulator: %v", err)
	}
}
