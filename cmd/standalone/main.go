// Package main runs the simulator and processor in a single process.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	standalonecmd "github.com/drblury/expostream/internal/cmd/standalone"
	"github.com/drblury/expostream/internal/runtime/config"
)

func main() {
	cfg, err := standalonecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := standalonecmd.Run(ctx, cfg, standalonecmd.Dependencies{}); err != nil {
		stop()
		config.Exitf("standalone: %v", err)
	}
}
