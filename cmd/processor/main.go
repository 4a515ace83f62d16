// Package main starts the exposition telemetry processor.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	processorcmd "github.com/drblury/expostream/internal/cmd/processor"
	"github.com/drblury/expostream/internal/runtime/config"
)

func main() {
	cfg, err := processorcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := processorcmd.Run(ctx, cfg, processorcmd.Dependencies{}); err != nil {
		stop()
		config.Exitf("processor: %v", err)
	}
}
