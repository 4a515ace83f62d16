// Package simulator parses simulator command flags and runs the telemetry
// generator against the configured broker.
package simulator

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/drblury/expostream/internal/cmd/entrypoint"
	"github.com/drblury/expostream/internal/generator"
	"github.com/drblury/expostream/internal/opsserver"
	"github.com/drblury/expostream/internal/runtime/config"
	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/metrics"
	runtimetransport "github.com/drblury/expostream/internal/runtime/transport"
	"github.com/drblury/expostream/transport"
)

// Config holds simulator command configuration.
type Config struct {
	config.Config
	// Seed fixes the random source when non-zero.
	Seed uint64
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	base, err := config.Load()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Config: base}
	entrypoint.BindCommonFlags(fs, &cfg.Config)
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Time between publishing rounds")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "Random seed (0 = random)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateSimulator(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Dependencies allows tests to replace the transport factory.
type Dependencies struct {
	Factory runtimetransport.Factory
	Output  io.Writer
}

// Run publishes telemetry until ctx is cancelled.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if deps.Factory == nil {
		deps.Factory = runtimetransport.DefaultFactory()
	}
	if deps.Output == nil {
		deps.Output = os.Stdout
	}
	logger := entrypoint.NewLogger(cfg.Config, deps.Output, entrypoint.ServiceSimulator)

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSimulator, cfg.Config, logger, func(ctx context.Context) error {
		var opts []generator.Option
		if cfg.Seed != 0 {
			opts = append(opts, generator.WithSeed(cfg.Seed))
		}
		gen, err := generator.New(generator.DefaultProfile(), opts...)
		if err != nil {
			return err
		}

		tr, err := deps.Factory.Build(ctx, &cfg.Config, transport.RolePublisher, logging.NewWatermillAdapter(logger))
		if err != nil {
			return err
		}

		reg := entrypoint.NewRegistry()
		m := metrics.MustNew(reg)

		sim, err := generator.NewSimulator(gen, cfg.Interval, generator.SimulatorDependencies{
			Publisher: tr.Publisher,
			Logger:    logger,
			Metrics:   m,
		})
		if err != nil {
			_ = tr.Close()
			return err
		}

		if err := entrypoint.StartOps(ctx, cfg.Config, opsserver.Dependencies{Gatherer: reg, Logger: logger}); err != nil {
			_ = tr.Close()
			return err
		}

		logger.Info("Simulator starting", logging.LogFields{
			"config":   cfg.Config.String(),
			"interval": cfg.Interval.String(),
		})
		return sim.Run(ctx)
	})
}
