// Package standalone runs the simulator and the processor in one process
// over a shared transport. With the default in-memory channel transport no
// broker is needed; the time-series store still is.
package standalone

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/drblury/expostream/internal/cmd/entrypoint"
	"github.com/drblury/expostream/internal/generator"
	"github.com/drblury/expostream/internal/opsserver"
	"github.com/drblury/expostream/internal/processor"
	"github.com/drblury/expostream/internal/runtime/config"
	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/metrics"
	runtimetransport "github.com/drblury/expostream/internal/runtime/transport"
	"github.com/drblury/expostream/internal/store"
	"github.com/drblury/expostream/transport"
)

// DefaultPubSub is used unless EXPO_PUBSUB_SYSTEM or -pubsub says otherwise.
const DefaultPubSub = "channel"

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if _, set := os.LookupEnv("EXPO_PUBSUB_SYSTEM"); !set {
		cfg.PubSubSystem = DefaultPubSub
	}
	entrypoint.BindCommonFlags(fs, &cfg)
	entrypoint.BindStoreFlags(fs, &cfg)
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Time between publishing rounds")
	fs.StringVar(&cfg.AckMode, "ack-mode", cfg.AckMode, "auto (at-most-once) or persisted (at-least-once)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Dependencies allows tests to replace the transport factory and the store.
type Dependencies struct {
	Factory   runtimetransport.Factory
	OpenStore func(ctx context.Context, cfg config.Config) (processor.Store, error)
	Output    io.Writer
}

// Run drives both halves of the pipeline until ctx is cancelled or either
// half fails.
func Run(ctx context.Context, cfg config.Config, deps Dependencies) error {
	if deps.Factory == nil {
		deps.Factory = runtimetransport.DefaultFactory()
	}
	if deps.OpenStore == nil {
		deps.OpenStore = func(ctx context.Context, cfg config.Config) (processor.Store, error) {
			return store.NewPostgresStore(ctx, cfg.StoreDSN())
		}
	}
	if deps.Output == nil {
		deps.Output = os.Stdout
	}
	logger := entrypoint.NewLogger(cfg, deps.Output, entrypoint.ServiceStandalone)

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceStandalone, cfg, logger, func(ctx context.Context) error {
		st, err := deps.OpenStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		if schema, ok := st.(interface{ EnsureSchema(context.Context) error }); ok && cfg.StoreApplySchema {
			if err := schema.EnsureSchema(ctx); err != nil {
				_ = st.Close()
				return err
			}
		}

		tr, err := deps.Factory.Build(ctx, &cfg, transport.RoleBoth, logging.NewWatermillAdapter(logger))
		if err != nil {
			_ = st.Close()
			return err
		}

		reg := entrypoint.NewRegistry()
		m := metrics.MustNew(reg)

		gen, err := generator.New(generator.DefaultProfile())
		if err != nil {
			_ = tr.Close()
			_ = st.Close()
			return err
		}
		sim, err := generator.NewSimulator(gen, cfg.Interval, generator.SimulatorDependencies{
			Publisher: tr.Publisher,
			Logger:    logger.With(logging.LogFields{"component": "simulator"}),
			Metrics:   m,
		})
		if err != nil {
			_ = tr.Close()
			_ = st.Close()
			return err
		}

		proc, err := processor.New(processor.Dependencies{
			Subscriber: tr.Subscriber,
			Store:      st,
			Logger:     logger.With(logging.LogFields{"component": "processor"}),
			Metrics:    m,
		}, processor.Options{
			ReconnectBackoff: cfg.ReconnectBackoff,
			StatsEvery:       cfg.StatsEvery,
			AckMode:          cfg.AckMode,
		})
		if err != nil {
			_ = tr.Close()
			_ = st.Close()
			return err
		}

		err = entrypoint.StartOps(ctx, cfg, opsserver.Dependencies{
			Ready:    proc.Ready,
			Stats:    func() any { return proc.Stats() },
			Gatherer: reg,
			Logger:   logger,
		})
		if err != nil {
			_ = tr.Close()
			_ = st.Close()
			return err
		}

		// The in-memory transport drops messages published before a
		// subscription exists, so the first tick waits for the processor.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return proc.Run(gctx) })
		g.Go(func() error {
			select {
			case <-proc.Subscribed():
			case <-gctx.Done():
				return tr.Publisher.Close()
			}
			return sim.Run(gctx)
		})
		return g.Wait()
	})
}
