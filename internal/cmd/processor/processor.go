// Package processor parses processor command flags and runs the stream
// consumer against the configured broker and time-series store.
package processor

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/drblury/expostream/internal/cmd/entrypoint"
	"github.com/drblury/expostream/internal/opsserver"
	"github.com/drblury/expostream/internal/processor"
	"github.com/drblury/expostream/internal/runtime/config"
	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/metrics"
	runtimetransport "github.com/drblury/expostream/internal/runtime/transport"
	"github.com/drblury/expostream/internal/store"
	"github.com/drblury/expostream/transport"
)

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	entrypoint.BindCommonFlags(fs, &cfg)
	entrypoint.BindStoreFlags(fs, &cfg)
	fs.StringVar(&cfg.KafkaConsumerGroup, "consumer-group", cfg.KafkaConsumerGroup, "Consumer group shared by the three topic subscriptions")
	fs.DurationVar(&cfg.ReconnectBackoff, "reconnect-backoff", cfg.ReconnectBackoff, "Pause after a failed store reconnect")
	fs.IntVar(&cfg.StatsEvery, "stats-every", cfg.StatsEvery, "Log statistics every N messages")
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
	Factory runtimetransport.Factory
	// OpenStore defaults to connecting a PostgresStore to cfg.StoreDSN().
	OpenStore func(ctx context.Context, cfg config.Config) (processor.Store, error)
	Output    io.Writer
}

// SchemaStore is implemented by stores that can create their own tables.
type SchemaStore interface {
	EnsureSchema(ctx context.Context) error
}

func openPostgres(ctx context.Context, cfg config.Config) (processor.Store, error) {
	s, err := store.NewPostgresStore(ctx, cfg.StoreDSN())
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run consumes telemetry until ctx is cancelled. Failing to reach the store
// or the broker is returned before any message is pulled.
func Run(ctx context.Context, cfg config.Config, deps Dependencies) error {
	if deps.Factory == nil {
		deps.Factory = runtimetransport.DefaultFactory()
	}
	if deps.OpenStore == nil {
		deps.OpenStore = openPostgres
	}
	if deps.Output == nil {
		deps.Output = os.Stdout
	}
	logger := entrypoint.NewLogger(cfg, deps.Output, entrypoint.ServiceProcessor)

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceProcessor, cfg, logger, func(ctx context.Context) error {
		st, err := deps.OpenStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		if cfg.StoreApplySchema {
			if schema, ok := st.(SchemaStore); ok {
				if err := schema.EnsureSchema(ctx); err != nil {
					_ = st.Close()
					return err
				}
				logger.Info("Store schema applied", nil)
			}
		}

		tr, err := deps.Factory.Build(ctx, &cfg, transport.RoleSubscriber, logging.NewWatermillAdapter(logger))
		if err != nil {
			_ = st.Close()
			return err
		}

		if cfg.AckMode == config.AckModePersisted && !deps.Factory.Capabilities(&cfg).SupportsReliableDelivery() {
			logger.Warn("Transport cannot redeliver nacked messages; persisted ack mode degrades to at-most-once", logging.LogFields{
				"system": cfg.PubSubSystem,
			})
		}

		reg := entrypoint.NewRegistry()
		proc, err := processor.New(processor.Dependencies{
			Subscriber: tr.Subscriber,
			Store:      st,
			Logger:     logger,
			Metrics:    metrics.MustNew(reg),
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

		logger.Info("Processor starting", logging.LogFields{"config": cfg.String()})
		return proc.Run(ctx)
	})
}
