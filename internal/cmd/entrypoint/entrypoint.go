// Package entrypoint holds the startup plumbing shared by the expostream
// commands: config parsing with flag overrides, logger construction,
// telemetry and the ops server.
package entrypoint

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/drblury/expostream/internal/opsserver"
	"github.com/drblury/expostream/internal/runtime/config"
	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/otel"
)

// Service names used for telemetry and log prefixes.
const (
	ServiceSimulator  = "expostream-simulator"
	ServiceProcessor  = "expostream-processor"
	ServiceStandalone = "expostream-standalone"
)

const otelShutdownTimeout = 5 * time.Second

// BindCommonFlags registers the flags every command accepts. Defaults come
// from cfg, which should already hold the environment values.
func BindCommonFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.PubSubSystem, "pubsub", cfg.PubSubSystem, "Broker transport: kafka, nats, rabbitmq or channel")
	fs.Func("kafka-brokers", "Comma-separated Kafka bootstrap servers", func(v string) error {
		cfg.KafkaBrokers = splitList(v)
		return nil
	})
	fs.StringVar(&cfg.KafkaClientID, "kafka-client-id", cfg.KafkaClientID, "Kafka client id")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")
	fs.StringVar(&cfg.RabbitMQURL, "rabbitmq-url", cfg.RabbitMQURL, "RabbitMQ AMQP URL")
	fs.IntVar(&cfg.OpsPort, "ops-port", cfg.OpsPort, "Ops HTTP port (0 disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint")
}

// BindStoreFlags registers the time-series store flags.
func BindStoreFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.StoreHost, "store-host", cfg.StoreHost, "Time-series store host")
	fs.IntVar(&cfg.StorePort, "store-port", cfg.StorePort, "Time-series store port")
	fs.StringVar(&cfg.StoreDatabase, "store-database", cfg.StoreDatabase, "Time-series store database")
	fs.StringVar(&cfg.StoreUser, "store-user", cfg.StoreUser, "Time-series store user")
	fs.StringVar(&cfg.StoreSSLMode, "store-sslmode", cfg.StoreSSLMode, "Time-series store sslmode")
	fs.BoolVar(&cfg.StoreApplySchema, "apply-schema", cfg.StoreApplySchema, "Create tables and hypertables on startup")
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// NewLogger builds the service logger described by cfg.
func NewLogger(cfg config.Config, w io.Writer, service string) logging.ServiceLogger {
	base := slog.New(logging.NewHandler(w, cfg.LogFormat, cfg.LogLevel)).With("service", service)
	return logging.NewSlogServiceLogger(base)
}

// NewRegistry returns a prometheus registry carrying the Go runtime and
// process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// StartOps starts the ops server when cfg enables it.
func StartOps(ctx context.Context, cfg config.Config, deps opsserver.Dependencies) error {
	if cfg.OpsPort == 0 {
		return nil
	}
	return opsserver.New(cfg.OpsPort, deps).Start(ctx)
}

// RunWithTelemetry configures tracing for service and executes run.
func RunWithTelemetry(ctx context.Context, service string, cfg config.Config, logger logging.ServiceLogger, run func(context.Context) error) error {
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	shutdown, err := otel.Setup(ctx, service, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), otelShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("Trace flush failed", err, nil)
		}
	}()
	return run(ctx)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
