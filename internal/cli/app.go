package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jorgeantonio/flutter-architect/internal/config"
	"github.com/jorgeantonio/flutter-architect/internal/logger"
	"github.com/jorgeantonio/flutter-architect/internal/observability"
	"github.com/jorgeantonio/flutter-architect/internal/tracing"
	"github.com/jorgeantonio/flutter-architect/pkg/agent"
	"github.com/jorgeantonio/flutter-architect/pkg/coretools"
	"github.com/jorgeantonio/flutter-architect/pkg/toolexecutor"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newProvider builds a provider from a profile. Tests replace it.
var newProvider = func(profile agent.ProviderProfile, log zerolog.Logger, systemPrompt string) (agent.Provider, error) {
	factory := &agent.ProviderFactory{Logger: log, SystemPrompt: systemPrompt}
	return factory.NewProvider(profile)
}

// app bundles the process-level services shared by commands.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	closers []func(context.Context) error
}

// setupApp loads configuration and starts logging, tracing and metrics.
func setupApp(stderr io.Writer) (*app, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		Console:    true,
		Pretty:     cfg.Logging.Pretty,
		Redaction:  cfg.Logging.Redaction,
		MaxSize:    cfg.Logging.MaxSize,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		ConsoleOut: stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	rt := &app{cfg: cfg, log: lg}

	if cfg.Tracing.Enabled {
		exporter := tracing.NewLogExporter(lg.Component("tracing"))
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName, sdktrace.WithSyncer(exporter)); err != nil {
			lg.Warn().Err(err).Msg("Tracing disabled")
		} else {
			rt.closers = append(rt.closers, tracing.ShutdownOpenTelemetry)
		}
	}

	if cfg.Metrics.Enabled {
		stop, err := serveMetrics(cfg.Metrics.Addr, lg.Component("metrics"))
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, stop)
	}

	return rt, nil
}

// Close stops background services in reverse start order.
func (rt *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i](ctx))
	}
	errs = append(errs, rt.log.Close())
	return errors.Join(errs...)
}

// tools builds the catalog exposed to the model.
func (rt *app) tools() (*toolexecutor.ToolExecutor, error) {
	te := toolexecutor.New()
	err := coretools.RegisterCoreTools(te, coretools.Options{
		WorkingDir:    rt.cfg.WorkingDir,
		FlutterBinary: rt.cfg.Flutter.Binary,
		Timeout:       rt.cfg.Flutter.Timeout,
		OutputLimit:   rt.cfg.Flutter.OutputLimit,
	})
	if err != nil {
		return nil, err
	}
	return te, nil
}

func serveMetrics(addr string, log zerolog.Logger) (func(context.Context) error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	return srv.Shutdown, nil
}
