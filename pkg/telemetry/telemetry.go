package telemetry

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Telemetry bundles the logger, tracer, and metrics built from one Config.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// New creates a telemetry instance from configuration.
func New(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// ServeMetrics starts the metrics HTTP endpoint when metrics are enabled.
// The server runs until the context is cancelled.
func (t *Telemetry) ServeMetrics(ctx context.Context) {
	handler := t.Metrics.Handler()
	if handler == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(t.Config.Metrics.Path, handler)
	srv := &http.Server{Addr: t.Config.Metrics.ListenAddress, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics endpoint stopped")
		}
	}()
}

// Shutdown flushes and stops the telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Tracer.Shutdown(ctx)
}
