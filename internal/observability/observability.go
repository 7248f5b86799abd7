// Package observability wires tracing and metrics for the daemon. Both are
// optional; when disabled every hook is a cheap no-op and command
// processing is unaffected.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "robolab"

// Config selects which observability components run.
type Config struct {
	// EnableTracing turns on otel spans around dispatched commands,
	// exported to stdout.
	EnableTracing bool `yaml:"tracing"`
	// MetricsPort serves prometheus metrics on /metrics; 0 disables the
	// server (metrics are still collected).
	MetricsPort int `yaml:"metrics_port"`
}

// Observability holds the live tracing/metrics state.
type Observability struct {
	Tracer  trace.Tracer
	Metrics *Metrics

	tracerProvider *sdktrace.TracerProvider
	metricsServer  *http.Server
}

// Init builds the configured components. Call Shutdown when done.
func Init(ctx context.Context, cfg Config, version string) (*Observability, error) {
	o := &Observability{
		Tracer:  noop.NewTracerProvider().Tracer(serviceName),
		Metrics: NewMetrics(prometheus.NewRegistry()),
	}

	if cfg.EnableTracing {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		))
		if err != nil {
			return nil, fmt.Errorf("create trace resource: %w", err)
		}
		o.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(o.tracerProvider)
		o.Tracer = o.tracerProvider.Tracer(serviceName)
		slog.Info("Tracing enabled.", "exporter", "stdout")
	}

	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(o.Metrics.registry, promhttp.HandlerOpts{}))
		o.metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler: mux,
		}
		go func() {
			if err := o.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server", "err", err)
			}
		}()
		slog.Info("Metrics server started.", "port", cfg.MetricsPort)
	}

	return o, nil
}

// Shutdown flushes the tracer and stops the metrics server.
func (o *Observability) Shutdown(ctx context.Context) {
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			slog.Warn("tracer shutdown", "err", err)
		}
	}
	if o.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown", "err", err)
		}
	}
}
