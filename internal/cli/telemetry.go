package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sdejongh/diffnorris/pkg/logging"
)

// shutdownFunc releases a telemetry component
type shutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// setupTracing installs a tracer provider exporting spans as JSON to path.
// An empty path leaves the global no-op provider in place.
func setupTracing(path string) (shutdownFunc, error) {
	if path == "" {
		return noopShutdown, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "diffnorris"),
		attribute.String("service.version", Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		return errors.Join(err, file.Close())
	}, nil
}

// serveMetrics exposes the default Prometheus registry on addr until the
// returned shutdown is called. An empty addr disables the endpoint.
func serveMetrics(addr string, logger logging.Logger) (shutdownFunc, error) {
	if addr == "" {
		return noopShutdown, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info(context.Background(), "Prometheus HTTP server listening", logging.Fields{"addr": listener.Addr().String()})
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "Prometheus HTTP server error", err, nil)
		}
	}()

	return server.Shutdown, nil
}
