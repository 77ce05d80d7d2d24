// Package tracing wires OpenTelemetry span export behind a lifecycle
// component. When disabled it still hands out tracers, they just never
// export anything.
package tracing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

const serviceName = "openstack-rca"

// exporterDialTimeout bounds OTLP exporter construction.
const exporterDialTimeout = 5 * time.Second

// Config holds tracing configuration.
type Config struct {
	Enabled bool

	// Endpoint is the OTLP gRPC collector address, e.g. "jaeger:4317"
	Endpoint string

	// ServiceVersion is stamped on exported spans
	ServiceVersion string

	// TLSCAPath is a CA certificate for collector TLS verification
	TLSCAPath string

	// TLSInsecure skips TLS certificate verification
	TLSInsecure bool
}

// Provider owns the tracer provider and implements lifecycle.Component.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	logger         *logging.Logger
	enabled        bool
}

// NewProvider builds the OTLP exporter and installs the global tracer
// provider. A disabled config returns a provider whose tracers are no-ops.
func NewProvider(cfg Config) (*Provider, error) {
	logger := logging.GetLogger("tracing")

	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return &Provider{logger: logger}, nil
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing enabled but endpoint not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterDialTimeout)
	defer cancel()

	creds, err := transportCredentials(cfg, logger)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(creds)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tracerProvider)

	logger.Info("Tracing initialized with endpoint: %s", cfg.Endpoint)

	return &Provider{
		tracerProvider: tracerProvider,
		logger:         logger,
		enabled:        true,
	}, nil
}

// transportCredentials resolves the collector connection security from
// the config.
func transportCredentials(cfg Config, logger *logging.Logger) (credentials.TransportCredentials, error) {
	if cfg.TLSInsecure {
		logger.Warn("Tracing TLS certificate verification disabled")
		return credentials.NewTLS(&tls.Config{
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS12,
		}), nil
	}

	if cfg.TLSCAPath != "" {
		caCert, err := os.ReadFile(cfg.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA certificate to pool")
		}
		logger.Info("Tracing TLS enabled with CA from: %s", cfg.TLSCAPath)
		return credentials.NewTLS(&tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		}), nil
	}

	logger.Info("Tracing using plaintext collector connection")
	return insecure.NewCredentials(), nil
}

// Start implements lifecycle.Component.
func (p *Provider) Start(ctx context.Context) error {
	if p.enabled {
		p.logger.Info("Tracing provider started")
	}
	return nil
}

// Stop flushes remaining spans within the context deadline.
func (p *Provider) Stop(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		p.logger.Error("Error shutting down tracer provider: %v", err)
		return err
	}
	p.logger.Info("Tracing provider stopped")
	return nil
}

// Name implements lifecycle.Component.
func (p *Provider) Name() string {
	return "tracing-provider"
}

// GetTracer returns a tracer for instrumenting code. Safe to call on a
// disabled provider.
func (p *Provider) GetTracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// IsEnabled reports whether spans are exported.
func (p *Provider) IsEnabled() bool {
	return p.enabled
}
