package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"studyhub-backend/lib/configutil"

	"dario.cat/mergo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// Shutdown flushes and stops whichever providers were set up, it is safe to
// call on the zero value.
func (t Telemetry) Shutdown(ctx context.Context) error {
	var errlist []error
	if t.TracerProvider != nil {
		err := t.TracerProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	if t.MeterProvider != nil {
		err := t.MeterProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) Enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
}

const (
	EnvOtlpEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOtlpProtocol = "OTEL_EXPORTER_OTLP_PROTOCOL"
	EnvOtlpHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"

	protocolGrpc = "grpc"
)

// parses the "key1=value1,key2=value2" form used by the otlp header
// variables, values are url decoded and malformed pairs are skipped.
func parseHeaders(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	headers := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		decoded, err := url.QueryUnescape(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		headers[key] = decoded
	}
	return headers
}

func signalFromEnv(getenv func(string) string, signal, httpPath string) OtlpConnConfig {
	prefix := "OTEL_EXPORTER_OTLP_" + signal + "_"

	protocol := getenv(prefix + "PROTOCOL")
	if protocol == "" {
		protocol = getenv(EnvOtlpProtocol)
	}

	endpoint := getenv(prefix + "ENDPOINT")
	if endpoint == "" {
		endpoint = getenv(EnvOtlpEndpoint)
		// the generic http endpoint is a base url, each signal has its own path.
		if endpoint != "" && protocol != protocolGrpc {
			endpoint = strings.TrimSuffix(endpoint, "/") + httpPath
		}
	}

	headers := parseHeaders(getenv(EnvOtlpHeaders))
	for key, value := range parseHeaders(getenv(prefix + "HEADERS")) {
		if headers == nil {
			headers = map[string]string{}
		}
		headers[key] = value
	}

	conn := OtlpConnConfig{Headers: headers}
	if endpoint == "" {
		return conn
	}
	if protocol == protocolGrpc {
		conn.GrpcEndpoint = endpoint
	} else {
		conn.HttpEndpoint = endpoint
	}
	return conn
}

// ConfigFromEnv reads the standard OTEL_EXPORTER_OTLP_* variables. The
// protocol defaults to http/protobuf.
func ConfigFromEnv(getenv func(string) string) Config {
	return Config{
		Otlp: OtlpConfig{
			Traces:  signalFromEnv(getenv, "TRACES", "/v1/traces"),
			Metrics: signalFromEnv(getenv, "METRICS", "/v1/metrics"),
		},
	}
}

// sets up an in-memory tracer provider for a test, the returned recorder
// holds every span that ended during the test. tracers obtained from the
// global provider before the first call are bound to the first provider,
// so call this at most once per test binary.
func SetupForTesting(t testing.TB, serviceName string) *tracetest.SpanRecorder {
	r, err := newResource(serviceName)
	if err != nil {
		t.Fatal(err)
	}

	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(
		trace.WithSpanProcessor(recorder),
		trace.WithResource(r),
	)

	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		err := provider.Shutdown(context.Background())
		if err != nil {
			t.Error(err)
		}
	})
	return recorder
}

// searches up the filesystem from the cwd to find a file called
// telemetry.json5 and overlays the OTEL_EXPORTER_OTLP_* variables from
// getenv on top of it.
//
// os.ErrNotExist is returned when there is neither a file nor any otlp
// variable, in which case the global otel providers are left as no-ops.
func SetupFromEnv(ctx context.Context, serviceName string, getenv func(string) string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	fileMissing := errors.Is(err, os.ErrNotExist)
	if err != nil && !fileMissing {
		return Telemetry{}, err
	}

	env := ConfigFromEnv(getenv)
	if fileMissing && !env.Otlp.Traces.Enabled() && !env.Otlp.Metrics.Enabled() {
		return Telemetry{}, os.ErrNotExist
	}
	err = mergo.Merge(&config, env, mergo.WithOverride)
	if err != nil {
		return Telemetry{}, fmt.Errorf("merge otlp environment: %w", err)
	}
	return Setup(ctx, serviceName, config)
}

// Setup installs global providers for the signals that have an endpoint,
// a signal without one stays a no-op.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	tel := Telemetry{}
	if !config.Otlp.Traces.Enabled() && !config.Otlp.Metrics.Enabled() {
		return tel, nil
	}

	r, err := newResource(serviceName)
	if err != nil {
		return tel, err
	}

	if config.Otlp.Traces.Enabled() {
		exporter, err := traceExporter(ctx, config.Otlp.Traces)
		if err != nil {
			return tel, err
		}
		tel.TracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(r),
		)
		otel.SetTracerProvider(tel.TracerProvider)
	}

	if config.Otlp.Metrics.Enabled() {
		exporter, err := metricExporter(ctx, config.Otlp.Metrics)
		if err != nil {
			return tel, err
		}
		tel.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(time.Second*5))),
			metric.WithResource(r),
		)
		otel.SetMeterProvider(tel.MeterProvider)
	}

	return tel, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func traceExporter(ctx context.Context, conn OtlpConnConfig) (trace.SpanExporter, error) {
	if conn.GrpcEndpoint != "" {
		slog.Debug("otlp trace export", "protocol", "grpc", "endpoint", conn.GrpcEndpoint)
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlptracegrpc.WithHeaders(conn.Headers),
		)
	}
	slog.Debug("otlp trace export", "protocol", "http", "endpoint", conn.HttpEndpoint)
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(conn.HttpEndpoint),
		otlptracehttp.WithHeaders(conn.Headers),
	)
}

func metricExporter(ctx context.Context, conn OtlpConnConfig) (metric.Exporter, error) {
	if conn.GrpcEndpoint != "" {
		slog.Debug("otlp metric export", "protocol", "grpc", "endpoint", conn.GrpcEndpoint)
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(conn.Headers),
		)
	}
	slog.Debug("otlp metric export", "protocol", "http", "endpoint", conn.HttpEndpoint)
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(conn.HttpEndpoint),
		otlpmetrichttp.WithHeaders(conn.Headers),
	)
}
