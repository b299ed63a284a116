package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestConfigFromEnv(t *testing.T) {
	testCases := []struct {
		name   string
		env    map[string]string
		expect Config
	}{
		{
			name:   "unset",
			env:    nil,
			expect: Config{},
		},
		{
			name: "generic http endpoint gets signal paths",
			env: map[string]string{
				EnvOtlpEndpoint: "http://collector:4318/",
				EnvOtlpHeaders:  "x-api-key=abc%20def, broken ,tenant=t1",
			},
			expect: Config{Otlp: OtlpConfig{
				Traces: OtlpConnConfig{
					HttpEndpoint: "http://collector:4318/v1/traces",
					Headers:      map[string]string{"x-api-key": "abc def", "tenant": "t1"},
				},
				Metrics: OtlpConnConfig{
					HttpEndpoint: "http://collector:4318/v1/metrics",
					Headers:      map[string]string{"x-api-key": "abc def", "tenant": "t1"},
				},
			}},
		},
		{
			name: "grpc endpoint is used as is",
			env: map[string]string{
				EnvOtlpEndpoint: "http://collector:4317",
				EnvOtlpProtocol: "grpc",
			},
			expect: Config{Otlp: OtlpConfig{
				Traces:  OtlpConnConfig{GrpcEndpoint: "http://collector:4317"},
				Metrics: OtlpConnConfig{GrpcEndpoint: "http://collector:4317"},
			}},
		},
		{
			name: "signal variables win",
			env: map[string]string{
				EnvOtlpEndpoint:                       "http://collector:4318",
				"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT":  "http://traces:9000/custom",
				"OTEL_EXPORTER_OTLP_METRICS_PROTOCOL": "grpc",
				"OTEL_EXPORTER_OTLP_METRICS_HEADERS":  "tenant=metrics",
			},
			expect: Config{Otlp: OtlpConfig{
				Traces: OtlpConnConfig{HttpEndpoint: "http://traces:9000/custom"},
				Metrics: OtlpConnConfig{
					GrpcEndpoint: "http://collector:4318",
					Headers:      map[string]string{"tenant": "metrics"},
				},
			}},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Empty(t, cmp.Diff(test.expect, ConfigFromEnv(envMap(test.env))))
		})
	}
}

func TestSetupDisabled(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

type collector struct {
	mu    sync.Mutex
	paths map[string]int
}

func newCollector(t testing.TB) (*collector, *httptest.Server) {
	c := &collector{paths: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		c.mu.Lock()
		c.paths[r.URL.Path]++
		c.mu.Unlock()
		w.Header().Set("content-type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *collector) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paths[path]
}

func TestSetupExportsOverHTTP(t *testing.T) {
	c, srv := newCollector(t)

	tel, err := Setup(context.Background(), "test:telemetry", Config{
		Otlp: OtlpConfig{
			Traces:  OtlpConnConfig{HttpEndpoint: srv.URL + "/v1/traces"},
			Metrics: OtlpConnConfig{HttpEndpoint: srv.URL + "/v1/metrics"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, tel.TracerProvider)
	require.NotNil(t, tel.MeterProvider)

	_, span := tel.TracerProvider.Tracer("test").Start(context.Background(), "unit")
	span.End()

	require.NoError(t, tel.Shutdown(context.Background()))
	require.Equal(t, 1, c.count("/v1/traces"))
}

func TestSetupFromEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	_, err = SetupFromEnv(context.Background(), "test:telemetry", envMap(nil))
	require.True(t, errors.Is(err, os.ErrNotExist))

	c, srv := newCollector(t)
	tel, err := SetupFromEnv(context.Background(), "test:telemetry", envMap(map[string]string{
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": srv.URL + "/v1/traces",
	}))
	require.NoError(t, err)
	require.NotNil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)

	_, span := tel.TracerProvider.Tracer("test").Start(context.Background(), "unit")
	span.End()
	require.NoError(t, tel.Shutdown(context.Background()))
	require.Equal(t, 1, c.count("/v1/traces"))
}
