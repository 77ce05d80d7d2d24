package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// collectorConfig routes every received span into the debug exporter so the
// test can assert against the container's stdout.
const collectorConfig = `receivers:
  otlp:
    protocols:
      grpc:
        endpoint: 0.0.0.0:4317

exporters:
  debug:
    verbosity: detailed

service:
  pipelines:
    traces:
      receivers: [otlp]
      exporters: [debug]
`

// TestProviderExportsSpans runs a real OTLP collector in a container and
// verifies that spans created through the provider arrive there after Stop
// flushes the batcher. Requires Docker; skipped with -short.
func TestProviderExportsSpans(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires Docker")
	}

	ctx := context.Background()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(collectorConfig), 0o644))

	req := testcontainers.ContainerRequest{
		Image:        "otel/opentelemetry-collector:0.102.1",
		ExposedPorts: []string{"4317/tcp"},
		WaitingFor:   wait.ForListeningPort("4317/tcp").WithStartupTimeout(30 * time.Second),
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      cfgPath,
			ContainerFilePath: "/etc/otelcol/config.yaml",
			FileMode:          0o644,
		}},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4317")
	require.NoError(t, err)

	provider, err := NewProvider(Config{
		Enabled:        true,
		Endpoint:       fmt.Sprintf("%s:%d", host, port.Int()),
		ServiceVersion: "integration-test",
	})
	require.NoError(t, err)
	require.NoError(t, provider.Start(ctx))

	tracer := provider.GetTracer("analysis")
	reqCtx, span := tracer.Start(ctx, "analyze")
	_, child := tracer.Start(reqCtx, "signals.semantic")
	child.End()
	span.End()

	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, provider.Stop(stopCtx))

	assert.Eventually(t, func() bool {
		logs, err := container.Logs(ctx)
		if err != nil {
			return false
		}
		defer logs.Close()
		out, err := io.ReadAll(logs)
		if err != nil {
			return false
		}
		s := string(out)
		return strings.Contains(s, "analyze") && strings.Contains(s, "signals.semantic")
	}, 15*time.Second, 500*time.Millisecond, "collector should log both spans")
}
