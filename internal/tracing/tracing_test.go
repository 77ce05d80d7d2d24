package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledProvider(t *testing.T) {
	p, err := NewProvider(Config{Enabled: false})

	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NotNil(t, p.GetTracer("analysis"))
	assert.NoError(t, p.Start(context.Background()))
	assert.NoError(t, p.Stop(context.Background()))
}

func TestEnabledWithoutEndpoint(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true})

	assert.ErrorContains(t, err, "endpoint not configured")
}

func TestProviderConnectionSecurity(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError string
	}{
		{
			name: "plaintext",
			cfg:  Config{Enabled: true, Endpoint: "localhost:4317"},
		},
		{
			name: "tls without verification",
			cfg:  Config{Enabled: true, Endpoint: "localhost:4317", TLSInsecure: true},
		},
		{
			name:      "tls with missing ca file",
			cfg:       Config{Enabled: true, Endpoint: "localhost:4317", TLSCAPath: "testdata/does-not-exist.crt"},
			wantError: "failed to read CA certificate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantError != "" {
				assert.ErrorContains(t, err, tt.wantError)
				return
			}

			// The OTLP exporter connects lazily, so construction succeeds
			// without a collector listening.
			require.NoError(t, err)
			assert.True(t, p.IsEnabled())
			assert.Equal(t, "tracing-provider", p.Name())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			// Shutdown with a canceled context still releases the provider.
			_ = p.Stop(ctx)
		})
	}
}
