package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/applepay-relay/internal/util"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := ApplyEnv(cfg, lookupFrom(map[string]string{
		EnvPort:                "8080",
		EnvDomainName:          "shop.example.com",
		EnvDisplayName:         "My Store",
		EnvCertificatePath:     "/run/secrets/merchant.pem",
		EnvValidationURL:       "https://apple-pay-gateway.apple.com/paymentservices/startSession",
		EnvUpstreamTimeout:     "20s",
		EnvUpstreamCAFile:      "/etc/ssl/extra.pem",
		EnvLogLevel:            "debug",
		EnvLogFormat:           "console",
		EnvMetricsEnabled:      "yes",
		EnvMetricsPort:         "9300",
		EnvTracingEnabled:      "on",
		EnvTracingSamplingRate: "0.25",
		EnvOTLPEndpoint:        "collector:4317",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Listen.Port)
	assert.Equal(t, "shop.example.com", cfg.Merchant.DomainName)
	assert.Equal(t, "My Store", cfg.Merchant.DisplayName)
	assert.Equal(t, "/run/secrets/merchant.pem", cfg.Merchant.CertificatePath)
	assert.Equal(t, "https://apple-pay-gateway.apple.com/paymentservices/startSession", cfg.Upstream.DefaultValidationURL)
	assert.Equal(t, 20*time.Second, cfg.Upstream.Timeout.Duration())
	assert.Equal(t, "/etc/ssl/extra.pem", cfg.Upstream.CAFile)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "console", cfg.Observability.Logging.Format)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, 9300, cfg.Observability.Metrics.Port)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.InDelta(t, 0.25, cfg.Observability.Tracing.SamplingRate, 1e-9)
	assert.Equal(t, "collector:4317", cfg.Observability.Tracing.OTLPEndpoint)
}

func TestApplyEnv_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{name: "non-numeric port", env: map[string]string{EnvPort: "http"}, field: EnvPort},
		{name: "bad timeout", env: map[string]string{EnvUpstreamTimeout: "10"}, field: EnvUpstreamTimeout},
		{name: "bad metrics port", env: map[string]string{EnvMetricsPort: "x"}, field: EnvMetricsPort},
		{name: "bad sampling rate", env: map[string]string{EnvTracingSamplingRate: "half"}, field: EnvTracingSamplingRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ApplyEnv(DefaultConfig(), lookupFrom(tt.env))
			require.Error(t, err)

			var cfgErr *util.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, util.ErrConfigInvalid)
		})
	}
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	assert.True(t, parseBool("TRUE", false))
	assert.True(t, parseBool("1", false))
	assert.False(t, parseBool("off", true))
	assert.True(t, parseBool("maybe", true))
	assert.False(t, parseBool("maybe", false))
}
