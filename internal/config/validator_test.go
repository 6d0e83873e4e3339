package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *RelayConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*RelayConfig) {},
		},
		{
			name: "empty merchant domain and display name are accepted",
			mutate: func(cfg *RelayConfig) {
				cfg.Merchant.DomainName = ""
				cfg.Merchant.DisplayName = ""
			},
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *RelayConfig) { cfg.Listen.Port = 70000 },
			wantErr: "listen.port",
		},
		{
			name:    "missing certificate path",
			mutate:  func(cfg *RelayConfig) { cfg.Merchant.CertificatePath = "" },
			wantErr: "merchant.certificatePath",
		},
		{
			name:    "relative validation URL",
			mutate:  func(cfg *RelayConfig) { cfg.Upstream.DefaultValidationURL = "/startSession" },
			wantErr: "upstream.defaultValidationURL",
		},
		{
			name:    "non-http validation URL",
			mutate:  func(cfg *RelayConfig) { cfg.Upstream.DefaultValidationURL = "ftp://apple.example/session" },
			wantErr: "upstream.defaultValidationURL",
		},
		{
			name:    "invalid CORS header name",
			mutate:  func(cfg *RelayConfig) { cfg.CORS.AllowHeaders = []string{"Content-Type", "X Bad"} },
			wantErr: "cors.allowHeaders[1]",
		},
		{
			name: "metrics port zero when enabled",
			mutate: func(cfg *RelayConfig) {
				cfg.Observability.Metrics.Enabled = true
				cfg.Observability.Metrics.Port = 0
			},
			wantErr: "observability.metrics.port",
		},
		{
			name:    "negative timeout",
			mutate:  func(cfg *RelayConfig) { cfg.Upstream.Timeout = -1 },
			wantErr: "upstream.timeout",
		},
		{
			name:    "no CORS origins",
			mutate:  func(cfg *RelayConfig) { cfg.CORS.AllowOrigins = nil },
			wantErr: "cors.allowOrigins",
		},
		{
			name:    "unknown log level",
			mutate:  func(cfg *RelayConfig) { cfg.Observability.Logging.Level = "trace" },
			wantErr: "observability.logging.level",
		},
		{
			name: "metrics port collides with listener",
			mutate: func(cfg *RelayConfig) {
				cfg.Observability.Metrics.Enabled = true
				cfg.Observability.Metrics.Port = cfg.Listen.Port
			},
			wantErr: "must differ from listen.port",
		},
		{
			name:    "sampling rate above one",
			mutate:  func(cfg *RelayConfig) { cfg.Observability.Tracing.SamplingRate = 2 },
			wantErr: "observability.tracing.samplingRate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	assert.Error(t, ValidateConfig(nil))
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "a: b", ValidationErrors{{Path: "a", Message: "b"}}.Error())

	multi := ValidationErrors{{Path: "a", Message: "b"}, {Message: "c"}}.Error()
	assert.Contains(t, multi, "2 validation errors")
	assert.Contains(t, multi, "1. a: b")
	assert.Contains(t, multi, "2. c")
}
