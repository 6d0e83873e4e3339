package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/applepay-relay/internal/util"
)

// Environment variable names.
const (
	EnvPort                = "PORT"
	EnvDomainName          = "APPLE_PAY_DOMAIN"
	EnvDisplayName         = "APPLE_PAY_DISPLAY_NAME"
	EnvCertificatePath     = "APPLE_PAY_CERT_PATH"
	EnvValidationURL       = "APPLE_PAY_VALIDATION_URL"
	EnvUpstreamTimeout     = "RELAY_UPSTREAM_TIMEOUT"
	EnvUpstreamCAFile      = "RELAY_UPSTREAM_CA_FILE"
	EnvLogLevel            = "RELAY_LOG_LEVEL"
	EnvLogFormat           = "RELAY_LOG_FORMAT"
	EnvMetricsEnabled      = "RELAY_METRICS_ENABLED"
	EnvMetricsPort         = "RELAY_METRICS_PORT"
	EnvTracingEnabled      = "RELAY_TRACING_ENABLED"
	EnvTracingSamplingRate = "RELAY_TRACING_SAMPLING_RATE"
	EnvOTLPEndpoint        = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvConfigPath          = "RELAY_CONFIG_PATH"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on cfg. Empty values are
// ignored so an exported-but-blank variable does not erase file config.
func ApplyEnv(cfg *RelayConfig, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		if !ok || value == "" {
			return "", false
		}
		return value, true
	}

	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return util.NewConfigErrorWithCause(EnvPort, "must be an integer", err)
		}
		cfg.Listen.Port = port
	}

	if v, ok := get(EnvDomainName); ok {
		cfg.Merchant.DomainName = v
	}
	if v, ok := get(EnvDisplayName); ok {
		cfg.Merchant.DisplayName = v
	}
	if v, ok := get(EnvCertificatePath); ok {
		cfg.Merchant.CertificatePath = v
	}
	if v, ok := get(EnvValidationURL); ok {
		cfg.Upstream.DefaultValidationURL = v
	}
	if v, ok := get(EnvUpstreamCAFile); ok {
		cfg.Upstream.CAFile = v
	}

	if v, ok := get(EnvUpstreamTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return util.NewConfigErrorWithCause(EnvUpstreamTimeout, "must be a duration", err)
		}
		cfg.Upstream.Timeout = Duration(d)
	}

	if v, ok := get(EnvLogLevel); ok {
		cfg.Observability.Logging.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.Observability.Logging.Format = v
	}

	if v, ok := get(EnvMetricsEnabled); ok {
		cfg.Observability.Metrics.Enabled = parseBool(v, cfg.Observability.Metrics.Enabled)
	}
	if v, ok := get(EnvMetricsPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return util.NewConfigErrorWithCause(EnvMetricsPort, "must be an integer", err)
		}
		cfg.Observability.Metrics.Port = port
	}

	if v, ok := get(EnvTracingEnabled); ok {
		cfg.Observability.Tracing.Enabled = parseBool(v, cfg.Observability.Tracing.Enabled)
	}
	if v, ok := get(EnvTracingSamplingRate); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return util.NewConfigErrorWithCause(EnvTracingSamplingRate, "must be a number", err)
		}
		cfg.Observability.Tracing.SamplingRate = rate
	}
	if v, ok := get(EnvOTLPEndpoint); ok {
		cfg.Observability.Tracing.OTLPEndpoint = v
	}

	return nil
}

// parseBool accepts "true", "1", "yes", "on" and their negations
// (case-insensitive); anything else keeps the current value.
func parseBool(value string, current bool) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return current
	}
}
