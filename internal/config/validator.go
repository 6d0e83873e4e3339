package config

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/applepay-relay/internal/util"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidateConfig checks structural correctness of the relay
// configuration. Merchant domain and display name are deliberately
// not validated; they are forwarded to Apple as configured.
func ValidateConfig(cfg *RelayConfig) error {
	var errs ValidationErrors
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if cfg == nil {
		return ValidationErrors{{Message: "configuration is nil"}}
	}

	if err := util.ValidateNonNegativePort(cfg.Listen.Port); err != nil {
		add("listen.port", "%v", err)
	}
	if cfg.Listen.ReadTimeout < 0 {
		add("listen.readTimeout", "must not be negative")
	}

	if cfg.Merchant.CertificatePath == "" {
		add("merchant.certificatePath", "is required")
	}

	if err := util.ValidateURL(cfg.Upstream.DefaultValidationURL); err != nil {
		add("upstream.defaultValidationURL", "%v", err)
	}
	if cfg.Upstream.Timeout < 0 {
		add("upstream.timeout", "must not be negative")
	}

	if len(cfg.CORS.AllowOrigins) == 0 {
		add("cors.allowOrigins", "must contain at least one origin")
	}
	for i, header := range cfg.CORS.AllowHeaders {
		if err := util.ValidateHeaderName(header); err != nil {
			add(fmt.Sprintf("cors.allowHeaders[%d]", i), "%v", err)
		}
	}

	switch cfg.Observability.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("observability.logging.level", "unsupported level %q", cfg.Observability.Logging.Level)
	}
	switch cfg.Observability.Logging.Format {
	case "json", "console":
	default:
		add("observability.logging.format", "unsupported format %q", cfg.Observability.Logging.Format)
	}

	metrics := cfg.Observability.Metrics
	if metrics.Enabled {
		if err := util.ValidatePort(metrics.Port); err != nil {
			add("observability.metrics.port", "%v", err)
		} else if metrics.Port == cfg.Listen.Port {
			add("observability.metrics.port", "must differ from listen.port")
		}
		if !strings.HasPrefix(metrics.Path, "/") {
			add("observability.metrics.path", "must start with /")
		}
	}

	tracing := cfg.Observability.Tracing
	if err := util.ValidateRatio(tracing.SamplingRate); err != nil {
		add("observability.tracing.samplingRate", "%v", err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
