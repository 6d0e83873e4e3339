package config

// DefaultValidationURL is Apple's certificate-environment session start endpoint.
const DefaultValidationURL = "https://apple-pay-gateway-cert.apple.com/paymentservices/startSession"

// DefaultCertificatePath is where the merchant certificate and key are read from.
const DefaultCertificatePath = "./apple-pay-cert.pem"

// Default listener and metrics ports.
const (
	DefaultPort        = 3000
	DefaultMetricsPort = 9090
)

// RelayConfig is the complete relay configuration.
type RelayConfig struct {
	Listen        ListenConfig        `yaml:"listen" json:"listen"`
	Merchant      MerchantConfig      `yaml:"merchant" json:"merchant"`
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`
	CORS          CORSConfig          `yaml:"cors" json:"cors"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ListenConfig configures the inbound HTTP listener.
type ListenConfig struct {
	Address         string   `yaml:"address,omitempty" json:"address,omitempty"`
	Port            int      `yaml:"port" json:"port"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// MerchantConfig holds the merchant identity material. DomainName and
// DisplayName are sent to Apple unvalidated.
type MerchantConfig struct {
	CertificatePath string `yaml:"certificatePath" json:"certificatePath"`
	DomainName      string `yaml:"domainName,omitempty" json:"domainName,omitempty"`
	DisplayName     string `yaml:"displayName,omitempty" json:"displayName,omitempty"`
}

// UpstreamConfig configures the outbound call to the validation service.
type UpstreamConfig struct {
	DefaultValidationURL string `yaml:"defaultValidationURL" json:"defaultValidationURL"`
	// Timeout bounds the outbound call. Zero means no timeout.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// CAFile adds a PEM root CA to the system pool.
	CAFile string `yaml:"caFile,omitempty" json:"caFile,omitempty"`
}

// CORSConfig contains the cross-origin policy applied to every response.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins,omitempty" json:"allowOrigins,omitempty"`
	AllowHeaders []string `yaml:"allowHeaders,omitempty" json:"allowHeaders,omitempty"`
}

// ObservabilityConfig groups logging, metrics and tracing settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig configures the metrics and probes server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// DefaultCORSAllowHeaders is the request header allow-list sent on every response.
func DefaultCORSAllowHeaders() []string {
	return []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() *RelayConfig {
	return &RelayConfig{
		Listen: ListenConfig{
			Port:            DefaultPort,
			ReadTimeout:     Duration(defaultReadTimeout),
			ShutdownTimeout: Duration(defaultShutdownTimeout),
		},
		Merchant: MerchantConfig{
			CertificatePath: DefaultCertificatePath,
		},
		Upstream: UpstreamConfig{
			DefaultValidationURL: DefaultValidationURL,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			AllowHeaders: DefaultCORSAllowHeaders(),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "json"},
			Metrics: MetricsConfig{Port: DefaultMetricsPort, Path: "/metrics"},
			Tracing: TracingConfig{SamplingRate: 1.0, ServiceName: "applepay-relay"},
		},
	}
}
