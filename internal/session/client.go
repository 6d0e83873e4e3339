package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/applepay-relay/internal/merchant"
	"github.com/vyrodovalexey/applepay-relay/internal/observability"
	"github.com/vyrodovalexey/applepay-relay/internal/util"
)

// SessionStarter performs one merchant validation call.
type SessionStarter interface {
	StartSession(ctx context.Context, req ValidationRequest) (*UpstreamResponse, error)
}

// MetricsRecorder receives relay measurements. *observability.Metrics
// satisfies it.
type MetricsRecorder interface {
	RecordUpstream(outcome string, status int, duration time.Duration)
	RecordDisplayNameStripped()
}

type nopMetrics struct{}

func (nopMetrics) RecordUpstream(string, int, time.Duration) {}
func (nopMetrics) RecordDisplayNameStripped()                {}

// NewNopMetrics returns a MetricsRecorder that discards everything.
func NewNopMetrics() MetricsRecorder {
	return nopMetrics{}
}

// UpstreamResponse is what the validation service returned. Non-2xx
// statuses are not errors; they are relayed like any other body.
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// ClientConfig configures the outbound transport.
type ClientConfig struct {
	// Timeout bounds the whole outbound exchange. Zero disables it.
	Timeout time.Duration
	// CAFile is an optional PEM bundle added to the system roots.
	CAFile string
}

// Client posts merchant identity to Apple's validation service over
// mutually authenticated TLS.
type Client struct {
	credential *merchant.Credential
	httpClient *http.Client
	logger     observability.Logger
	metrics    MetricsRecorder
	tracer     *observability.Tracer
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger.
func WithClientLogger(logger observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics sets the metrics recorder.
func WithClientMetrics(metrics MetricsRecorder) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithClientTracer sets the tracer used for outbound spans.
func WithClientTracer(tracer *observability.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithTransport replaces the mTLS transport, e.g. with a recording
// RoundTripper in tests.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient builds a Client presenting the credential's key pair as the
// TLS client certificate. A credential without a usable key pair is
// accepted; calls then go out without a client certificate and are
// rejected by the upstream.
func NewClient(credential *merchant.Credential, cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	if credential == nil {
		return nil, errors.New("merchant credential is required")
	}

	tlsConfig, err := buildTLSConfig(credential, cfg)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	c := &Client{
		credential: credential,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger:  observability.NopLogger(),
		metrics: NewNopMetrics(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tracer == nil {
		c.tracer, err = observability.NewTracer(observability.TracerConfig{ServiceName: "applepay-relay"})
		if err != nil {
			return nil, err
		}
	}

	if len(tlsConfig.Certificates) == 0 {
		c.logger.Warn("merchant validation calls will be sent without a client certificate",
			observability.String("certificate_path", credential.Path()),
		)
	}

	return c, nil
}

func buildTLSConfig(credential *merchant.Credential, cfg ClientConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if keyPair, err := credential.KeyPair(); err == nil {
		tlsConfig.Certificates = []tls.Certificate{keyPair}
	}

	if cfg.CAFile != "" {
		pool, err := loadRootCAs(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// loadRootCAs returns the system pool extended with the PEM bundle at path.
func loadRootCAs(path string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(path) //nolint:gosec // operator-supplied CA path
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file %s: %w", path, err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to parse CA certificate from %s", path)
	}
	return pool, nil
}

// StartSession posts the merchant identity to req.ValidationURL and
// returns the upstream response. An error is returned only when no
// complete response was received.
func (c *Client) StartSession(ctx context.Context, req ValidationRequest) (*UpstreamResponse, error) {
	ctx, span := c.tracer.StartSpan(ctx, "applepay.start_session",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.full", req.ValidationURL),
			attribute.Bool("applepay.merchant_identifier_present", c.credential.HasMerchantIdentifier()),
		),
	)
	defer span.End()

	logger := c.logger.WithContext(ctx).With(
		observability.String("validation_url", req.ValidationURL),
	)

	start := time.Now()
	resp, err := c.do(ctx, req)
	duration := time.Since(start)

	if err != nil {
		c.metrics.RecordUpstream(observability.OutcomeTransportError, 0, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "merchant validation request failed")
		logger.Warn("merchant validation request failed",
			observability.Duration("duration", duration),
			observability.Error(err),
		)
		return nil, err
	}

	outcome := observability.OutcomeSuccess
	switch {
	case resp.StatusCode >= http.StatusBadRequest:
		outcome = observability.OutcomeHTTPError
	case len(resp.Body) == 0:
		outcome = observability.OutcomeEmptyBody
	}

	c.metrics.RecordUpstream(outcome, resp.StatusCode, duration)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if outcome == observability.OutcomeSuccess {
		logger.Debug("merchant validation succeeded",
			observability.Int("upstream_status", resp.StatusCode),
			observability.Duration("duration", duration),
		)
	} else {
		span.SetStatus(codes.Error, outcome)
		logger.Warn("merchant validation returned an unusable response",
			observability.String("outcome", outcome),
			observability.Int("upstream_status", resp.StatusCode),
			observability.Int("body_size", len(resp.Body)),
			observability.Duration("duration", duration),
		)
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, req ValidationRequest) (*UpstreamResponse, error) {
	body, err := json.Marshal(req.Payload(c.credential.MerchantIdentifier()))
	if err != nil {
		return nil, fmt.Errorf("failed to encode merchant validation payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.ValidationURL, bytes.NewReader(body))
	if err != nil {
		return nil, util.NewUpstreamErrorWithCause(req.ValidationURL, "invalid validation URL", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(req.ValidationURL, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, wrapTransportError(req.ValidationURL, err)
	}

	return &UpstreamResponse{
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

func wrapTransportError(url string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return util.NewUpstreamErrorWithCause(url, "request timed out", errors.Join(util.ErrTimeout, err))
	}
	return util.NewUpstreamErrorWithCause(url, "request failed", err)
}
