package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/applepay-relay/internal/observability"
)

func newTracingEngine(t *testing.T, skip ...string) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	engine := gin.New()
	engine.Use(RequestID(), TracingWithConfig(TracingConfig{
		TracerProvider: provider,
		Propagators:    propagation.TraceContext{},
		SkipPaths:      skip,
	}))
	return engine, recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	return attrs
}

func TestTracing_ServerSpan(t *testing.T) {
	t.Parallel()

	engine, recorder := newTracingEngine(t)

	core, logs := observer.New(zapcore.InfoLevel)
	logger := observability.NewLoggerFromCore(core)
	engine.GET("/merchant-session/new", func(c *gin.Context) {
		logger.WithContext(c.Request.Context()).Info("handled")
		require.NotNil(t, GetSpan(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/merchant-session/new", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /merchant-session/new", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	handled := logs.FilterMessage("handled").All()
	require.Len(t, handled, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), handled[0].ContextMap()["trace_id"])
	assert.Equal(t, "req-7", handled[0].ContextMap()["request_id"])

	attrs := spanAttributes(spans[0])
	assert.Equal(t, "/merchant-session/new", attrs["http.route"])
	assert.Equal(t, "200", attrs["http.response.status_code"])
	assert.Equal(t, "req-7", attrs["request.id"])
}

func TestTracing_ExtractsParent(t *testing.T) {
	t.Parallel()

	engine, recorder := newTracingEngine(t)
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}

func TestTracing_ServerErrorStatus(t *testing.T) {
	t.Parallel()

	engine, recorder := newTracingEngine(t)
	engine.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_SkipPaths(t *testing.T) {
	t.Parallel()

	engine, recorder := newTracingEngine(t, "/health")
	engine.GET("/health", func(c *gin.Context) {
		assert.Nil(t, GetSpan(c))
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, recorder.Ended())
}
