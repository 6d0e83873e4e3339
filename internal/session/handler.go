package session

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/applepay-relay/internal/observability"
)

// RoutePath is the single relay endpoint.
const RoutePath = "/merchant-session/new"

// Handler serves the merchant session endpoint.
type Handler struct {
	starter SessionStarter
	profile MerchantProfile
	logger  observability.Logger
	metrics MetricsRecorder
}

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHandlerMetrics sets the metrics recorder.
func WithHandlerMetrics(metrics MetricsRecorder) HandlerOption {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// NewHandler creates a Handler relaying through starter.
func NewHandler(starter SessionStarter, profile MerchantProfile, opts ...HandlerOption) *Handler {
	h := &Handler{
		starter: starter,
		profile: profile,
		logger:  observability.NopLogger(),
		metrics: NewNopMetrics(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register mounts the handler on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET(RoutePath, h.NewSession)
}

// NewSession relays one merchant validation call. The response status
// is always 200.
func (h *Handler) NewSession(c *gin.Context) {
	req := NewValidationRequest(c.Query(ValidationURLParam), h.profile)

	// The outbound call outlives an abandoned inbound connection.
	ctx := context.WithoutCancel(c.Request.Context())
	logger := h.logger.WithContext(ctx)

	resp, err := h.starter.StartSession(ctx, req)
	if err != nil {
		logger.Warn("relaying empty merchant session",
			observability.String("validation_url", req.ValidationURL),
			observability.Error(err),
		)
		writeEmpty(c)
		return
	}

	body := TransformResponse(resp.Body)
	if body.DisplayNameStripped {
		h.metrics.RecordDisplayNameStripped()
	}

	if len(body.Data) == 0 {
		logger.Warn("relaying empty merchant session",
			observability.String("validation_url", req.ValidationURL),
			observability.Int("upstream_status", resp.StatusCode),
		)
		writeEmpty(c)
		return
	}

	logger.Debug("relaying merchant session",
		observability.Int("upstream_status", resp.StatusCode),
		observability.String("merchant_session_identifier", body.SessionIdentifier),
		observability.Strings("fields", body.Fields),
		observability.Bool("display_name_stripped", body.DisplayNameStripped),
	)
	c.Data(http.StatusOK, body.ContentType, body.Data)
}

func writeEmpty(c *gin.Context) {
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
}
