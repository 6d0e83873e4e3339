package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/applepay-relay/internal/config"
	"github.com/vyrodovalexey/applepay-relay/internal/health"
	"github.com/vyrodovalexey/applepay-relay/internal/merchant"
	"github.com/vyrodovalexey/applepay-relay/internal/observability"
	"github.com/vyrodovalexey/applepay-relay/internal/server"
	"github.com/vyrodovalexey/applepay-relay/internal/server/middleware"
	"github.com/vyrodovalexey/applepay-relay/internal/session"
)

// probePaths are served by the metrics server and excluded from access logs.
var probePaths = []string{"/health", "/ready", "/live"}

// application holds all application components.
type application struct {
	config        *config.RelayConfig
	credential    *merchant.Credential
	server        *server.Server
	healthChecker *health.Checker
	metrics       *observability.Metrics
	metricsServer *http.Server
	metricsAddr   net.Addr
	tracer        *observability.Tracer
	logger        observability.Logger
}

// newApplication wires every component. Only an unreadable certificate
// or an unusable CA file fails here; a certificate without a merchant
// identifier is logged and the relay still starts.
func newApplication(cfg *config.RelayConfig, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	if tracer.Enabled() {
		logger.Info("tracing enabled",
			observability.String("otlp_endpoint", cfg.Observability.Tracing.OTLPEndpoint),
			observability.Float64("sampling_rate", cfg.Observability.Tracing.SamplingRate),
		)
	}

	credential, err := merchant.LoadCredential(cfg.Merchant.CertificatePath, logger)
	if err != nil {
		return nil, err
	}
	metrics.SetMerchantIdentifierLoaded(credential.HasMerchantIdentifier())

	healthChecker := health.NewChecker(version, logger)
	healthChecker.RegisterCheck("merchant_credential", health.MerchantCredentialCheck(credential))

	client, err := session.NewClient(credential,
		session.ClientConfig{
			Timeout: cfg.Upstream.Timeout.Duration(),
			CAFile:  cfg.Upstream.CAFile,
		},
		session.WithClientLogger(logger),
		session.WithClientMetrics(metrics),
		session.WithClientTracer(tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation client: %w", err)
	}

	srv := server.New(server.Config{
		Address:     cfg.Listen.Address,
		Port:        cfg.Listen.Port,
		ReadTimeout: cfg.Listen.ReadTimeout.Duration(),
	}, server.WithLogger(logger))
	srv.Use(buildMiddlewareChain(cfg, logger, metrics, tracer)...)

	handler := session.NewHandler(client,
		session.MerchantProfile{
			DomainName:           cfg.Merchant.DomainName,
			DisplayName:          cfg.Merchant.DisplayName,
			DefaultValidationURL: cfg.Upstream.DefaultValidationURL,
		},
		session.WithHandlerLogger(logger),
		session.WithHandlerMetrics(metrics),
	)
	handler.Register(srv.Engine())

	return &application{
		config:        cfg,
		credential:    credential,
		server:        srv,
		healthChecker: healthChecker,
		metrics:       metrics,
		tracer:        tracer,
		logger:        logger,
	}, nil
}

// initTracer initializes the tracer.
func initTracer(cfg *config.RelayConfig) (*observability.Tracer, error) {
	tracing := cfg.Observability.Tracing
	serviceName := tracing.ServiceName
	if serviceName == "" {
		serviceName = "applepay-relay"
	}

	return observability.NewTracer(observability.TracerConfig{
		ServiceName:  serviceName,
		OTLPEndpoint: tracing.OTLPEndpoint,
		SamplingRate: tracing.SamplingRate,
		Enabled:      tracing.Enabled,
	})
}

// buildMiddlewareChain returns the middleware in execution order.
func buildMiddlewareChain(
	cfg *config.RelayConfig,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			TracerProvider: tracer.TracerProvider(),
			ServiceName:    cfg.Observability.Tracing.ServiceName,
		}),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    logger,
			SkipPaths: probePaths,
		}),
		middleware.Metrics(metrics),
		middleware.CORS(middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowOrigins,
			AllowHeaders: cfg.CORS.AllowHeaders,
		}),
	}
}

// start binds the relay listener and, when enabled, the metrics server.
func (a *application) start(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return err
	}

	metricsCfg := a.config.Observability.Metrics
	if !metricsCfg.Enabled {
		return nil
	}

	metricsServer, addr, err := startMetricsServer(ctx, a.config.Listen.Address, metricsCfg,
		a.metrics, a.healthChecker, a.logger)
	if err != nil {
		return err
	}
	a.metricsServer = metricsServer
	a.metricsAddr = addr
	return nil
}

// stop shuts every component down within ctx.
func (a *application) stop(ctx context.Context, logger observability.Logger) {
	if a.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if err := a.server.Stop(ctx); err != nil {
		logger.Error("failed to stop relay gracefully", observability.Error(err))
	}

	if err := a.tracer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}
}

// startMetricsServer serves metrics and probes on their own port.
func startMetricsServer(
	ctx context.Context,
	address string,
	cfg config.MetricsConfig,
	metrics *observability.Metrics,
	healthChecker *health.Checker,
	logger observability.Logger,
) (*http.Server, net.Addr, error) {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.HandleFunc("/health", healthChecker.HealthHandler())
	mux.HandleFunc("/ready", healthChecker.ReadinessHandler())
	mux.HandleFunc("/live", healthChecker.LivenessHandler())

	addr := net.JoinHostPort(address, strconv.Itoa(cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logger.Info("starting metrics server",
		observability.String("address", ln.Addr().String()),
		observability.String("metrics_path", path),
	)

	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", observability.Error(err))
		}
	}()

	return srv, ln.Addr(), nil
}
