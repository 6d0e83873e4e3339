// Package main is the entry point for the Apple Pay merchant session relay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/applepay-relay/internal/config"
	"github.com/vyrodovalexey/applepay-relay/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	cfg := loadConfig(flags)

	logger := initLogger(cfg)
	defer func() { _ = logger.Sync() }()

	validateConfig(cfg, logger)
	app := initApplication(cfg, logger)

	runRelay(app, logger)
}

// parseFlags parses command line flags. Empty log flags keep the
// configured values.
func parseFlags() cliFlags {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "Path to optional YAML configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("applepay-relay version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// loadConfig loads the configuration before a logger exists, so
// failures go to stderr.
func loadConfig(flags cliFlags) *config.RelayConfig {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	applyFlagOverrides(cfg, flags)
	return cfg
}

func applyFlagOverrides(cfg *config.RelayConfig, flags cliFlags) {
	if flags.logLevel != "" {
		cfg.Observability.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Observability.Logging.Format = flags.logFormat
	}
}

// initLogger initializes the logger.
func initLogger(cfg *config.RelayConfig) observability.Logger {
	logCfg := observability.DefaultLogConfig()
	if cfg.Observability.Logging.Level != "" {
		logCfg.Level = cfg.Observability.Logging.Level
	}
	if cfg.Observability.Logging.Format != "" {
		logCfg.Format = cfg.Observability.Logging.Format
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return logger
}

func validateConfig(cfg *config.RelayConfig, logger observability.Logger) {
	logger.Info("starting applepay-relay",
		observability.String("version", version),
		observability.String("certificate_path", cfg.Merchant.CertificatePath),
	)

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	if cfg.Upstream.Timeout.Duration() == 0 {
		logger.Warn("merchant validation calls have no timeout")
	}
}

// initApplication builds the application or exits.
func initApplication(cfg *config.RelayConfig, logger observability.Logger) *application {
	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize relay", observability.Error(err))
	}
	return app
}

// runRelay starts serving and blocks until a shutdown signal.
func runRelay(app *application, logger observability.Logger) {
	if err := app.start(context.Background()); err != nil {
		logger.Fatal("failed to start relay", observability.Error(err))
	}

	waitForShutdown(app, logger)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown.
func waitForShutdown(app *application, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Listen.ShutdownTimeout.Duration())
	defer cancel()

	app.stop(shutdownCtx, logger)

	logger.Info("relay stopped")
}
