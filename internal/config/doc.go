// Package config provides configuration types and loading for the
// merchant session relay.
//
// The effective configuration is assembled in three layers:
//
//  1. DefaultConfig: port 3000, ./apple-pay-cert.pem, Apple's
//     certificate-environment validation URL.
//
//  2. An optional YAML file with ${VAR:-default} substitution.
//
//  3. Environment variables (PORT, APPLE_PAY_DOMAIN,
//     APPLE_PAY_DISPLAY_NAME and the RELAY_* family).
//
//     cfg, err := config.LoadConfig(os.Getenv(config.EnvConfigPath))
//     if err != nil {
//     log.Fatal(err)
//     }
//     if err := config.ValidateConfig(cfg); err != nil {
//     log.Fatal(err)
//     }
package config
