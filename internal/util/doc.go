// Package util provides the relay's shared error types and small
// validation helpers used by configuration loading.
//
// # Error Conventions
//
//   - Sentinel errors (errors.New) for stable conditions that callers
//     check with errors.Is().
//   - Structured error types (ConfigError, UpstreamError) that carry
//     context. Each implements Error(), Unwrap() when wrapping, and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping.
package util
