// Package middleware provides the gin middleware chain placed in front
// of the relay endpoint: panic recovery, request IDs, tracing, access
// logging, metrics and the cross-origin policy.
package middleware
