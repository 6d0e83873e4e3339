// Package session relays Apple Pay merchant validation requests.
//
// A Handler serves GET /merchant-session/new. For every call it builds
// a ValidationRequest, posts the merchant identity to the validation
// URL through a Client authenticated with the merchant certificate, and
// writes the upstream payload back with displayName removed.
//
// The relay never synthesizes an error status. Upstream failures reach
// the caller as a 200 response with whatever body was received, which
// may be empty.
package session
