// Package server hosts the relay's gin engine behind a net/http server
// with an explicit Start/Stop lifecycle.
//
// Start binds the listener before returning, so a port of 0 can be used
// in tests and the bound address read back with Addr.
package server
