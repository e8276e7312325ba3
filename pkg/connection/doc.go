// Package connection supervises the lifetime of a daemon session.
//
// A Supervisor runs a session function until its context is cancelled.
// When reconnection is enabled, a session that ends with an error is
// started again after an exponential backoff delay.
//
// # Reconnection Strategy
//
// Delays start at 1 second and double on every failed attempt up to
// 30 seconds:
//
//	1s, 2s, 4s, 8s, 16s, 30s, 30s, ...
//
// The backoff resets once a session reports that it is connected, so a
// session that ran for a while and then dropped starts over at 1 second.
//
// # Jitter
//
// Every delay is stretched by a random amount:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// # Scope
//
// Reconnection lives above the fetch layer. A new session dials a new
// transport, attaches a new peer and subscribes again; fetch ids from a
// previous session are not carried over.
package connection
