// Package session owns the request/response exchange with the monitoring server.
//
// Ownership boundary:
// - dialing the configured endpoint, one connection per exchange
// - writing one request frame and reading one response frame
// - mapping failures onto the protocol error taxonomy
// - backoff primitives for callers that retry
//
// There is no pooling and no retry inside Exchange.
package session
