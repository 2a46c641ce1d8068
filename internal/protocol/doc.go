// Package protocol owns the monitoring-server wire contract.
//
// Ownership boundary:
// - frame: magic + little-endian length envelope
// - session: one request/response exchange per connection
// - envelope: request metadata and the generic acknowledgement
// - error taxonomy shared by all of the above
package protocol
