package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMissingResponse = errors.New("protocol: missing response field")
	ErrNotObject       = errors.New("protocol: payload is not a json object")
	ErrRejected        = errors.New("protocol: request rejected by server")
)

// TransportError covers dial, write and read failures, including a peer that closes
// the stream before the declared payload arrived.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("protocol: transport %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError means the peer was reachable but did not speak the expected framing.
type ProtocolError struct {
	Addr string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: peer %s: %v", e.Addr, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DecodeError means the payload was not valid json of the expected shape.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Kind names the taxonomy bucket of err for logs and metric labels.
func Kind(err error) string {
	var (
		transportErr *TransportError
		protocolErr  *ProtocolError
		decodeErr    *DecodeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &protocolErr):
		return "protocol"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "other"
	}
}
