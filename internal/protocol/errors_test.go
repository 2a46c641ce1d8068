package protocol

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindClassifiesWrappedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&TransportError{Op: "dial", Addr: "127.0.0.1:10051", Err: io.EOF}, "transport"},
		{fmt.Errorf("heartbeat: %w", &ProtocolError{Addr: "x", Err: io.ErrUnexpectedEOF}), "protocol"},
		{&DecodeError{What: "response", Err: ErrMissingResponse}, "decode"},
		{&DecodeError{What: "config", Err: fmt.Errorf("%w: not found", ErrRejected)}, "decode"},
		{errors.New("boom"), "other"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v)=%q want %q", tc.err, got, tc.want)
		}
	}
}

func TestErrorsUnwrapToCause(t *testing.T) {
	err := fmt.Errorf("exchange: %w", &DecodeError{What: "response", Err: ErrMissingResponse})
	if !errors.Is(err, ErrMissingResponse) {
		t.Fatalf("expected ErrMissingResponse in chain: %v", err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.What != "response" {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}
