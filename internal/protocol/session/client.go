package session

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/zbxctl/internal/observability"
	"github.com/danmuck/zbxctl/internal/protocol"
	"github.com/danmuck/zbxctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// DialFunc opens the stream used by one exchange.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client performs synchronous exchanges against one server endpoint. It holds no
// connection state and is safe for concurrent use; each Exchange dials its own stream.
type Client struct {
	addr string
	cfg  Config
	dial DialFunc
}

func NewClient(host string, port uint16, cfg Config) *Client {
	cfg = cfg.WithDefaults()
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	return &Client{
		addr: net.JoinHostPort(host, strconv.Itoa(int(port))),
		cfg:  cfg,
		dial: dialer.DialContext,
	}
}

// WithDialer returns a copy of c that opens streams with dial.
func (c *Client) WithDialer(dial DialFunc) *Client {
	cp := *c
	cp.dial = dial
	return &cp
}

func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) Config() Config {
	return c.cfg
}

// Send is Exchange for a text payload.
func (c *Client) Send(ctx context.Context, payloadText string) ([]byte, error) {
	return c.Exchange(ctx, []byte(payloadText))
}

// Exchange writes payload as one frame, reads one framed response and returns its
// payload. The connection is closed before returning.
func (c *Client) Exchange(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	resp, err := c.exchange(ctx, payload)
	outcome := protocol.Kind(err)
	observability.RecordExchange(outcome, time.Since(start), len(payload), len(resp))

	event := log.Debug()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("component", "session").
		Str("addr", c.addr).
		Str("outcome", outcome).
		Int("sent", len(payload)).
		Int("received", len(resp)).
		Dur("duration", time.Since(start)).
		Msg("exchange")
	return resp, err
}

func (c *Client) exchange(ctx context.Context, payload []byte) ([]byte, error) {
	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return nil, &protocol.TransportError{Op: "dial", Addr: c.addr, Err: err}
	}
	defer func() { _ = conn.Close() }()

	// Unblock pending I/O when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	ctxDeadline, hasDeadline := ctx.Deadline()
	if err := conn.SetWriteDeadline(deadline(c.cfg.WriteTimeout, ctxDeadline, hasDeadline)); err != nil {
		return nil, &protocol.TransportError{Op: "write", Addr: c.addr, Err: err}
	}
	if err := frame.WriteFrame(conn, payload, c.cfg.Limits); err != nil {
		if errors.Is(err, frame.ErrPayloadTooLarge) {
			return nil, &protocol.ProtocolError{Addr: c.addr, Err: err}
		}
		return nil, c.transportErr(ctx, "write", err)
	}

	if err := conn.SetReadDeadline(deadline(c.cfg.ReadTimeout, ctxDeadline, hasDeadline)); err != nil {
		return nil, &protocol.TransportError{Op: "read", Addr: c.addr, Err: err}
	}
	resp, err := frame.ReadFrame(conn, c.cfg.Limits)
	if err != nil {
		switch {
		case errors.Is(err, frame.ErrBadHeader),
			errors.Is(err, frame.ErrEmptyBody),
			errors.Is(err, frame.ErrPayloadTooLarge):
			return nil, &protocol.ProtocolError{Addr: c.addr, Err: err}
		default:
			return nil, c.transportErr(ctx, "read", err)
		}
	}
	return resp, nil
}

func (c *Client) transportErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &protocol.TransportError{Op: op, Addr: c.addr, Err: err}
}

// deadline picks the earlier of now+timeout and the context deadline. The zero time
// means no deadline.
func deadline(timeout time.Duration, ctxDeadline time.Time, hasDeadline bool) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if hasDeadline && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}
