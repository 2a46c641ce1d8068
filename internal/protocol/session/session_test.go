package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/zbxctl/internal/protocol"
	"github.com/danmuck/zbxctl/internal/protocol/frame"
	"github.com/danmuck/zbxctl/internal/testutil/testlog"
)

// fakeServer accepts connections on loopback and runs handler for each one.
func fakeServer(t *testing.T, handler func(conn net.Conn)) (string, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handler(conn)
			}()
		}
	}()
	return "127.0.0.1", uint16(ln.Addr().(*net.TCPAddr).Port)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = time.Second
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	return cfg
}

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterBounds(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 2.0, MaxDelay: time.Minute, Jitter: true}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		got := NextBackoffDelay(cfg, 3, rng)
		if got < 2*time.Second || got > 6*time.Second {
			t.Fatalf("jittered delay out of range: %v", got)
		}
	}
}

func TestSleepBackoffHonorsContext(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepBackoff(ctx, BackoffConfig{InitialDelay: time.Hour}, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExchangeRoundTrip(t *testing.T) {
	testlog.Start(t)
	req := []byte(`{"request":"proxy heartbeat","host":"proxy-a","clock":1,"ns":0,"data":null}`)
	resp := []byte(`{"response":"success"}`)
	host, port := fakeServer(t, func(conn net.Conn) {
		got, err := frame.ReadFrame(conn, frame.DefaultLimits())
		if err != nil {
			t.Errorf("server read: %v", err)
			return
		}
		if !bytes.Equal(got, req) {
			t.Errorf("server got %q", got)
		}
		_, _ = conn.Write(frame.Encode(resp))
	})

	c := NewClient(host, port, testConfig())
	got, err := c.Exchange(context.Background(), req)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !bytes.Equal(got, resp) {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestExchangeResponseSplitAcrossWrites(t *testing.T) {
	testlog.Start(t)
	resp := bytes.Repeat([]byte("x"), 4096)
	host, port := fakeServer(t, func(conn net.Conn) {
		if _, err := frame.ReadFrame(conn, frame.DefaultLimits()); err != nil {
			return
		}
		pkt := frame.Encode(resp)
		for len(pkt) > 0 {
			n := min(len(pkt), 7)
			_, _ = conn.Write(pkt[:n])
			pkt = pkt[n:]
		}
	})

	got, err := NewClient(host, port, testConfig()).Send(context.Background(), "{}")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !bytes.Equal(got, resp) {
		t.Fatalf("response length mismatch: %d", len(got))
	}
}

func TestExchangeBadHeaderIsProtocolError(t *testing.T) {
	testlog.Start(t)
	host, port := fakeServer(t, func(conn net.Conn) {
		_, _ = frame.ReadFrame(conn, frame.DefaultLimits())
		head := frame.EncodeHeader(2)
		copy(head, "ZBXD\x02")
		_, _ = conn.Write(append(head, '{', '}'))
	})

	_, err := NewClient(host, port, testConfig()).Send(context.Background(), "{}")
	var protoErr *protocol.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if !errors.Is(err, frame.ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestExchangeEmptyBodyIsProtocolError(t *testing.T) {
	testlog.Start(t)
	host, port := fakeServer(t, func(conn net.Conn) {
		_, _ = frame.ReadFrame(conn, frame.DefaultLimits())
		_, _ = conn.Write(frame.EncodeHeader(0))
	})

	_, err := NewClient(host, port, testConfig()).Send(context.Background(), "{}")
	if !errors.Is(err, frame.ErrEmptyBody) || protocol.Kind(err) != "protocol" {
		t.Fatalf("expected protocol ErrEmptyBody, got %v", err)
	}
}

func TestExchangeTruncatedIsTransportError(t *testing.T) {
	testlog.Start(t)
	host, port := fakeServer(t, func(conn net.Conn) {
		_, _ = frame.ReadFrame(conn, frame.DefaultLimits())
		_, _ = conn.Write(append(frame.EncodeHeader(100), []byte(`{"resp`)...))
	})

	_, err := NewClient(host, port, testConfig()).Send(context.Background(), "{}")
	var transportErr *protocol.TransportError
	if !errors.As(err, &transportErr) || transportErr.Op != "read" {
		t.Fatalf("expected read TransportError, got %v", err)
	}
	if !errors.Is(err, frame.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestExchangeConnectionRefused(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	_ = ln.Close()

	_, err = NewClient("127.0.0.1", port, testConfig()).Send(context.Background(), "{}")
	var transportErr *protocol.TransportError
	if !errors.As(err, &transportErr) || transportErr.Op != "dial" {
		t.Fatalf("expected dial TransportError, got %v", err)
	}
}

func TestExchangeContextDeadline(t *testing.T) {
	testlog.Start(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	host, port := fakeServer(t, func(conn net.Conn) {
		_, _ = frame.ReadFrame(conn, frame.DefaultLimits())
		<-release
	})

	cfg := testConfig()
	cfg.ReadTimeout = 0
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewClient(host, port, cfg).Send(ctx, "{}")
	if protocol.Kind(err) != "transport" {
		t.Fatalf("expected transport error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("exchange did not honor context deadline")
	}
}

func TestExchangeUsesCustomDialer(t *testing.T) {
	testlog.Start(t)
	client, server := net.Pipe()
	go func() {
		defer server.Close()
		if _, err := frame.ReadFrame(server, frame.DefaultLimits()); err != nil {
			return
		}
		_, _ = server.Write(frame.Encode([]byte(`{"response":"success"}`)))
	}()

	c := NewClient("zabbix.invalid", 10051, testConfig()).WithDialer(
		func(ctx context.Context, network, addr string) (net.Conn, error) {
			if addr != "zabbix.invalid:10051" {
				return nil, fmt.Errorf("unexpected addr %q", addr)
			}
			return client, nil
		})
	got, err := c.Send(context.Background(), `{"request":"proxy heartbeat"}`)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if string(got) != `{"response":"success"}` {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestExchangesAreIndependent(t *testing.T) {
	testlog.Start(t)
	host, port := fakeServer(t, func(conn net.Conn) {
		got, err := frame.ReadFrame(conn, frame.DefaultLimits())
		if err != nil {
			return
		}
		_, _ = conn.Write(frame.Encode(got))
	})

	c := NewClient(host, port, testConfig())
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf(`{"n":%d}`, i)
			got, err := c.Send(context.Background(), want)
			if err != nil {
				errs <- err
				return
			}
			if string(got) != want {
				errs <- fmt.Errorf("echo mismatch: got=%s want=%s", got, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent exchange: %v", err)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ReadTimeout: time.Second}.WithDefaults()
	if cfg.Limits.MaxPayloadBytes != frame.DefaultLimits().MaxPayloadBytes {
		t.Fatalf("limits not defaulted: %+v", cfg.Limits)
	}
	if cfg.ReadTimeout != time.Second || cfg.WriteTimeout != 0 {
		t.Fatalf("timeouts should be preserved: %+v", cfg)
	}
	if cfg.Backoff.InitialDelay <= 0 || cfg.Backoff.Multiplier <= 0 {
		t.Fatalf("backoff not defaulted: %+v", cfg.Backoff)
	}
}
