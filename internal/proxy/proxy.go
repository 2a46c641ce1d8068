package proxy

import (
	"context"
	"fmt"

	"github.com/danmuck/zbxctl/internal/observability"
	"github.com/danmuck/zbxctl/internal/protocol"
	"github.com/danmuck/zbxctl/internal/protocol/envelope"
	"github.com/danmuck/zbxctl/internal/reconcile"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=mock_exchanger.go -package=proxy github.com/danmuck/zbxctl/internal/proxy Exchanger

// Exchanger sends one framed payload and returns the framed reply payload.
// *session.Client satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, payload []byte) ([]byte, error)
}

// Proxy speaks for one named proxy against one server.
type Proxy struct {
	name   string
	ex     Exchanger
	policy envelope.OKPolicy
	opts   reconcile.Options
}

type Option func(*Proxy)

// WithOKPolicy sets how SendData judges the acknowledgement counters.
func WithOKPolicy(policy envelope.OKPolicy) Option {
	return func(p *Proxy) {
		p.policy = policy
	}
}

// WithReconcileOptions sets the row variant read by GetProxyConfig.
func WithReconcileOptions(opts reconcile.Options) Option {
	return func(p *Proxy) {
		p.opts = opts
	}
}

func New(name string, ex Exchanger, opts ...Option) *Proxy {
	p := &Proxy{
		name:   name,
		ex:     ex,
		policy: envelope.OKStrict,
		opts:   reconcile.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Proxy) Name() string {
	return p.name
}

func (p *Proxy) Policy() envelope.OKPolicy {
	return p.policy
}

func (p *Proxy) ReconcileOptions() reconcile.Options {
	return p.opts
}

// Do serializes req, exchanges it and returns the raw reply payload.
func (p *Proxy) Do(ctx context.Context, req envelope.Request) ([]byte, error) {
	payload, err := req.Marshal()
	if err != nil {
		return nil, fmt.Errorf("proxy: encode %q request: %w", req.Request, err)
	}
	return p.ex.Exchange(ctx, payload)
}

// Request sends a request of kind with data and decodes the acknowledgement.
func (p *Proxy) Request(ctx context.Context, kind string, data any) (envelope.Response, error) {
	raw, err := p.Do(ctx, envelope.NewRequest(kind, p.name, data))
	if err != nil {
		return envelope.Response{}, err
	}
	return envelope.DecodeResponse(raw)
}

// FetchConfig requests the proxy configuration and returns the decoded payload. A reply
// whose response field is anything but success is returned as a rejection.
func (p *Proxy) FetchConfig(ctx context.Context) (map[string]any, error) {
	raw, err := p.Do(ctx, envelope.NewRequest(envelope.KindProxyConfig, p.name, nil))
	if err != nil {
		return nil, err
	}
	payload, err := reconcile.DecodePayload(raw)
	if err != nil {
		return nil, err
	}
	if err := configRejection(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func configRejection(payload map[string]any) error {
	resp, ok := payload["response"]
	if !ok {
		return nil
	}
	if s, _ := resp.(string); s == "success" {
		return nil
	}
	info, _ := payload["info"].(string)
	return &protocol.DecodeError{
		What: "config",
		Err:  fmt.Errorf("%w: response=%v info=%q", protocol.ErrRejected, resp, info),
	}
}

// Heartbeat reports whether the server acknowledged a heartbeat.
func (p *Proxy) Heartbeat(ctx context.Context) bool {
	resp, err := p.Request(ctx, envelope.KindProxyHeartbeat, nil)
	return p.finish(envelope.KindProxyHeartbeat, err, err == nil && resp.Success())
}

// SendData pushes metrics as history data. It is true only when the server answered
// success and the counters pass the configured OKPolicy.
func (p *Proxy) SendData(ctx context.Context, metrics []envelope.Metric) bool {
	resp, err := p.Request(ctx, envelope.KindHistoryData, nonNil(metrics))
	if err == nil {
		counters, status := resp.Counters()
		log.Debug().
			Str("component", "proxy").
			Str("proxy", p.name).
			Int("metrics", len(metrics)).
			Str("info", status.String()).
			Int32("processed", counters.Processed).
			Int32("failed", counters.Failed).
			Int32("total", counters.Total).
			Float32("seconds_spent", counters.SecondsSpent).
			Msg("history data acknowledged")
	}
	return p.finish(envelope.KindHistoryData, err, err == nil && resp.Success() && resp.OK(p.policy))
}

// AutoRegister announces hosts and reports whether the server answered success.
func (p *Proxy) AutoRegister(ctx context.Context, hosts []envelope.RegistrationHost) bool {
	resp, err := p.Request(ctx, envelope.KindAutoRegistration, nonNil(hosts))
	return p.finish(envelope.KindAutoRegistration, err, err == nil && resp.Success())
}

// GetConfig is FetchConfig with the error discarded.
func (p *Proxy) GetConfig(ctx context.Context) (map[string]any, bool) {
	payload, err := p.FetchConfig(ctx)
	if !p.finish(envelope.KindProxyConfig, err, err == nil) {
		return nil, false
	}
	return payload, true
}

// GetProxyConfig fetches and reconciles the configuration with the proxy's options.
func (p *Proxy) GetProxyConfig(ctx context.Context) (reconcile.Snapshot, bool) {
	payload, ok := p.GetConfig(ctx)
	if !ok {
		return reconcile.Snapshot{}, false
	}
	return reconcile.Reconcile(payload, p.opts), true
}

func (p *Proxy) finish(kind string, err error, ok bool) bool {
	observability.RecordProxyRequest(kind, ok)
	event := log.Debug().
		Str("component", "proxy").
		Str("proxy", p.name).
		Str("request", kind).
		Bool("ok", ok)
	if err != nil {
		event = event.Err(err).Str("kind", protocol.Kind(err))
	}
	event.Msg("proxy request")
	return ok
}

// nonNil keeps an empty batch encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
