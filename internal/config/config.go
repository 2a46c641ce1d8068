package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/zbxctl/internal/protocol/envelope"
	"github.com/danmuck/zbxctl/internal/protocol/frame"
	"github.com/danmuck/zbxctl/internal/protocol/session"
	"github.com/danmuck/zbxctl/internal/reconcile"
	"github.com/go-playground/validator/v10"
)

// ProxyConfig is the typed configuration of one proxy process.
type ProxyConfig struct {
	Name              string        `validate:"required"`
	Server            string        `validate:"required"`
	Port              uint16        `validate:"min=1"`
	ConnectTimeout    time.Duration `validate:"gte=0s"`
	ReadTimeout       time.Duration `validate:"gte=0s"`
	WriteTimeout      time.Duration `validate:"gte=0s"`
	MaxPayloadBytes   uint64
	OKPolicy          string        `validate:"oneof=lenient strict"`
	HeartbeatInterval time.Duration `validate:"gt=0s"`
	ConfigInterval    time.Duration `validate:"gt=0s"`
	AdminAddr         string
	AdminToken        string
	CorsOrigins       []string `validate:"dive,required"`
	Reconcile         ReconcileConfig
}

type ReconcileConfig struct {
	FilterDisabled bool
	DisplayNames   bool
	ItemIDs        bool
	Compress       []string `validate:"dive,required"`
}

// fileConfig is the on-disk shape. Durations are strings such as "30s".
type fileConfig struct {
	Name              string        `toml:"name"`
	Server            string        `toml:"server"`
	Port              uint16        `toml:"port"`
	ConnectTimeout    string        `toml:"connect_timeout"`
	ReadTimeout       string        `toml:"read_timeout"`
	WriteTimeout      string        `toml:"write_timeout"`
	MaxPayloadBytes   uint64        `toml:"max_payload_bytes"`
	OKPolicy          string        `toml:"ok_policy"`
	HeartbeatInterval string        `toml:"heartbeat_interval"`
	ConfigInterval    string        `toml:"config_interval"`
	AdminAddr         string        `toml:"admin_addr"`
	AdminToken        string        `toml:"admin_token"`
	CorsOrigins       []string      `toml:"cors_origins"`
	Reconcile         fileReconcile `toml:"reconcile"`
}

type fileReconcile struct {
	FilterDisabled bool     `toml:"filter_disabled"`
	DisplayNames   bool     `toml:"display_names"`
	ItemIDs        bool     `toml:"item_ids"`
	Compress       []string `toml:"compress"`
}

func DefaultProxyConfig() ProxyConfig {
	sess := session.DefaultConfig()
	opts := reconcile.DefaultOptions()
	return ProxyConfig{
		Name:              "zbx-proxy",
		Server:            "127.0.0.1",
		Port:              10051,
		ConnectTimeout:    sess.ConnectTimeout,
		ReadTimeout:       sess.ReadTimeout,
		WriteTimeout:      sess.WriteTimeout,
		MaxPayloadBytes:   sess.Limits.MaxPayloadBytes,
		OKPolicy:          string(envelope.OKStrict),
		HeartbeatInterval: 60 * time.Second,
		ConfigInterval:    300 * time.Second,
		AdminAddr:         "",
		CorsOrigins:       []string{},
		Reconcile: ReconcileConfig{
			FilterDisabled: opts.FilterDisabled,
			DisplayNames:   opts.DisplayNames,
			ItemIDs:        opts.ItemIDs,
			Compress:       []string{},
		},
	}
}

// LoadProxyConfig overlays the keys defined in path on DefaultProxyConfig and
// validates the result.
func LoadProxyConfig(path string) (ProxyConfig, error) {
	cfg := DefaultProxyConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ProxyConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ProxyConfig{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("server") {
		cfg.Server = strings.TrimSpace(raw.Server)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
		{"heartbeat_interval", raw.HeartbeatInterval, &cfg.HeartbeatInterval},
		{"config_interval", raw.ConfigInterval, &cfg.ConfigInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return ProxyConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("max_payload_bytes") {
		cfg.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("ok_policy") {
		cfg.OKPolicy = strings.ToLower(strings.TrimSpace(raw.OKPolicy))
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("reconcile", "filter_disabled") {
		cfg.Reconcile.FilterDisabled = raw.Reconcile.FilterDisabled
	}
	if meta.IsDefined("reconcile", "display_names") {
		cfg.Reconcile.DisplayNames = raw.Reconcile.DisplayNames
	}
	if meta.IsDefined("reconcile", "item_ids") {
		cfg.Reconcile.ItemIDs = raw.Reconcile.ItemIDs
	}
	if meta.IsDefined("reconcile", "compress") {
		cfg.Reconcile.Compress = raw.Reconcile.Compress
	}

	if err := ValidateProxyConfig(cfg); err != nil {
		return ProxyConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()

func ValidateProxyConfig(cfg ProxyConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value())
		}
		return err
	}
	if strings.ContainsAny(cfg.Server, " \t") {
		return fmt.Errorf("server must be a host name or address: %q", cfg.Server)
	}
	if cfg.AdminAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.AdminAddr); err != nil {
			return fmt.Errorf("admin_addr invalid: %w", err)
		}
	}
	return nil
}

// Session converts the transport keys into a session config.
func (c ProxyConfig) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = c.ConnectTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	cfg.Limits = frame.Limits{MaxPayloadBytes: c.MaxPayloadBytes}
	return cfg
}

// Policy returns the parsed ok_policy; an unvalidated value falls back to strict.
func (c ProxyConfig) Policy() envelope.OKPolicy {
	policy, err := envelope.ParseOKPolicy(c.OKPolicy)
	if err != nil {
		return envelope.OKStrict
	}
	return policy
}

func (c ProxyConfig) ReconcileOptions() reconcile.Options {
	return reconcile.Options{
		FilterDisabled: c.Reconcile.FilterDisabled,
		DisplayNames:   c.Reconcile.DisplayNames,
		ItemIDs:        c.Reconcile.ItemIDs,
		Compress:       append([]string(nil), c.Reconcile.Compress...),
	}
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
