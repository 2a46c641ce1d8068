package main

import (
	"fmt"

	"github.com/danmuck/zbxctl/internal/config"
	"github.com/danmuck/zbxctl/internal/protocol/session"
	"github.com/danmuck/zbxctl/internal/proxy"
	"github.com/danmuck/zbxctl/internal/runtime"
)

type serviceConfig struct {
	Addr    string
	Proxy   *proxy.Proxy
	Runtime runtime.Config
}

func loadServiceConfig(path string) (serviceConfig, error) {
	pc, err := config.LoadProxyConfig(path)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load proxy config: %w", err)
	}
	return buildServiceConfig(pc), nil
}

func buildServiceConfig(pc config.ProxyConfig) serviceConfig {
	sess := pc.Session()
	client := session.NewClient(pc.Server, pc.Port, sess)

	rt := runtime.DefaultConfig()
	rt.HeartbeatInterval = pc.HeartbeatInterval
	rt.ConfigInterval = pc.ConfigInterval
	rt.Backoff = client.Config().Backoff
	rt.AdminAddr = pc.AdminAddr
	rt.AdminToken = pc.AdminToken
	rt.CorsOrigins = pc.CorsOrigins

	return serviceConfig{
		Addr: client.Addr(),
		Proxy: proxy.New(pc.Name, client,
			proxy.WithOKPolicy(pc.Policy()),
			proxy.WithReconcileOptions(pc.ReconcileOptions()),
		),
		Runtime: rt,
	}
}
