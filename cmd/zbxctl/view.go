package main

import (
	"github.com/danmuck/zbxctl/internal/proxy"
	"github.com/danmuck/zbxctl/internal/reconcile"
)

type configView struct {
	reconcile.View
	HostItems []reconcile.HostItem `json:"host_items"`
}

func reconcileView(payload map[string]any, p *proxy.Proxy) configView {
	snap := reconcile.Reconcile(payload, p.ReconcileOptions())
	return configView{
		View:      snap.View(),
		HostItems: snap.HostItems(),
	}
}
