package runtime

import (
	"net/http"
	"time"

	"github.com/danmuck/zbxctl/internal/auth"
	"github.com/danmuck/zbxctl/internal/observability"
	"github.com/danmuck/zbxctl/internal/reconcile"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

func (s *Service) newRouter() *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(s.name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", auth.TokenHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	if s.cfg.AdminToken != "" {
		r.Use(auth.Middleware(auth.StaticToken{Token: s.cfg.AdminToken}, "/health", "/ready", "/metrics"))
	}

	s.registerRoutes(r)
	return r
}

func (s *Service) registerRoutes(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"proxy":   s.name,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		st := s.Status()
		code := http.StatusOK
		if !st.Ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"ready":   st.Ready,
			"uptime":  time.Since(s.appeared).String(),
			"proxy":   s.name,
			"version": version,
		})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/config", s.withSnapshot(func(c *gin.Context, snap reconcile.Snapshot) {
		c.JSON(http.StatusOK, snap.View())
	}))

	r.GET("/config/hosts", s.withSnapshot(func(c *gin.Context, snap reconcile.Snapshot) {
		c.JSON(http.StatusOK, gin.H{"hosts": snap.Hosts.Sorted()})
	}))

	r.GET("/config/items", s.withSnapshot(func(c *gin.Context, snap reconcile.Snapshot) {
		c.JSON(http.StatusOK, gin.H{"items": snap.Items.Sorted()})
	}))

	r.GET("/config/host-items", s.withSnapshot(func(c *gin.Context, snap reconcile.Snapshot) {
		c.JSON(http.StatusOK, gin.H{"host_items": snap.HostItems()})
	}))

	r.GET("/config/item-hosts", s.withSnapshot(func(c *gin.Context, snap reconcile.Snapshot) {
		c.JSON(http.StatusOK, gin.H{"item_hosts": snap.ItemHosts()})
	}))
}

// withSnapshot answers 503 until the first configuration has been loaded.
func (s *Service) withSnapshot(h func(*gin.Context, reconcile.Snapshot)) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := s.Snapshot()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "config not loaded"})
			return
		}
		h(c, snap)
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
