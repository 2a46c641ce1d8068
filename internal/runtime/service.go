package runtime

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/zbxctl/internal/protocol/session"
	"github.com/danmuck/zbxctl/internal/proxy"
	"github.com/danmuck/zbxctl/internal/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidHeartbeatInterval = errors.New("runtime: invalid heartbeat interval")
	ErrInvalidConfigInterval    = errors.New("runtime: invalid config interval")
	ErrNilProxy                 = errors.New("runtime: proxy is required")
)

// Config configures the service loops and the admin server.
type Config struct {
	HeartbeatInterval time.Duration
	ConfigInterval    time.Duration
	// RefreshAttempts bounds the tries per config refresh; 0 means one try.
	RefreshAttempts   int
	Backoff           session.BackoffConfig
	AdminAddr         string
	// AdminToken, when set, is required on every admin route except probes and metrics.
	AdminToken        string
	CorsOrigins       []string
	ShutdownTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 60 * time.Second,
		ConfigInterval:    300 * time.Second,
		RefreshAttempts:   3,
		Backoff:           session.DefaultConfig().Backoff,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Status is the service state reported by the admin server.
type Status struct {
	Proxy         string    `json:"proxy"`
	Ready         bool      `json:"ready"`
	Heartbeats    uint64    `json:"heartbeats"`
	HeartbeatOK   bool      `json:"heartbeat_ok"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Refreshes     uint64    `json:"refreshes"`
	LastRefresh   time.Time `json:"last_refresh"`
	Hosts         int       `json:"hosts"`
	Items         int       `json:"items"`
}

// Service owns one proxy and the latest configuration snapshot it fetched.
type Service struct {
	cfg      Config
	proxy    *proxy.Proxy
	name     string
	appeared time.Time
	router   *gin.Engine
	rng      *rand.Rand

	mu            sync.RWMutex
	snap          reconcile.Snapshot
	loaded        bool
	heartbeats    uint64
	heartbeatOK   bool
	lastHeartbeat time.Time
	refreshes     uint64
	lastRefresh   time.Time
}

func NewService(cfg Config, p *proxy.Proxy) *Service {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	s := &Service{
		cfg:      cfg,
		proxy:    p,
		appeared: time.Now(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if p != nil {
		s.name = p.Name()
	}
	s.router = s.newRouter()
	return s
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve runs the heartbeat and refresh loops, and the admin server when an address is
// configured, until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	if s.proxy == nil {
		return ErrNilProxy
	}
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	if s.cfg.ConfigInterval <= 0 {
		return ErrInvalidConfigInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adminErr := make(chan error, 1)
	adminRunning := false
	if addr := strings.TrimSpace(s.cfg.AdminAddr); addr != "" {
		adminRunning = true
		go func() {
			adminErr <- s.serveAdmin(ctx, addr)
		}()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.heartbeatLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.refreshLoop(ctx)
	}()

	log.Info().
		Str("component", "runtime").
		Str("proxy", s.name).
		Dur("heartbeat_interval", s.cfg.HeartbeatInterval).
		Dur("config_interval", s.cfg.ConfigInterval).
		Str("admin_addr", s.cfg.AdminAddr).
		Msg("proxy service started")

	var err error
	select {
	case <-ctx.Done():
	case err = <-adminErr:
		adminRunning = false
		cancel()
	}
	wg.Wait()
	if adminRunning {
		err = <-adminErr
	}
	log.Info().Str("component", "runtime").Msg("proxy service shutdown")
	return err
}

func (s *Service) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		s.Heartbeat(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ConfigInterval)
	defer ticker.Stop()
	for {
		s.RefreshWithRetry(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Heartbeat sends one heartbeat and records the result.
func (s *Service) Heartbeat(ctx context.Context) bool {
	ok := s.proxy.Heartbeat(ctx)
	s.mu.Lock()
	s.heartbeats++
	s.heartbeatOK = ok
	s.lastHeartbeat = time.Now()
	s.mu.Unlock()
	if !ok && ctx.Err() == nil {
		log.Warn().Str("component", "runtime").Str("proxy", s.name).Msg("heartbeat not acknowledged")
	}
	return ok
}

// Refresh fetches and stores one configuration snapshot. A failed fetch keeps the
// previous snapshot.
func (s *Service) Refresh(ctx context.Context) bool {
	snap, ok := s.proxy.GetProxyConfig(ctx)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.snap = snap
	s.loaded = true
	s.refreshes++
	s.lastRefresh = time.Now()
	s.mu.Unlock()
	log.Info().
		Str("component", "runtime").
		Str("proxy", s.name).
		Int("hosts", snap.Hosts.Len()).
		Int("items", snap.Items.Len()).
		Msg("config refreshed")
	return true
}

// RefreshWithRetry calls Refresh up to RefreshAttempts times with backoff in between.
func (s *Service) RefreshWithRetry(ctx context.Context) bool {
	attempts := max(s.cfg.RefreshAttempts, 1)
	for attempt := 1; ; attempt++ {
		if s.Refresh(ctx) {
			return true
		}
		if attempt >= attempts || ctx.Err() != nil {
			break
		}
		log.Warn().
			Str("component", "runtime").
			Str("proxy", s.name).
			Int("attempt", attempt).
			Msg("config refresh failed, retrying")
		if err := session.SleepBackoff(ctx, s.cfg.Backoff, attempt, s.rng); err != nil {
			return false
		}
	}
	if ctx.Err() == nil {
		log.Warn().Str("component", "runtime").Str("proxy", s.name).Msg("config refresh gave up")
	}
	return false
}

// Snapshot returns the latest configuration and whether one was ever loaded.
func (s *Service) Snapshot() (reconcile.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.loaded
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Proxy:         s.name,
		Ready:         s.loaded,
		Heartbeats:    s.heartbeats,
		HeartbeatOK:   s.heartbeatOK,
		LastHeartbeat: s.lastHeartbeat,
		Refreshes:     s.refreshes,
		LastRefresh:   s.lastRefresh,
		Hosts:         s.snap.Hosts.Len(),
		Items:         s.snap.Items.Len(),
	}
}

// Handler returns the admin router.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("component", "admin").Str("addr", addr).Msg("admin server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
