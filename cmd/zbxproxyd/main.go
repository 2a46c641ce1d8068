package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/zbxctl/internal/observability"
	"github.com/danmuck/zbxctl/internal/runtime"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/zbxproxyd/config.toml", "proxy config path")
	flag.Parse()

	observability.InitLogger("zbxproxyd")
	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zbxproxyd: %v\n", err)
		os.Exit(1)
	}
	log.Info().
		Str("path", *configPath).
		Str("proxy", cfg.Proxy.Name()).
		Str("server", cfg.Addr).
		Msg("loaded proxy config")

	svc := runtime.NewService(cfg.Runtime, cfg.Proxy)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "zbxproxyd: %v\n", err)
		os.Exit(1)
	}
}
