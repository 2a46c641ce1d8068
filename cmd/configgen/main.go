package main

import (
	"flag"
	"log"

	"github.com/danmuck/zbxctl/internal/config"
)

const defaultPath = "cmd/zbxproxyd/config.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.LoadProxyConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated proxy config %q at %s (server %s:%d)", cfg.Name, *input, cfg.Server, cfg.Port)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote proxy config template to %s", *output)
}
