package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders DefaultProxyConfig as a TOML file.
func Template() (string, error) {
	b, err := toml.Marshal(toFile(DefaultProxyConfig()))
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return string(b), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

func toFile(c ProxyConfig) fileConfig {
	return fileConfig{
		Name:              c.Name,
		Server:            c.Server,
		Port:              c.Port,
		ConnectTimeout:    c.ConnectTimeout.String(),
		ReadTimeout:       c.ReadTimeout.String(),
		WriteTimeout:      c.WriteTimeout.String(),
		MaxPayloadBytes:   c.MaxPayloadBytes,
		OKPolicy:          c.OKPolicy,
		HeartbeatInterval: c.HeartbeatInterval.String(),
		ConfigInterval:    c.ConfigInterval.String(),
		AdminAddr:         c.AdminAddr,
		AdminToken:        c.AdminToken,
		CorsOrigins:       c.CorsOrigins,
		Reconcile: fileReconcile{
			FilterDisabled: c.Reconcile.FilterDisabled,
			DisplayNames:   c.Reconcile.DisplayNames,
			ItemIDs:        c.Reconcile.ItemIDs,
			Compress:       c.Reconcile.Compress,
		},
	}
}
