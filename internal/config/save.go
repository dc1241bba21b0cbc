package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if cfg.Scrape.IntervalHours < 1 {
		errs = append(errs, "scrape.interval_hours must be >= 1")
	}
	if cfg.Scrape.AdapterTimeoutSeconds < 0 {
		errs = append(errs, "scrape.adapter_timeout_seconds must be >= 0")
	}
	if cfg.Limits.RequestsPerSecond <= 0 {
		errs = append(errs, "limits.requests_per_second must be > 0")
	}
	if cfg.Limits.Burst < 1 {
		errs = append(errs, "limits.burst must be >= 1")
	}

	if cfg.Sources.JobAlerts.Enabled {
		ja := cfg.Sources.JobAlerts
		if strings.TrimSpace(ja.IMAPHost) == "" {
			errs = append(errs, "sources.jobalerts.imap_host is required when jobalerts is enabled")
		}
		if ja.IMAPPort == 0 {
			errs = append(errs, "sources.jobalerts.imap_port is required when jobalerts is enabled")
		}
		if strings.TrimSpace(ja.Username) == "" {
			errs = append(errs, "sources.jobalerts.username is required when jobalerts is enabled")
		}
		if strings.TrimSpace(ja.Mailbox) == "" {
			errs = append(errs, "sources.jobalerts.mailbox is required when jobalerts is enabled")
		}
	}
	for _, site := range []struct {
		name string
		src  SiteSource
	}{
		{"practicaspe", cfg.Sources.PracticasPe},
		{"computrabajo", cfg.Sources.CompuTrabajo},
	} {
		if site.src.Enabled && site.src.MaxPages < 1 {
			errs = append(errs, fmt.Sprintf("sources.%s.max_pages must be >= 1 when enabled", site.name))
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
