package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.App.Port = 0 }},
		{"port too big", func(c *Config) { c.App.Port = 70000 }},
		{"zero interval", func(c *Config) { c.Scrape.IntervalHours = 0 }},
		{"negative timeout", func(c *Config) { c.Scrape.AdapterTimeoutSeconds = -1 }},
		{"zero rps", func(c *Config) { c.Limits.RequestsPerSecond = 0 }},
		{"zero burst", func(c *Config) { c.Limits.Burst = 0 }},
		{"jobalerts enabled without host", func(c *Config) {
			c.Sources.JobAlerts.Enabled = true
			c.Sources.JobAlerts.Username = "user@example.com"
		}},
		{"site enabled without pages", func(c *Config) { c.Sources.PracticasPe.MaxPages = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("Validate accepted invalid config")
			}
		})
	}
}

func TestSaveAtomicAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	cfg := Default()
	cfg.App.Port = 9123
	cfg.Filters.Keywords = []string{"backend", "golang"}
	cfg.Sources.CompuTrabajo.URLs = []string{"https://pe.computrabajo.com/trabajo-de-sistemas"}

	if err := SaveAtomic(path, cfg); err != nil {
		t.Fatalf("SaveAtomic returned error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.App.Port != 9123 {
		t.Errorf("port = %d, want 9123", got.App.Port)
	}
	if len(got.Filters.Keywords) != 2 || got.Filters.Keywords[0] != "backend" {
		t.Errorf("keywords = %v", got.Filters.Keywords)
	}
	if len(got.Sources.CompuTrabajo.URLs) != 1 {
		t.Errorf("computrabajo urls = %v", got.Sources.CompuTrabajo.URLs)
	}
}

func TestSaveAtomic_RejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.App.Port = -1
	if err := SaveAtomic(filepath.Join(t.TempDir(), "config.yml"), cfg); err == nil {
		t.Error("SaveAtomic accepted invalid config")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	if err != nil {
		t.Fatalf("EnsureUserConfig returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Second call must return the same file without rewriting it.
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	again, err := EnsureUserConfig(dir)
	if err != nil {
		t.Fatalf("second EnsureUserConfig returned error: %v", err)
	}
	if again != path {
		t.Errorf("path changed between calls: %s vs %s", path, again)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("existing config was rewritten")
	}
}
