package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Filters struct {
	RemoteOK       bool     `yaml:"remote_ok"`
	Keywords       []string `yaml:"keywords"`
	LocationsAllow []string `yaml:"locations_allow"`
	LocationsBlock []string `yaml:"locations_block"`
}

type SiteSource struct {
	Enabled  bool     `yaml:"enabled"`
	URLs     []string `yaml:"urls"`
	MaxPages int      `yaml:"max_pages"`
}

type JobAlertsSource struct {
	Enabled          bool     `yaml:"enabled"`
	IMAPHost         string   `yaml:"imap_host"`
	IMAPPort         int      `yaml:"imap_port"`
	Username         string   `yaml:"username"`
	Mailbox          string   `yaml:"mailbox"`
	SearchSubjectAny []string `yaml:"search_subject_any"`
}

type ManualSource struct {
	Enabled bool   `yaml:"enabled"`
	DropDir string `yaml:"drop_dir"` // defaults to <data_dir>/manual
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Scrape struct {
		IntervalHours         int  `yaml:"interval_hours"`
		AdapterTimeoutSeconds int  `yaml:"adapter_timeout_seconds"`
		Concurrency           int  `yaml:"concurrency"`
		RunOnStart            bool `yaml:"run_on_start"`
	} `yaml:"scrape"`

	Limits struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"limits"`

	Filters Filters `yaml:"filters"`

	Sources struct {
		PracticasPe  SiteSource      `yaml:"practicaspe"`
		CompuTrabajo SiteSource      `yaml:"computrabajo"`
		JobAlerts    JobAlertsSource `yaml:"jobalerts"`
		Manual       ManualSource    `yaml:"manual"`
	} `yaml:"sources"`
}

// Default returns the configuration written to a fresh data dir.
func Default() Config {
	var cfg Config
	cfg.App.Port = 8790
	cfg.Scrape.IntervalHours = 24
	cfg.Scrape.AdapterTimeoutSeconds = 300
	cfg.Scrape.Concurrency = 1
	cfg.Scrape.RunOnStart = true
	cfg.Limits.RequestsPerSecond = 1.0
	cfg.Limits.Burst = 2
	cfg.Filters.RemoteOK = true
	cfg.Sources.PracticasPe = SiteSource{Enabled: true, MaxPages: 5}
	cfg.Sources.CompuTrabajo = SiteSource{Enabled: true, MaxPages: 5}
	cfg.Sources.JobAlerts.IMAPPort = 993
	cfg.Sources.JobAlerts.Mailbox = "INBOX"
	cfg.Sources.Manual.Enabled = true
	return cfg
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
