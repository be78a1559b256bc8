package app

import (
	"os"
	"strconv"

	"github.com/sqanar/urlguard/internal/analyzer"
	"github.com/sqanar/urlguard/internal/classifier"
	"github.com/sqanar/urlguard/internal/collect"
	"github.com/sqanar/urlguard/internal/explain"
	"github.com/sqanar/urlguard/internal/server"
	"github.com/sqanar/urlguard/internal/webclient"
)

// Config aggregates the per-component configuration for one process.
type Config struct {
	ServerCfg server.Config

	// StoragePath is the SQLite verdict-cache location. Empty selects an
	// in-memory cache that lives for the process only.
	StoragePath string

	// ThresholdsPath optionally overrides the embedded tuned-threshold
	// table.
	ThresholdsPath string

	// TopK is the number of justifications kept per verdict.
	TopK int

	CollectCfg    collect.Config
	ClassifierCfg classifier.Config
	WebClientCfg  webclient.Config
	AnalyzerCfg   analyzer.Config
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerCfg:     server.DefaultConfig(),
		StoragePath:   "urlguard.db",
		TopK:          explain.DefaultTopK,
		CollectCfg:    collect.DefaultConfig(),
		ClassifierCfg: classifier.DefaultConfig(),
		WebClientCfg:  webclient.DefaultConfig(),
		AnalyzerCfg:   analyzer.DefaultConfig(),
	}
}

// ApplyEnv overlays URLGUARD_* environment variables onto the config.
// Unset variables leave the current value alone.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("URLGUARD_LISTEN_ADDR"); v != "" {
		c.ServerCfg.ListenAddr = v
	}
	if v := os.Getenv("URLGUARD_DB_PATH"); v != "" {
		c.StoragePath = v
	}
	if v := os.Getenv("URLGUARD_THRESHOLDS_PATH"); v != "" {
		c.ThresholdsPath = v
	}
	if v := os.Getenv("URLGUARD_CLASSIFIER_URL"); v != "" {
		c.ClassifierCfg.Endpoint = v
	}
	if v, ok := envBool("URLGUARD_DISABLE_CRAWL"); ok {
		c.CollectCfg.CrawlEnabled = !v
	}
	if v, ok := envBool("URLGUARD_KEEP_RAW_FEATURES"); ok {
		c.AnalyzerCfg.KeepRawFeatures = v
	}
	if v := os.Getenv("URLGUARD_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.TopK = k
		}
	}
}

func envBool(name string) (value, ok bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
