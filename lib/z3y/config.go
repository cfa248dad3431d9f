package z3y

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is host process configuration for a Manager — where to scan for
// libraries, and how the introspection HTTP API (if enabled) should
// listen. It has no bearing on registry contents; the registry only ever
// holds what a Loader call actually registered (spec's Non-goal "no
// persistence" — this config is process bootstrap, not registry state).
type Config struct {
	PluginDirs      []string
	ScanRecursively bool
	WorkerPoll      time.Duration
	HTTPAddr        string
	HTTPEnabled     bool
}

// DefaultConfig returns the configuration a bare `z3yhost` invocation uses
// with no config file present.
func DefaultConfig() Config {
	return Config{
		PluginDirs:      []string{"./plugins"},
		ScanRecursively: false,
		WorkerPoll:      workerPollInterval,
		HTTPAddr:        "127.0.0.1:8791",
		HTTPEnabled:     false,
	}
}

type fileConfig struct {
	PluginDirs      []string `toml:"plugin_dirs"`
	ScanRecursively bool     `toml:"scan_recursively"`
	WorkerPollMS    int64    `toml:"worker_poll_ms"`
	HTTPAddr        string   `toml:"http_addr"`
	HTTPEnabled     bool     `toml:"http_enabled"`
}

// LoadConfig reads a TOML file at path, overlaying only the keys it
// defines onto DefaultConfig — an absent key never overwrites a default
// with a TOML zero value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("z3y: load config: %w", err)
	}

	if meta.IsDefined("plugin_dirs") {
		cfg.PluginDirs = normalizeDirs(raw.PluginDirs)
	}
	if meta.IsDefined("scan_recursively") {
		cfg.ScanRecursively = raw.ScanRecursively
	}
	if meta.IsDefined("worker_poll_ms") {
		cfg.WorkerPoll = time.Duration(raw.WorkerPollMS) * time.Millisecond
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("http_enabled") {
		cfg.HTTPEnabled = raw.HTTPEnabled
	}

	return cfg, nil
}

func normalizeDirs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.TrimSpace(d)
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
