package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hazyhaar/orthoconv/pkg/ortho"
	"gopkg.in/yaml.v3"
)

type config struct {
	Addr          string `yaml:"addr"`
	DataDir       string `yaml:"data_dir"`
	SourcesDB     string `yaml:"sources_db"`
	CheckInterval string `yaml:"check_interval"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	DefaultSource string `yaml:"default_source"`
	DefaultTarget string `yaml:"default_target"`
}

func defaultConfig() config {
	return config{
		Addr:          ":8421",
		DataDir:       "data",
		SourcesDB:     "sources.db",
		CheckInterval: "24h",
		LogLevel:      "info",
		LogFormat:     "text",
		DefaultSource: string(ortho.Cyrillic),
		DefaultTarget: string(ortho.IPA),
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := cfg.checkInterval(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// checkInterval returns the source check period; zero disables the checker.
func (c config) checkInterval() (time.Duration, error) {
	if c.CheckInterval == "" || c.CheckInterval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.CheckInterval)
	if err != nil {
		return 0, fmt.Errorf("config check_interval: %w", err)
	}
	return d, nil
}

// converterDefaults returns the registry-wide default orthographies.
func (c config) converterDefaults() []ortho.Option {
	var opts []ortho.Option
	if c.DefaultSource != "" {
		opts = append(opts, ortho.WithDefaultSource(c.DefaultSource))
	}
	if c.DefaultTarget != "" {
		opts = append(opts, ortho.WithDefaultTarget(c.DefaultTarget))
	}
	return opts
}

// newLogger builds the process logger. Logs always go to w (stderr), never to
// stdout, which the mcp command uses for the protocol.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("config log_level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("config log_format: unknown format %q", format)
	}
}
