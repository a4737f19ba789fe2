// Package config loads .claudeswarm.yaml or .claudeswarm.toml from a
// project root. It supplies only the file layer of the
// flag-then-env-then-file-then-default precedence chain; it reads no
// flags or environment variables itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds every swarm-wide tunable. Zero values mean "use the
// package default": callers apply a field only when it is non-zero.
type Config struct {
	StaleThreshold    time.Duration `yaml:"stale_threshold" toml:"stale_threshold"`
	DeadGrace         time.Duration `yaml:"dead_grace" toml:"dead_grace"`
	LockStaleTimeout  time.Duration `yaml:"lock_stale_timeout" toml:"lock_stale_timeout"`
	RateLimitMessages int           `yaml:"rate_limit_messages" toml:"rate_limit_messages"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" toml:"rate_limit_window"`
	CrossProject      bool          `yaml:"cross_project" toml:"cross_project"`
	TmuxBin           string        `yaml:"tmux_bin" toml:"tmux_bin"`
	AssistantPatterns []string      `yaml:"assistant_patterns" toml:"assistant_patterns"`
}

// yamlDoc mirrors Config but with string durations, since YAML has no
// native duration type.
type yamlDoc struct {
	StaleThreshold    string   `yaml:"stale_threshold"`
	DeadGrace         string   `yaml:"dead_grace"`
	LockStaleTimeout  string   `yaml:"lock_stale_timeout"`
	RateLimitMessages int      `yaml:"rate_limit_messages"`
	RateLimitWindow   string   `yaml:"rate_limit_window"`
	CrossProject      bool     `yaml:"cross_project"`
	TmuxBin           string   `yaml:"tmux_bin"`
	AssistantPatterns []string `yaml:"assistant_patterns"`
}

type tomlDoc = yamlDoc

// Load reads .claudeswarm.yaml or .claudeswarm.toml from root, preferring
// yaml if both exist. A missing file is not an error — Load returns a
// zero Config, and callers fall back to built-in defaults.
func Load(root string) (Config, error) {
	if path := filepath.Join(root, ".claudeswarm.yaml"); fileExists(path) {
		return loadYAML(path)
	}
	if path := filepath.Join(root, ".claudeswarm.yml"); fileExists(path) {
		return loadYAML(path)
	}
	if path := filepath.Join(root, ".claudeswarm.toml"); fileExists(path) {
		return loadTOML(path)
	}
	return Config{}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadYAML(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc yamlDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fromDoc(doc)
}

func loadTOML(path string) (Config, error) {
	var doc tomlDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fromDoc(doc)
}

func fromDoc(doc yamlDoc) (Config, error) {
	c := Config{
		RateLimitMessages: doc.RateLimitMessages,
		CrossProject:      doc.CrossProject,
		TmuxBin:           doc.TmuxBin,
		AssistantPatterns: doc.AssistantPatterns,
	}
	var err error
	if c.StaleThreshold, err = parseDuration(doc.StaleThreshold); err != nil {
		return Config{}, err
	}
	if c.DeadGrace, err = parseDuration(doc.DeadGrace); err != nil {
		return Config{}, err
	}
	if c.LockStaleTimeout, err = parseDuration(doc.LockStaleTimeout); err != nil {
		return Config{}, err
	}
	if c.RateLimitWindow, err = parseDuration(doc.RateLimitWindow); err != nil {
		return Config{}, err
	}
	return c, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	return d, nil
}
