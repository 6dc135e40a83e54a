// Package config loads and validates the service configuration.
//
// Config files are JSON or YAML, selected by extension. Environment
// references ($VAR) in DSNs and paths are expanded at load time so
// credentials stay out of checked-in configs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// OutputDir receives artifacts. Defaults to "outputs".
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Format is the default output format for the watch daemon.
	Format string `json:"format" yaml:"format"`

	// MaxInputBytes rejects larger inputs; 0 disables the ceiling.
	MaxInputBytes int64 `json:"max_input_bytes" yaml:"max_input_bytes"`

	// StreamThresholdBytes is the whole-document vs streaming cutover;
	// 0 means the built-in default.
	StreamThresholdBytes int64 `json:"stream_threshold_bytes" yaml:"stream_threshold_bytes"`

	// BatchSize bounds the columnar writer's buffering; 0 means the
	// built-in default.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	JobStore  JobStore  `json:"job_store" yaml:"job_store"`
	Metrics   Metrics   `json:"metrics" yaml:"metrics"`
	Watch     Watch     `json:"watch" yaml:"watch"`
	Retention Retention `json:"retention" yaml:"retention"`
}

type JobStore struct {
	// Kind is one of memory, sqlite, postgres, mssql.
	Kind string `json:"kind" yaml:"kind"`
	DSN  string `json:"dsn" yaml:"dsn"`
}

type Metrics struct {
	// Backend is "datadog" or "none".
	Backend      string   `json:"backend" yaml:"backend"`
	Service      string   `json:"service" yaml:"service"`
	Tags         []string `json:"tags" yaml:"tags"`
	FlushSeconds int      `json:"flush_seconds" yaml:"flush_seconds"`
}

type Watch struct {
	Dir string `json:"dir" yaml:"dir"`
}

type Retention struct {
	// Schedule is a cron spec; empty disables sweeping.
	Schedule string `json:"schedule" yaml:"schedule"`
	MaxAgeH  int    `json:"max_age_hours" yaml:"max_age_hours"`
}

// Load reads, expands and defaults the config at path.
func Load(path string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: decode json: %w", err)
		}
	}

	cfg.expand()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) expand() {
	c.OutputDir = os.ExpandEnv(c.OutputDir)
	c.JobStore.DSN = os.ExpandEnv(c.JobStore.DSN)
	c.Watch.Dir = os.ExpandEnv(c.Watch.Dir)
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "outputs"
	}
	if c.Format == "" {
		c.Format = "xlsx"
	}
	if c.JobStore.Kind == "" {
		c.JobStore.Kind = "memory"
	}
	if c.Metrics.Backend == "" {
		c.Metrics.Backend = "none"
	}
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Validate reports configuration problems. Errors make the config unusable;
// warnings are advisory.
func Validate(c Config) []Issue {
	var issues []Issue

	switch c.Format {
	case "csv", "xlsx", "parquet":
	default:
		issues = append(issues, Issue{SeverityError, "format",
			fmt.Sprintf("unknown format %q (want csv, xlsx or parquet)", c.Format)})
	}

	switch c.JobStore.Kind {
	case "memory":
		if c.JobStore.DSN != "" {
			issues = append(issues, Issue{SeverityWarning, "job_store.dsn",
				"dsn is ignored by the memory store"})
		}
	case "sqlite", "postgres", "mssql":
		if c.JobStore.DSN == "" {
			issues = append(issues, Issue{SeverityError, "job_store.dsn",
				"dsn is required for kind=" + c.JobStore.Kind})
		}
	default:
		issues = append(issues, Issue{SeverityError, "job_store.kind",
			fmt.Sprintf("unknown kind %q", c.JobStore.Kind)})
	}

	switch c.Metrics.Backend {
	case "none", "datadog":
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend",
			fmt.Sprintf("unknown backend %q (want datadog or none)", c.Metrics.Backend)})
	}

	if c.Retention.Schedule != "" && c.Retention.MaxAgeH <= 0 {
		issues = append(issues, Issue{SeverityError, "retention.max_age_hours",
			"must be positive when a retention schedule is set"})
	}
	if c.MaxInputBytes < 0 {
		issues = append(issues, Issue{SeverityError, "max_input_bytes", "must not be negative"})
	}

	return issues
}
