// Package config holds the pipeline settings. Values come from an optional
// TOML or YAML file and are then overridden by environment variables (which
// main populates from .env).
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Watermark advance policies.
const (
	AdvanceMaxRow   = "max_row"
	AdvanceRunStart = "run_start"
)

// Storage backends.
const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Config holds all configuration for one pipeline.
type Config struct {
	Source   SourceConfig   `toml:"source" yaml:"source"`
	Storage  StorageConfig  `toml:"storage" yaml:"storage"`
	Pipeline PipelineConfig `toml:"pipeline" yaml:"pipeline"`
	Publish  PublishConfig  `toml:"publish" yaml:"publish"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
}

type SourceConfig struct {
	Driver          string `toml:"driver" yaml:"driver"` // sqlserver, postgres, mysql, sqlite
	DSN             string `toml:"dsn" yaml:"dsn"`
	Table           string `toml:"table" yaml:"table"`
	IDColumn        string `toml:"id_column" yaml:"id_column"`
	AmountColumn    string `toml:"amount_column" yaml:"amount_column"`
	TimestampColumn string `toml:"timestamp_column" yaml:"timestamp_column"`
}

// StorageConfig describes the destination bucket. Credentials are handed to
// the S3 client directly; when both keys are empty the SDK default chain is
// used.
type StorageConfig struct {
	Backend         string `toml:"backend" yaml:"backend"`
	Bucket          string `toml:"bucket" yaml:"bucket"`
	Region          string `toml:"region" yaml:"region"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint"`
	UsePathStyle    bool   `toml:"use_path_style" yaml:"use_path_style"`
	AccessKeyID     string `toml:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `toml:"session_token" yaml:"session_token"`
	LocalDir        string `toml:"local_dir" yaml:"local_dir"`
}

type PipelineConfig struct {
	StagingDir        string `toml:"staging_dir" yaml:"staging_dir"`
	WatermarkLocation string `toml:"watermark_location" yaml:"watermark_location"` // file path or mongodb:// URI
	PartitionPrefix   string `toml:"partition_prefix" yaml:"partition_prefix"`
	ArtifactPrefix    string `toml:"artifact_prefix" yaml:"artifact_prefix"`
	AdvancePolicy     string `toml:"advance_policy" yaml:"advance_policy"`
}

type PublishConfig struct {
	MaxAttempts      int  `toml:"max_attempts" yaml:"max_attempts"`
	InitialBackoffMS int  `toml:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMS     int  `toml:"max_backoff_ms" yaml:"max_backoff_ms"`
	Verify           bool `toml:"verify" yaml:"verify"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	File   string `toml:"file" yaml:"file"`
}

type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url" yaml:"pushgateway_url"`
	Textfile       string `toml:"textfile" yaml:"textfile"`
}

// Default returns the settings for the single orders table.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Driver:          "postgres",
			Table:           "orders",
			IDColumn:        "id",
			AmountColumn:    "amount",
			TimestampColumn: "created_at",
		},
		Storage: StorageConfig{
			Backend: BackendS3,
			Region:  "us-east-1",
		},
		Pipeline: PipelineConfig{
			StagingDir:        "staging",
			WatermarkLocation: "pipeline_state.json",
			PartitionPrefix:   "raw_orders",
			ArtifactPrefix:    "orders",
			AdvancePolicy:     AdvanceMaxRow,
		},
		Publish: PublishConfig{
			MaxAttempts:      4,
			InitialBackoffMS: 200,
			MaxBackoffMS:     5000,
			Verify:           true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the fields every run needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Driver {
	case "sqlserver", "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported source driver %q", c.Source.Driver))
	}
	if c.Source.DSN == "" {
		errs = append(errs, errors.New("SQL_CONNECTION_STRING environment variable not set"))
	}
	for _, ident := range []string{c.Source.Table, c.Source.IDColumn, c.Source.AmountColumn, c.Source.TimestampColumn} {
		if !identRe.MatchString(ident) {
			errs = append(errs, fmt.Errorf("invalid SQL identifier %q", ident))
		}
	}

	switch c.Storage.Backend {
	case BackendS3:
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET environment variable not set"))
		}
		if (c.Storage.AccessKeyID == "") != (c.Storage.SecretAccessKey == "") {
			errs = append(errs, errors.New("storage access key id and secret must be set together"))
		}
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_DIR environment variable not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage backend %q", c.Storage.Backend))
	}

	if c.Pipeline.StagingDir == "" {
		errs = append(errs, errors.New("staging directory is required"))
	}
	if c.Pipeline.WatermarkLocation == "" {
		errs = append(errs, errors.New("watermark location is required"))
	}
	if strings.Trim(c.Pipeline.PartitionPrefix, "/") == "" {
		errs = append(errs, errors.New("partition prefix is required"))
	}
	if c.Pipeline.ArtifactPrefix == "" || strings.ContainsAny(c.Pipeline.ArtifactPrefix, `/\`) {
		errs = append(errs, fmt.Errorf("invalid artifact prefix %q", c.Pipeline.ArtifactPrefix))
	}
	if c.Pipeline.AdvancePolicy != AdvanceMaxRow && c.Pipeline.AdvancePolicy != AdvanceRunStart {
		errs = append(errs, fmt.Errorf("unknown advance policy %q", c.Pipeline.AdvancePolicy))
	}

	if c.Publish.MaxAttempts < 2 {
		errs = append(errs, fmt.Errorf("publish max attempts must be at least 2, got %d", c.Publish.MaxAttempts))
	}
	if c.Publish.InitialBackoffMS <= 0 || c.Publish.MaxBackoffMS < c.Publish.InitialBackoffMS {
		errs = append(errs, fmt.Errorf("invalid publish backoff %dms..%dms", c.Publish.InitialBackoffMS, c.Publish.MaxBackoffMS))
	}

	return errors.Join(errs...)
}
