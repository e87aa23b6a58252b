package config

import (
	"fmt"
	"os"
	"strconv"
)

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	str("SOURCE_DRIVER", &cfg.Source.Driver)
	str("SQL_CONNECTION_STRING", &cfg.Source.DSN)
	str("SOURCE_TABLE", &cfg.Source.Table)
	str("SOURCE_TIMESTAMP_COLUMN", &cfg.Source.TimestampColumn)

	str("STORAGE_BACKEND", &cfg.Storage.Backend)
	str("STORAGE_BUCKET", &cfg.Storage.Bucket)
	str("STORAGE_REGION", &cfg.Storage.Region)
	str("STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	str("STORAGE_ACCESS_KEY_ID", &cfg.Storage.AccessKeyID)
	str("STORAGE_SECRET_ACCESS_KEY", &cfg.Storage.SecretAccessKey)
	str("STORAGE_SESSION_TOKEN", &cfg.Storage.SessionToken)
	str("STORAGE_LOCAL_DIR", &cfg.Storage.LocalDir)

	str("STAGING_DIR", &cfg.Pipeline.StagingDir)
	str("WATERMARK_LOCATION", &cfg.Pipeline.WatermarkLocation)
	str("ADVANCE_POLICY", &cfg.Pipeline.AdvancePolicy)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_FILE", &cfg.Logging.File)

	str("METRICS_PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL)
	str("METRICS_TEXTFILE", &cfg.Metrics.Textfile)

	if v := os.Getenv("STORAGE_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STORAGE_PATH_STYLE: %w", err)
		}
		cfg.Storage.UsePathStyle = b
	}
	if v := os.Getenv("PUBLISH_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PUBLISH_MAX_ATTEMPTS: %w", err)
		}
		cfg.Publish.MaxAttempts = n
	}
	return nil
}
