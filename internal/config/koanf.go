// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched when
// LIFEBOAT_CONFIG is unset. The first existing file wins.
var DefaultConfigPaths = []string{
	"lifeboat.yaml",
	"lifeboat.yml",
	"/etc/lifeboat/lifeboat.yaml",
	"/etc/lifeboat/lifeboat.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "LIFEBOAT_CONFIG"

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8650,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{},
		},
		Catalog: CatalogConfig{
			Driver:     "badger",
			Path:       "/var/lib/lifeboat/catalog",
			SyncWrites: true,
		},
		Storage: StorageConfig{
			Driver:           "fs",
			FSRoot:           "/var/lib/lifeboat/objects",
			S3:               S3Config{Region: "us-east-1"},
			CallTimeout:      2 * time.Minute,
			Retries:          3,
			BreakerFailures:  5,
			BreakerOpenAfter: 30 * time.Second,
		},
		Encryption: EncryptionConfig{
			KeyID: "default",
		},
		Source: SourceConfig{
			SchemaVersion: "1",
		},
		Backup: BackupConfig{
			DefaultRetentionDays: 30,
			Encrypt:              true,
			Creator:              "lifeboat",
		},
		Retention: RetentionConfig{
			MinFullBackups: 1,
		},
		Schedule: ScheduleConfig{
			TickInterval:   time.Minute,
			DefaultWeekday: 0,
			Timezone:       "Local",
			MaxConcurrent:  4,
		},
		Health: HealthConfig{
			Interval:             5 * time.Minute,
			Lookback:             24 * time.Hour,
			CapacityWarnFraction: 0.8,
		},
		Drill: DrillConfig{
			StepTimeout: 5 * time.Minute,
		},
		Notify: NotifyConfig{
			Driver:        "log",
			NATSURL:       "nats://127.0.0.1:4222",
			Topic:         "lifeboat.alerts",
			RatePerMinute: 30,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the config file to load, or "" when none exists.
// An explicit LIFEBOAT_CONFIG that does not exist is an error.
func findConfigFile() (string, error) {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s=%s: %w", ConfigPathEnvVar, envPath, err)
		}
		return envPath, nil
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config paths.
var envMappings = map[string]string{
	"lifeboat_log_level":  "logging.level",
	"lifeboat_log_format": "logging.format",
	"lifeboat_log_caller": "logging.caller",

	"lifeboat_http_host":         "server.host",
	"lifeboat_http_port":         "server.port",
	"lifeboat_http_timeout":      "server.timeout",
	"lifeboat_rate_limit_reqs":   "server.rate_limit_reqs",
	"lifeboat_rate_limit_window": "server.rate_limit_window",
	"lifeboat_cors_origins":      "server.cors_origins",

	"lifeboat_catalog_driver":      "catalog.driver",
	"lifeboat_catalog_path":        "catalog.path",
	"lifeboat_catalog_sync_writes": "catalog.sync_writes",

	"lifeboat_storage_driver":               "storage.driver",
	"lifeboat_storage_fs_root":              "storage.fs_root",
	"lifeboat_storage_call_timeout":         "storage.call_timeout",
	"lifeboat_storage_retries":              "storage.retries",
	"lifeboat_storage_breaker_failures":     "storage.breaker_failures",
	"lifeboat_storage_breaker_open_timeout": "storage.breaker_open_timeout",
	"lifeboat_s3_endpoint":                  "storage.s3.endpoint",
	"lifeboat_s3_region":                    "storage.s3.region",
	"lifeboat_s3_bucket":                    "storage.s3.bucket",
	"lifeboat_s3_prefix":                    "storage.s3.prefix",
	"lifeboat_s3_access_key":                "storage.s3.access_key",
	"lifeboat_s3_secret_key":                "storage.s3.secret_key",

	"lifeboat_encryption_key":    "encryption.key",
	"lifeboat_encryption_key_id": "encryption.key_id",

	"lifeboat_source_dir":            "source.directory",
	"lifeboat_source_schema_version": "source.schema_version",
	"lifeboat_restore_target":        "restore.default_target",

	"lifeboat_backup_retention_days": "backup.default_retention_days",
	"lifeboat_backup_encrypt":        "backup.encrypt",
	"lifeboat_backup_creator":        "backup.creator",
	"lifeboat_min_full_backups":      "retention.min_full_backups",

	"lifeboat_schedule_tick":           "schedule.tick_interval",
	"lifeboat_schedule_weekday":        "schedule.default_weekday",
	"lifeboat_schedule_timezone":       "schedule.timezone",
	"lifeboat_schedule_max_concurrent": "schedule.max_concurrent",

	"lifeboat_health_interval":        "health.interval",
	"lifeboat_health_lookback":        "health.lookback",
	"lifeboat_capacity_bytes":         "health.capacity_bytes",
	"lifeboat_capacity_warn_fraction": "health.capacity_warn_fraction",

	"lifeboat_drill_step_timeout": "drill.step_timeout",
	"lifeboat_script_dir":         "drill.script_dir",

	"lifeboat_notify_driver": "notify.driver",
	"lifeboat_nats_url":      "notify.nats_url",
	"lifeboat_notify_topic":  "notify.topic",
	"lifeboat_notify_rate":   "notify.rate_per_minute",
}

// envTransformFunc maps an environment variable to its config path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// envName is the reverse of envMappings, for error messages.
func envName(path string) string {
	for k, v := range envMappings {
		if v == path {
			return strings.ToUpper(k)
		}
	}
	return path
}
