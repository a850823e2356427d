// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Server     ServerConfig     `koanf:"server"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Storage    StorageConfig    `koanf:"storage"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Source     SourceConfig     `koanf:"source"`
	Restore    RestoreConfig    `koanf:"restore"`
	Backup     BackupConfig     `koanf:"backup"`
	Retention  RetentionConfig  `koanf:"retention"`
	Schedule   ScheduleConfig   `koanf:"schedule"`
	Health     HealthConfig     `koanf:"health"`
	Drill      DrillConfig      `koanf:"drill"`
	Notify     NotifyConfig     `koanf:"notify"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs per RateLimitWindow per client IP. Zero disables.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// CatalogConfig selects the record store.
type CatalogConfig struct {
	// Driver is memory or badger.
	Driver     string `koanf:"driver"`
	Path       string `koanf:"path"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// StorageConfig selects the payload backend and its resilience policy.
type StorageConfig struct {
	// Driver is fs or s3.
	Driver string   `koanf:"driver"`
	FSRoot string   `koanf:"fs_root"`
	S3     S3Config `koanf:"s3"`

	CallTimeout      time.Duration `koanf:"call_timeout"`
	Retries          int           `koanf:"retries"`
	BreakerFailures  uint32        `koanf:"breaker_failures"`
	BreakerOpenAfter time.Duration `koanf:"breaker_open_timeout"`
}

// S3Config addresses an S3 compatible bucket.
type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

// EncryptionConfig holds the backup encryption secret.
type EncryptionConfig struct {
	// Key is the secret the per-envelope keys are derived from. Empty
	// disables encryption.
	Key   string `koanf:"key"`
	KeyID string `koanf:"key_id"`
}

// SourceConfig locates the protected data.
type SourceConfig struct {
	Directory     string `koanf:"directory"`
	SchemaVersion string `koanf:"schema_version"`
}

type RestoreConfig struct {
	// DefaultTarget is where restores land when a request names no target.
	DefaultTarget string `koanf:"default_target"`
}

type BackupConfig struct {
	DefaultRetentionDays int    `koanf:"default_retention_days"`
	Encrypt              bool   `koanf:"encrypt"`
	Creator              string `koanf:"creator"`
}

type RetentionConfig struct {
	// MinFullBackups newest completed full backups survive expiry.
	MinFullBackups int `koanf:"min_full_backups"`
}

type ScheduleConfig struct {
	TickInterval time.Duration `koanf:"tick_interval"`

	// DefaultWeekday for weekly schedules, 0 (Sunday) to 6.
	DefaultWeekday int    `koanf:"default_weekday"`
	Timezone       string `koanf:"timezone"`
	MaxConcurrent  int    `koanf:"max_concurrent"`
}

type HealthConfig struct {
	Interval             time.Duration `koanf:"interval"`
	Lookback             time.Duration `koanf:"lookback"`
	CapacityBytes        int64         `koanf:"capacity_bytes"`
	CapacityWarnFraction float64       `koanf:"capacity_warn_fraction"`
}

type DrillConfig struct {
	StepTimeout time.Duration `koanf:"step_timeout"`
	ScriptDir   string        `koanf:"script_dir"`
}

// NotifyConfig selects where alerts go.
type NotifyConfig struct {
	// Driver is log, gochannel or nats.
	Driver        string `koanf:"driver"`
	NATSURL       string `koanf:"nats_url"`
	Topic         string `koanf:"topic"`
	RatePerMinute int    `koanf:"rate_per_minute"`
}

// Addr is the listen address of the HTTP API.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
