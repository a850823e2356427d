// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateLogging,
		c.validateServer,
		c.validateCatalog,
		c.validateStorage,
		c.validateEncryption,
		c.validateSource,
		c.validateBackup,
		c.validateSchedule,
		c.validateHealth,
		c.validateNotify,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be one of trace, debug, info, warn, error; got %q", envName("logging.level"), c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%s must be json or console; got %q", envName("logging.format"), c.Logging.Format)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535; got %d", envName("server.port"), c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", envName("server.timeout"))
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("%s must not be negative", envName("server.rate_limit_reqs"))
	}
	if c.Server.RateLimitReqs > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("%s must be positive when rate limiting is on", envName("server.rate_limit_window"))
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Driver {
	case "memory":
	case "badger":
		if c.Catalog.Path == "" {
			return fmt.Errorf("%s is required for the badger catalog", envName("catalog.path"))
		}
	default:
		return fmt.Errorf("%s must be memory or badger; got %q", envName("catalog.driver"), c.Catalog.Driver)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "fs":
		if c.Storage.FSRoot == "" {
			return fmt.Errorf("%s is required for fs storage", envName("storage.fs_root"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%s is required for s3 storage", envName("storage.s3.bucket"))
		}
		if c.Storage.S3.Endpoint != "" {
			if err := validateHTTPURL(c.Storage.S3.Endpoint); err != nil {
				return fmt.Errorf("%s is invalid: %w", envName("storage.s3.endpoint"), err)
			}
		}
		if (c.Storage.S3.AccessKey == "") != (c.Storage.S3.SecretKey == "") {
			return fmt.Errorf("%s and %s must be set together", envName("storage.s3.access_key"), envName("storage.s3.secret_key"))
		}
	default:
		return fmt.Errorf("%s must be fs or s3; got %q", envName("storage.driver"), c.Storage.Driver)
	}
	if c.Storage.CallTimeout <= 0 {
		return fmt.Errorf("%s must be positive", envName("storage.call_timeout"))
	}
	if c.Storage.Retries < 0 {
		return fmt.Errorf("%s must not be negative", envName("storage.retries"))
	}
	return nil
}

func (c *Config) validateEncryption() error {
	if c.Backup.Encrypt && c.Encryption.Key == "" {
		return fmt.Errorf("%s is required while %s=true", envName("encryption.key"), envName("backup.encrypt"))
	}
	if c.Encryption.Key != "" && len(c.Encryption.Key) < 16 {
		return fmt.Errorf("%s must be at least 16 characters", envName("encryption.key"))
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.Directory == "" {
		return fmt.Errorf("%s is required", envName("source.directory"))
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.DefaultRetentionDays < 1 {
		return fmt.Errorf("%s must be at least 1; got %d", envName("backup.default_retention_days"), c.Backup.DefaultRetentionDays)
	}
	if c.Retention.MinFullBackups < 0 {
		return fmt.Errorf("%s must not be negative", envName("retention.min_full_backups"))
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.TickInterval < time.Second {
		return fmt.Errorf("%s must be at least 1s; got %s", envName("schedule.tick_interval"), c.Schedule.TickInterval)
	}
	if c.Schedule.DefaultWeekday < 0 || c.Schedule.DefaultWeekday > 6 {
		return fmt.Errorf("%s must be 0 (Sunday) to 6; got %d", envName("schedule.default_weekday"), c.Schedule.DefaultWeekday)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("%s is invalid: %w", envName("schedule.timezone"), err)
	}
	return nil
}

func (c *Config) validateHealth() error {
	if c.Health.Interval <= 0 {
		return fmt.Errorf("%s must be positive", envName("health.interval"))
	}
	if c.Health.Lookback <= 0 {
		return fmt.Errorf("%s must be positive", envName("health.lookback"))
	}
	if c.Health.CapacityBytes < 0 {
		return fmt.Errorf("%s must not be negative", envName("health.capacity_bytes"))
	}
	if f := c.Health.CapacityWarnFraction; f <= 0 || f > 1 {
		return fmt.Errorf("%s must be in (0, 1]; got %v", envName("health.capacity_warn_fraction"), f)
	}
	return nil
}

func (c *Config) validateNotify() error {
	switch c.Notify.Driver {
	case "log", "gochannel":
	case "nats":
		if c.Notify.NATSURL == "" {
			return fmt.Errorf("%s is required for the nats notifier", envName("notify.nats_url"))
		}
	default:
		return fmt.Errorf("%s must be log, gochannel or nats; got %q", envName("notify.driver"), c.Notify.Driver)
	}
	if c.Notify.RatePerMinute < 0 {
		return fmt.Errorf("%s must not be negative", envName("notify.rate_per_minute"))
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the process zone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
