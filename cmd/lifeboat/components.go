// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package main

import (
	"fmt"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/config"
	"github.com/tomtom215/lifeboat/internal/crypto"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/script"
	"github.com/tomtom215/lifeboat/internal/storage"
)

// openCatalog opens the configured metadata store.
func openCatalog(cfg config.CatalogConfig) (catalog.Catalog, error) {
	switch cfg.Driver {
	case "memory":
		logging.Warn().Msg("Using in-memory catalog; backup records are lost on restart")
		return catalog.NewMemory(), nil
	case "badger", "":
		cat, err := catalog.OpenBadger(catalog.BadgerOptions{
			Path:       cfg.Path,
			SyncWrites: cfg.SyncWrites,
		})
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.Path).Msg("BadgerDB catalog opened")
		return cat, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

// openStorage opens the payload backend and wraps it with retries and a
// circuit breaker.
func openStorage(cfg config.StorageConfig) (storage.Storage, error) {
	var (
		inner storage.Storage
		err   error
	)
	switch cfg.Driver {
	case "fs", "":
		inner, err = storage.NewFS(cfg.FSRoot)
	case "s3":
		inner, err = storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	rc := storage.DefaultResilientConfig()
	if cfg.CallTimeout > 0 {
		rc.CallTimeout = cfg.CallTimeout
	}
	if cfg.Retries >= 0 {
		rc.MaxRetries = cfg.Retries
	}
	if cfg.BreakerFailures > 0 {
		rc.FailureThreshold = cfg.BreakerFailures
	}
	if cfg.BreakerOpenAfter > 0 {
		rc.OpenTimeout = cfg.BreakerOpenAfter
	}
	logging.Info().
		Str("backend", inner.Backend()).
		Int("retries", rc.MaxRetries).
		Uint32("breaker_failures", rc.FailureThreshold).
		Msg("Backup storage opened")
	return storage.NewResilient(inner, rc), nil
}

// openEncryptor returns nil when no key is configured.
func openEncryptor(cfg config.EncryptionConfig) (crypto.Encryptor, error) {
	if cfg.Key == "" {
		return nil, nil
	}
	enc, err := crypto.NewAESGCM(cfg.Key, cfg.KeyID)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func openScripts(cfg config.DrillConfig) (script.Runner, error) {
	if cfg.ScriptDir == "" {
		logging.Info().Msg("No drill script directory configured; only builtin actions can run")
	}
	return script.NewExec(cfg.ScriptDir)
}
