// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package main

import (
	"testing"

	"github.com/tomtom215/lifeboat/internal/config"
	"github.com/tomtom215/lifeboat/internal/storage"
)

func TestOpenCatalog(t *testing.T) {
	cat, err := openCatalog(config.CatalogConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory catalog: %v", err)
	}
	if err := cat.Ping(t.Context()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	cat, err = openCatalog(config.CatalogConfig{Driver: "badger", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("badger catalog: %v", err)
	}
	if err := cat.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := openCatalog(config.CatalogConfig{Driver: "sqlite"}); err == nil {
		t.Error("expected an error for an unknown driver")
	}
}

func TestOpenStorage(t *testing.T) {
	store, err := openStorage(config.StorageConfig{Driver: "fs", FSRoot: t.TempDir(), Retries: 1})
	if err != nil {
		t.Fatalf("fs storage: %v", err)
	}
	if _, ok := store.(*storage.Resilient); !ok {
		t.Errorf("storage is %T, want *storage.Resilient", store)
	}
	if store.Backend() != "fs" {
		t.Errorf("backend = %q, want fs", store.Backend())
	}

	if _, err := openStorage(config.StorageConfig{Driver: "tape"}); err == nil {
		t.Error("expected an error for an unknown driver")
	}
}

func TestOpenEncryptor(t *testing.T) {
	enc, err := openEncryptor(config.EncryptionConfig{})
	if err != nil || enc != nil {
		t.Fatalf("empty key: enc=%v err=%v, want nil and nil", enc, err)
	}
	if _, err := openEncryptor(config.EncryptionConfig{Key: "short"}); err == nil {
		t.Error("expected a weak secret to be rejected")
	}
	enc, err = openEncryptor(config.EncryptionConfig{Key: "a sufficiently long secret value", KeyID: "k1"})
	if err != nil || enc == nil {
		t.Fatalf("valid key: enc=%v err=%v", enc, err)
	}
}
