// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FS stores objects as files under a root directory.
type FS struct {
	root string
}

// NewFS creates root if needed and returns a backend rooted there.
func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, errors.New("storage: fs root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve fs root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create fs root: %w", err)
	}
	return &FS{root: abs}, nil
}

func (f *FS) Backend() string { return "fs" }

func (f *FS) Locate(key string) string { return key }

// path maps a location to a file path, rejecting anything that would
// escape the root.
func (f *FS) path(location string) (string, error) {
	if location == "" {
		return "", errors.New("storage: empty location")
	}
	p := filepath.Join(f.root, filepath.FromSlash(location))
	if !strings.HasPrefix(p, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: location %q escapes root", location)
	}
	return p, nil
}

func (f *FS) Write(ctx context.Context, key string, payload []byte) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-"+filepath.Base(p)+"-*")
	if err != nil {
		return nil, fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return nil, fmt.Errorf("commit object: %w", err)
	}
	return newObject(key, payload), nil
}

func (f *FS) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.path(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // path is confined to root
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (f *FS) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(location)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Ping checks that the root is still a writable directory.
func (f *FS) Ping(_ context.Context) error {
	info, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("stat fs root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fs root %s is not a directory", f.root)
	}
	probe, err := os.CreateTemp(f.root, ".ping-*")
	if err != nil {
		return fmt.Errorf("fs root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}
