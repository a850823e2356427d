// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/lifeboat/internal/logging"
)

// Directory protects a directory tree and restores into directories.
type Directory struct {
	root    string
	version string
	restore string
	now     func() time.Time
}

var (
	_ DataSource    = (*Directory)(nil)
	_ RestoreTarget = (*Directory)(nil)
)

// NewDirectory protects root. version is recorded on every backup.
// restoreDir is the default restore location.
func NewDirectory(root, version, restoreDir string) (*Directory, error) {
	if root == "" {
		return nil, errors.New("source: directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source directory: %w", err)
	}
	return &Directory{root: abs, version: version, restore: restoreDir, now: time.Now}, nil
}

func (d *Directory) Version() string { return d.version }

func (d *Directory) DefaultLocation() string { return d.restore }

func (d *Directory) Snapshot(ctx context.Context) ([]byte, error) {
	if err := d.checkRoot(); err != nil {
		return nil, err
	}
	m := &Manifest{Version: d.version, CapturedAt: d.now().UTC()}
	data, err := buildArchive(ctx, d.root, m, func(string, fs.FileInfo) bool { return true })
	if err != nil {
		return nil, err
	}
	logging.Debug().Str("root", d.root).Int("files", m.Included).Msg("Snapshot captured")
	return data, nil
}

// ChangesSince archives files modified after since, plus files the base
// manifest does not list or stamps differently. Renamed files and copies
// that preserve an old mtime are caught by the second rule.
func (d *Directory) ChangesSince(ctx context.Context, since time.Time, base []byte) ([]byte, error) {
	if err := d.checkRoot(); err != nil {
		return nil, err
	}
	var baseline *Manifest
	if base != nil {
		bm, err := readManifest(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("read base manifest: %w", err)
		}
		baseline = bm
	}

	s := since.UTC()
	m := &Manifest{Version: d.version, CapturedAt: d.now().UTC(), Since: &s}
	data, err := buildArchive(ctx, d.root, m, func(name string, info fs.FileInfo) bool {
		if info.ModTime().After(since) {
			return true
		}
		return baseline != nil && !baseline.has(name, info)
	})
	if err != nil {
		return nil, err
	}
	logging.Debug().
		Str("root", d.root).
		Time("since", since).
		Int("changed", m.Included).
		Int("files", len(m.Files)).
		Msg("Delta captured")
	return data, nil
}

func (d *Directory) checkRoot() error {
	info, err := os.Stat(d.root)
	if err != nil {
		return fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", d.root)
	}
	return nil
}

// Apply stages every layer into a sibling temp directory and swaps it into
// place only after the whole chain extracted cleanly.
func (d *Directory) Apply(ctx context.Context, location string, layers [][]byte, overwrite bool) error {
	if location == "" {
		location = d.restore
	}
	if location == "" {
		return errors.New("source: no restore location")
	}
	if len(layers) == 0 {
		return errors.New("source: nothing to restore")
	}
	target, err := filepath.Abs(location)
	if err != nil {
		return fmt.Errorf("resolve restore location: %w", err)
	}

	empty, err := isEmptyDir(target)
	if err != nil {
		return err
	}
	if !empty && !overwrite {
		return fmt.Errorf("%s: %w", target, ErrTargetNotEmpty)
	}

	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("create restore parent: %w", err)
	}
	staging, err := os.MkdirTemp(parent, ".lifeboat-restore-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging) //nolint:errcheck // renamed away on success

	var manifest *Manifest
	for i, layer := range layers {
		manifest, err = extractArchive(ctx, layer, staging)
		if err != nil {
			return fmt.Errorf("apply layer %d of %d: %w", i+1, len(layers), err)
		}
	}
	if err := prune(staging, manifest.Files); err != nil {
		return err
	}
	if err := checkComplete(staging, manifest.Files); err != nil {
		return err
	}
	return swapInto(staging, target)
}

// prune removes staged files that are absent from the final manifest.
func prune(dir string, keep []string) error {
	wanted := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		wanted[name] = struct{}{}
	}
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if _, ok := wanted[filepath.ToSlash(rel)]; ok {
			return nil
		}
		return os.Remove(path)
	})
}

// checkComplete fails when a file the final manifest lists was carried by
// no layer of the chain.
func checkComplete(dir string, files []string) error {
	var missing []string
	for _, name := range files {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("check restored %s: %w", name, err)
			}
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %d file(s) listed in the manifest are in no layer, first %q",
			ErrIncompleteChain, len(missing), missing[0])
	}
	return nil
}

func swapInto(staging, target string) error {
	var old string
	if _, err := os.Stat(target); err == nil {
		old = fmt.Sprintf("%s.lifeboat-old-%d", target, time.Now().UnixNano())
		if err := os.Rename(target, old); err != nil {
			return fmt.Errorf("move existing target aside: %w", err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		if old != "" {
			_ = os.Rename(old, target)
		}
		return fmt.Errorf("commit restore: %w", err)
	}
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			logging.Warn().Err(err).Str("path", old).Msg("Failed to remove previous restore target")
		}
	}
	return nil
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect restore target: %w", err)
	}
	return len(entries) == 0, nil
}
