// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package source

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// manifestName is the archive entry holding the Manifest. It is written
// last so extraction sees every file first.
const manifestName = ".lifeboat-manifest.json"

// maxEntrySize bounds a single extracted file against decompression bombs.
const maxEntrySize = 1 << 30

// Manifest lists every file present in the source at capture time, whether
// or not its content is in this archive.
type Manifest struct {
	Version    string               `json:"version"`
	CapturedAt time.Time            `json:"captured_at"`
	Since      *time.Time           `json:"since,omitempty"`
	Files      []string             `json:"files"`
	Stamps     map[string]FileStamp `json:"stamps,omitempty"`
	Included   int                  `json:"included"`
}

// FileStamp is the size and modification time of a file at capture time.
type FileStamp struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

func stampOf(info fs.FileInfo) FileStamp {
	return FileStamp{Size: info.Size(), ModTime: info.ModTime().UTC()}
}

// Matches reports whether info still looks like the file that was stamped.
func (s FileStamp) Matches(info fs.FileInfo) bool {
	return s.Size == info.Size() && s.ModTime.Equal(info.ModTime())
}

// archiveWriters closes gzip and tar in reverse order of creation.
type archiveWriters struct {
	buf     bytes.Buffer
	tw      *tar.Writer
	closers []io.Closer
}

func newArchiveWriters() *archiveWriters {
	aw := &archiveWriters{}
	gz := gzip.NewWriter(&aw.buf)
	aw.tw = tar.NewWriter(gz)
	aw.closers = []io.Closer{gz, aw.tw}
	return aw
}

func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// has reports whether the manifest lists name with a stamp matching info.
func (m *Manifest) has(name string, info fs.FileInfo) bool {
	if stamp, ok := m.Stamps[name]; ok {
		return stamp.Matches(info)
	}
	i := sort.SearchStrings(m.Files, name)
	return i < len(m.Files) && m.Files[i] == name
}

// buildArchive walks root and archives every regular file for which include
// returns true. All regular files are listed and stamped in the manifest.
func buildArchive(ctx context.Context, root string, manifest *Manifest, include func(name string, info fs.FileInfo) bool) ([]byte, error) {
	aw := newArchiveWriters()
	if manifest.Stamps == nil {
		manifest.Stamps = make(map[string]FileStamp)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if name == manifestName {
			return nil
		}
		manifest.Files = append(manifest.Files, name)
		manifest.Stamps[name] = stampOf(info)
		if !include(name, info) {
			return nil
		}
		manifest.Included++
		return addFile(aw.tw, path, name, info)
	})
	if err != nil {
		_ = aw.Close()
		return nil, fmt.Errorf("archive %s: %w", root, err)
	}

	sort.Strings(manifest.Files)
	if err := addManifest(aw.tw, manifest); err != nil {
		_ = aw.Close()
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return aw.buf.Bytes(), nil
}

//nolint:gosec // G304: path comes from walking the configured source root
func addFile(tw *tar.Writer, path, name string, info fs.FileInfo) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header for %s: %w", path, err)
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", path, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return nil
}

func addManifest(tw *tar.Writer, m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	header := &tar.Header{
		Name:    manifestName,
		Size:    int64(len(data)),
		Mode:    0o640,
		ModTime: m.CapturedAt,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// extractArchive unpacks data into dir, overwriting existing files, and
// returns the archive manifest.
func extractArchive(ctx context.Context, data []byte, dir string) (*Manifest, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close() //nolint:errcheck // reader over an in-memory buffer

	tr := tar.NewReader(gz)
	var manifest *Manifest
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if header.Size > maxEntrySize {
			return nil, fmt.Errorf("entry %s too large: %d bytes", header.Name, header.Size)
		}

		if header.Name == manifestName {
			var m Manifest
			if err := json.NewDecoder(io.LimitReader(tr, header.Size)).Decode(&m); err != nil {
				return nil, fmt.Errorf("decode manifest: %w", err)
			}
			manifest = &m
			continue
		}

		dest, err := destPath(dir, header.Name)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", header.Name, err)
		}
		if err := writeEntry(tr, dest, header); err != nil {
			return nil, fmt.Errorf("extract %s: %w", header.Name, err)
		}
	}
	if manifest == nil {
		return nil, errors.New("archive has no manifest")
	}
	return manifest, nil
}

// readManifest returns the manifest of an archive without extracting it.
func readManifest(ctx context.Context, data []byte) (*Manifest, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close() //nolint:errcheck // reader over an in-memory buffer

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("archive has no manifest")
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg || header.Name != manifestName {
			continue
		}
		var m Manifest
		if err := json.NewDecoder(io.LimitReader(tr, header.Size)).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		return &m, nil
	}
}

// destPath joins name under dir and rejects entries that would land
// outside it.
func destPath(dir, name string) (string, error) {
	p := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(p, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return p, nil
}

//nolint:gosec // G304: dest is validated by destPath
func writeEntry(r io.Reader, dest string, header *tar.Header) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(header.Mode).Perm()|0o600)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, io.LimitReader(r, header.Size))
	closeErr := out.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	return os.Chtimes(dest, header.ModTime, header.ModTime)
}
