// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package script runs drill step scripts.
//
// A script handle is a file name relative to the configured script
// directory. The script's exit status and any output lines starting with
// "ISSUE:" become issues on the step.
package script

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/lifeboat/internal/logging"
)

// IssuePrefix marks an output line as an issue.
const IssuePrefix = "ISSUE:"

// maxOutput caps captured output per run.
const maxOutput = 64 << 10

var (
	// ErrScriptNotFound is returned for handles that do not resolve to an
	// executable inside the script directory.
	ErrScriptNotFound = errors.New("script not found")

	// ErrNoScriptDir is returned when no script directory is configured.
	ErrNoScriptDir = errors.New("no script directory configured")
)

// Result is the outcome of one script run.
type Result struct {
	Issues   []string      `json:"issues"`
	Output   string        `json:"output,omitempty"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Runner executes a script handle.
type Runner interface {
	Run(ctx context.Context, handle string) (*Result, error)
}

// Exec runs scripts from a directory with os/exec.
type Exec struct {
	dir string
	env []string
}

// NewExec confines scripts to dir. env entries are appended to the
// process environment of every run.
func NewExec(dir string, env ...string) (*Exec, error) {
	if dir == "" {
		return &Exec{}, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve script directory: %w", err)
	}
	return &Exec{dir: abs, env: env}, nil
}

func (e *Exec) resolve(handle string) (string, error) {
	if e.dir == "" {
		return "", ErrNoScriptDir
	}
	if handle == "" || filepath.IsAbs(handle) {
		return "", fmt.Errorf("%q: %w", handle, ErrScriptNotFound)
	}
	p := filepath.Join(e.dir, filepath.FromSlash(handle))
	if !strings.HasPrefix(p, e.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("%q escapes script directory: %w", handle, ErrScriptNotFound)
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%q: %w", handle, ErrScriptNotFound)
	}
	return p, nil
}

// Run executes handle until it exits or ctx is done. A non-zero exit or a
// timeout is reported as an issue, not an error; errors mean the script
// could not be started at all.
func (e *Exec) Run(ctx context.Context, handle string) (*Result, error) {
	path, err := e.resolve(handle)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G204: path is confined to the configured script directory
	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = e.dir
	cmd.Env = append(os.Environ(), e.env...)
	cmd.WaitDelay = 5 * time.Second
	out := &limitedBuffer{max: maxOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	started := time.Now()
	runErr := cmd.Run()
	result := &Result{
		Issues:   parseIssues(out.Bytes()),
		Output:   out.String(),
		Duration: time.Since(started),
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case ctx.Err() != nil:
		result.ExitCode = -1
		result.Issues = append(result.Issues, fmt.Sprintf("script %s did not finish: %v", handle, ctx.Err()))
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.Issues = append(result.Issues, fmt.Sprintf("script %s exited with code %d", handle, result.ExitCode))
	default:
		return nil, fmt.Errorf("start %s: %w", handle, runErr)
	}

	logging.Ctx(ctx).Debug().
		Str("script", handle).
		Int("exit_code", result.ExitCode).
		Int("issues", len(result.Issues)).
		Dur("duration", result.Duration).
		Msg("Script finished")
	return result, nil
}

func parseIssues(output []byte) []string {
	issues := make([]string, 0)
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, IssuePrefix); ok {
			if issue := strings.TrimSpace(rest); issue != "" {
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

// limitedBuffer keeps the first max bytes and discards the rest.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *limitedBuffer) String() string { return b.buf.String() }
