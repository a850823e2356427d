// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// Memory keeps objects in a map.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) Locate(key string) string { return key }

func (m *Memory) Write(ctx context.Context, key string, payload []byte) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(payload)
	return newObject(key, payload), nil
}

func (m *Memory) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[location]
	if !ok {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	return bytes.Clone(data), nil
}

func (m *Memory) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, location)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Corrupt overwrites a stored object in place. Tests use it to simulate
// bit rot behind the catalog's back.
func (m *Memory) Corrupt(location string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[location] = bytes.Clone(data)
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
