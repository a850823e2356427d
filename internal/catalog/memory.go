// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/lifeboat/internal/models"
)

// Memory is an in-process Catalog.
type Memory struct {
	mu            sync.RWMutex
	closed        bool
	backups       map[string]*models.BackupRecord
	restorePoints map[string]*models.RestorePoint
	schedules     map[string]*models.BackupSchedule
	plans         map[string]*models.DisasterRecoveryPlan
	alerts        map[string]*models.Alert
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		backups:       make(map[string]*models.BackupRecord),
		restorePoints: make(map[string]*models.RestorePoint),
		schedules:     make(map[string]*models.BackupSchedule),
		plans:         make(map[string]*models.DisasterRecoveryPlan),
		alerts:        make(map[string]*models.Alert),
	}
}

var _ Catalog = (*Memory)(nil)

func (m *Memory) CreateBackup(_ context.Context, rec *models.BackupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.backups[rec.ID]; ok {
		return fmt.Errorf("backup %s: %w", rec.ID, ErrExists)
	}
	m.backups[rec.ID] = rec.Clone()
	return nil
}

func (m *Memory) GetBackup(_ context.Context, id string) (*models.BackupRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	rec, ok := m.backups[id]
	if !ok {
		return nil, fmt.Errorf("backup %s: %w", id, models.ErrBackupNotFound)
	}
	return rec.Clone(), nil
}

func (m *Memory) ListBackups(_ context.Context, filter BackupFilter) ([]*models.BackupRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]*models.BackupRecord, 0, len(m.backups))
	for _, rec := range m.backups {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	return sortAndPage(out, &filter), nil
}

func (m *Memory) UpdateBackup(_ context.Context, id string, fn func(*models.BackupRecord) error) (*models.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	cur, ok := m.backups[id]
	if !ok {
		return nil, fmt.Errorf("backup %s: %w", id, models.ErrBackupNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := checkTransition(cur, next); err != nil {
		return nil, err
	}
	m.backups[id] = next
	return next.Clone(), nil
}

func (m *Memory) DeleteBackup(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.backups[id]; !ok {
		return fmt.Errorf("backup %s: %w", id, models.ErrBackupNotFound)
	}
	delete(m.backups, id)
	return nil
}

func (m *Memory) CreateRestorePoint(_ context.Context, rp *models.RestorePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.restorePoints[rp.ID]; ok {
		return fmt.Errorf("restore point %s: %w", rp.ID, ErrExists)
	}
	m.restorePoints[rp.ID] = rp.Clone()
	return nil
}

func (m *Memory) GetRestorePoint(_ context.Context, id string) (*models.RestorePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	rp, ok := m.restorePoints[id]
	if !ok {
		return nil, fmt.Errorf("restore point %s: %w", id, models.ErrRestorePointNotFound)
	}
	return rp.Clone(), nil
}

func (m *Memory) ListRestorePoints(_ context.Context, backupID string) ([]*models.RestorePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]*models.RestorePoint, 0, len(m.restorePoints))
	for _, rp := range m.restorePoints {
		if backupID == "" || rp.BackupID == backupID {
			out = append(out, rp.Clone())
		}
	}
	sortRestorePoints(out)
	return out, nil
}

func (m *Memory) PutSchedule(_ context.Context, s *models.BackupSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.schedules[s.ID] = s.Clone()
	return nil
}

func (m *Memory) GetSchedule(_ context.Context, id string) (*models.BackupSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	s, ok := m.schedules[id]
	if !ok {
		return nil, fmt.Errorf("schedule %s: %w", id, models.ErrScheduleNotFound)
	}
	return s.Clone(), nil
}

func (m *Memory) ListSchedules(_ context.Context) ([]*models.BackupSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]*models.BackupSchedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s.Clone())
	}
	sortSchedules(out)
	return out, nil
}

func (m *Memory) UpdateSchedule(_ context.Context, id string, fn func(*models.BackupSchedule) error) (*models.BackupSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	cur, ok := m.schedules[id]
	if !ok {
		return nil, fmt.Errorf("schedule %s: %w", id, models.ErrScheduleNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	m.schedules[id] = next
	return next.Clone(), nil
}

func (m *Memory) DeleteSchedule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.schedules[id]; !ok {
		return fmt.Errorf("schedule %s: %w", id, models.ErrScheduleNotFound)
	}
	delete(m.schedules, id)
	return nil
}

func (m *Memory) CreatePlan(_ context.Context, p *models.DisasterRecoveryPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.plans[p.ID]; ok {
		return fmt.Errorf("plan %s: %w", p.ID, ErrExists)
	}
	m.plans[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (*models.DisasterRecoveryPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	p, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, models.ErrPlanNotFound)
	}
	return p.Clone(), nil
}

func (m *Memory) ListPlans(_ context.Context) ([]*models.DisasterRecoveryPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]*models.DisasterRecoveryPlan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p.Clone())
	}
	sortPlans(out)
	return out, nil
}

func (m *Memory) UpdatePlan(_ context.Context, id string, fn func(*models.DisasterRecoveryPlan) error) (*models.DisasterRecoveryPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	cur, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, models.ErrPlanNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	m.plans[id] = next
	return next.Clone(), nil
}

func (m *Memory) CreateAlert(_ context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.alerts[a.ID]; ok {
		return fmt.Errorf("alert %s: %w", a.ID, ErrExists)
	}
	m.alerts[a.ID] = a.Clone()
	return nil
}

func (m *Memory) ListAlerts(_ context.Context, unacknowledgedOnly bool) ([]*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]*models.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if unacknowledgedOnly && a.Acknowledged {
			continue
		}
		out = append(out, a.Clone())
	}
	sortAlerts(out)
	return out, nil
}

func (m *Memory) UpdateAlert(_ context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	cur, ok := m.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, models.ErrAlertNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	m.alerts[id] = next
	return next.Clone(), nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func sortRestorePoints(rps []*models.RestorePoint) {
	sort.Slice(rps, func(i, j int) bool {
		if rps[i].RestoredAt.Equal(rps[j].RestoredAt) {
			return rps[i].ID < rps[j].ID
		}
		return rps[i].RestoredAt.After(rps[j].RestoredAt)
	})
}

func sortSchedules(ss []*models.BackupSchedule) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
			return ss[i].ID < ss[j].ID
		}
		return ss[i].CreatedAt.Before(ss[j].CreatedAt)
	})
}

func sortPlans(ps []*models.DisasterRecoveryPlan) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}

func sortAlerts(as []*models.Alert) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].ID < as[j].ID
		}
		return as[i].CreatedAt.Before(as[j].CreatedAt)
	})
}
