// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package health evaluates backup SLAs and keeps the operator alert queue.
//
// CheckHealth is a read-only evaluation over the catalog and the storage
// backend. Check, run periodically by the supervisor, additionally raises
// an alert for every problem that was not present on the previous run.
package health

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/notify"
	"github.com/tomtom215/lifeboat/internal/storage"
)

const (
	DefaultLookback     = 24 * time.Hour
	DefaultWarnFraction = 0.8
)

// Config sets the SLA thresholds.
type Config struct {
	// Lookback is the window in which a completed backup must exist.
	Lookback time.Duration

	// CapacityBytes is the storage budget. Zero disables the size check.
	CapacityBytes int64

	// CapacityWarnFraction of CapacityBytes above which status is warning.
	CapacityWarnFraction float64
}

// availability is implemented by storage wrappers with a circuit breaker.
type availability interface {
	Available() bool
	State() string
}

// Monitor checks health and owns alerts.
type Monitor struct {
	cfg      Config
	catalog  catalog.Catalog
	store    storage.Storage
	notifier notify.Notifier
	now      func() time.Time

	mu     sync.Mutex
	active map[models.AlertKind]bool
}

// New returns a monitor. notifier may be nil.
func New(cfg Config, cat catalog.Catalog, store storage.Storage, notifier notify.Notifier) *Monitor {
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.CapacityWarnFraction <= 0 || cfg.CapacityWarnFraction > 1 {
		cfg.CapacityWarnFraction = DefaultWarnFraction
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Monitor{
		cfg:      cfg,
		catalog:  cat,
		store:    store,
		notifier: notifier,
		now:      time.Now,
		active:   make(map[models.AlertKind]bool),
	}
}

// finding is one problem found by a check.
type finding struct {
	kind           models.AlertKind
	status         models.HealthStatus
	issue          string
	recommendation string
}

// CheckHealth evaluates the current state. Collaborator failures degrade
// the status instead of returning an error.
func (m *Monitor) CheckHealth(ctx context.Context) *models.HealthReport {
	report, _ := m.evaluate(ctx)
	return report
}

func (m *Monitor) evaluate(ctx context.Context) (*models.HealthReport, []finding) {
	now := m.now().UTC()
	report := &models.HealthReport{
		Status:          models.HealthHealthy,
		Issues:          make([]string, 0),
		Recommendations: make([]string, 0),
		CheckedAt:       now,
		CapacityBytes:   m.cfg.CapacityBytes,
	}
	var findings []finding
	add := func(f finding) {
		findings = append(findings, f)
		report.Raise(f.status)
		report.Issues = append(report.Issues, f.issue)
		if f.recommendation != "" {
			report.Recommendations = append(report.Recommendations, f.recommendation)
		}
	}

	if f, ok := m.checkStorage(ctx); !ok {
		add(f)
	}

	if err := m.catalog.Ping(ctx); err != nil {
		add(finding{
			kind:           models.AlertHealthDegraded,
			status:         models.HealthCritical,
			issue:          fmt.Sprintf("catalog unavailable: %v", err),
			recommendation: "check the catalog database",
		})
		metrics.SetHealthStatus(string(report.Status))
		return report, findings
	}

	recs, err := m.catalog.ListBackups(ctx, catalog.BackupFilter{})
	if err != nil {
		add(finding{
			kind:   models.AlertHealthDegraded,
			status: models.HealthCritical,
			issue:  fmt.Sprintf("list backups: %v", err),
		})
		metrics.SetHealthStatus(string(report.Status))
		return report, findings
	}

	var lastCompleted *time.Time
	for _, rec := range recs {
		switch rec.Status {
		case models.StatusCompleted:
			report.TotalSizeBytes += rec.SizeBytes
			if lastCompleted == nil || rec.CreatedAt.After(*lastCompleted) {
				t := rec.CreatedAt
				lastCompleted = &t
			}
		case models.StatusFailed:
			report.FailedBackups++
		}
	}
	report.LastCompletedBackup = lastCompleted

	if lastCompleted == nil || now.Sub(*lastCompleted) > m.cfg.Lookback {
		issue := fmt.Sprintf("no completed backup in the last %s", m.cfg.Lookback)
		if lastCompleted != nil {
			issue = fmt.Sprintf("%s; newest completed backup is from %s", issue, lastCompleted.Format(time.RFC3339))
		}
		add(finding{
			kind:           models.AlertBackupStale,
			status:         models.HealthCritical,
			issue:          issue,
			recommendation: "run a full backup and check that schedules are enabled",
		})
	}

	if report.FailedBackups > 0 {
		add(finding{
			kind:           models.AlertBackupFailed,
			status:         models.HealthWarning,
			issue:          fmt.Sprintf("%d backup(s) failed", report.FailedBackups),
			recommendation: "inspect failed backups and their error messages",
		})
	}

	if m.cfg.CapacityBytes > 0 {
		limit := int64(float64(m.cfg.CapacityBytes) * m.cfg.CapacityWarnFraction)
		if report.TotalSizeBytes > limit {
			add(finding{
				kind:   models.AlertStoragePressure,
				status: models.HealthWarning,
				issue: fmt.Sprintf("stored backups use %d of %d bytes (%.0f%%)",
					report.TotalSizeBytes, m.cfg.CapacityBytes,
					100*float64(report.TotalSizeBytes)/float64(m.cfg.CapacityBytes)),
				recommendation: "shorten retention or add storage capacity",
			})
		}
	}

	metrics.SetHealthStatus(string(report.Status))
	return report, findings
}

// checkStorage probes the backend. An open circuit counts as unavailable
// without a probe.
func (m *Monitor) checkStorage(ctx context.Context) (finding, bool) {
	f := finding{
		kind:           models.AlertStorageUnavailable,
		status:         models.HealthCritical,
		recommendation: "check storage connectivity and credentials",
	}
	if a, ok := m.store.(availability); ok && !a.Available() {
		f.issue = fmt.Sprintf("storage %s unavailable: circuit %s", m.store.Backend(), a.State())
		return f, false
	}
	if p, ok := m.store.(storage.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			f.issue = fmt.Sprintf("storage %s unavailable: %v", m.store.Backend(), err)
			return f, false
		}
	}
	return f, true
}

// Check evaluates health and raises an alert for each newly found
// problem. Problems that clear are forgotten so they alert again when
// they come back.
func (m *Monitor) Check(ctx context.Context) error {
	report, findings := m.evaluate(ctx)

	current := make(map[models.AlertKind]bool, len(findings))
	var fresh []finding
	m.mu.Lock()
	for _, f := range findings {
		if current[f.kind] {
			continue
		}
		current[f.kind] = true
		if !m.active[f.kind] {
			fresh = append(fresh, f)
		}
	}
	m.active = current
	m.mu.Unlock()

	for _, f := range fresh {
		if _, err := m.SendAlert(ctx, f.kind, f.issue); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("alert_kind", string(f.kind)).Msg("Failed to raise health alert")
		}
	}

	ev := logging.Ctx(ctx).Debug()
	if report.Status != models.HealthHealthy {
		ev = logging.Ctx(ctx).Warn()
	}
	ev.Str("status", string(report.Status)).
		Str("issues", strings.Join(report.Issues, "; ")).
		Msg("Health check")
	return nil
}

// SendAlert queues an alert and forwards it to the notifier. A notifier
// failure is logged; the alert stays queued.
func (m *Monitor) SendAlert(ctx context.Context, kind models.AlertKind, message string) (*models.Alert, error) {
	alert := &models.Alert{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: m.now().UTC(),
	}
	if err := m.catalog.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("store alert: %w", err)
	}
	metrics.AlertsTotal.WithLabelValues(string(kind)).Inc()

	if err := m.notifier.Send(ctx, kind, message); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("alert_id", alert.ID).Msg("Alert notification failed")
	}
	logging.Ctx(ctx).Info().
		Str("alert_id", alert.ID).
		Str("kind", string(kind)).
		Str("message", message).
		Msg("Alert raised")
	return alert, nil
}

// AcknowledgeAlert marks an alert handled. Acknowledging twice keeps the
// first acknowledgement time.
func (m *Monitor) AcknowledgeAlert(ctx context.Context, id string) (*models.Alert, error) {
	now := m.now().UTC()
	return m.catalog.UpdateAlert(ctx, id, func(a *models.Alert) error {
		if a.Acknowledged {
			return nil
		}
		a.Acknowledged = true
		a.AcknowledgedAt = &now
		return nil
	})
}

func (m *Monitor) ListAlerts(ctx context.Context, unacknowledgedOnly bool) ([]*models.Alert, error) {
	return m.catalog.ListAlerts(ctx, unacknowledgedOnly)
}
