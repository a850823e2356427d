// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package drplan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/lifeboat/internal/backup"
	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/models"
)

// Builtin action handles for automated steps.
const (
	BuiltinPrefix       = "builtin:"
	ActionBackupFull    = BuiltinPrefix + "backup-full"
	ActionVerifyLatest  = BuiltinPrefix + "verify-latest"
	ActionRestoreLatest = BuiltinPrefix + "restore-latest"
)

var errActionUnavailable = errors.New("action not configured")

// BackupRunner starts full backups.
type BackupRunner interface {
	CreateFull(ctx context.Context, opts backup.Options) (*models.BackupRecord, error)
}

// Verifier checks stored payloads.
type Verifier interface {
	Validate(ctx context.Context, rec *models.BackupRecord) *backup.ValidationResult
}

// RestoreRunner restores a backup chain.
type RestoreRunner interface {
	Restore(ctx context.Context, backupID string, opts backup.RestoreOptions) (*models.RestorePoint, error)
}

// Builtins holds the collaborators behind the builtin actions. A nil
// collaborator makes its action report an issue.
type Builtins struct {
	Backups  BackupRunner
	Verifier Verifier
	Restorer RestoreRunner
}

// IsBuiltin reports whether handle names a builtin action.
func IsBuiltin(handle string) bool {
	return strings.HasPrefix(handle, BuiltinPrefix)
}

// runBuiltin executes one builtin action and returns its issues. A
// returned error means the action could not run at all.
func (p *Planner) runBuiltin(ctx context.Context, plan *models.DisasterRecoveryPlan, step models.RecoveryStep) ([]string, error) {
	switch step.Script {
	case ActionBackupFull:
		if p.builtins.Backups == nil {
			return nil, fmt.Errorf("%s: %w", step.Script, errActionUnavailable)
		}
		rec, err := p.builtins.Backups.CreateFull(ctx, backup.Options{
			Name:      fmt.Sprintf("drill-%s-%s", plan.Name, step.ID),
			Tags:      []string{"drill"},
			CreatedBy: "drill:" + plan.Name,
		})
		if err != nil {
			return nil, err
		}
		p.logStep(ctx, plan, step).Str("backup_id", rec.ID).Msg("Drill backup completed")
		return nil, nil

	case ActionVerifyLatest:
		if p.builtins.Verifier == nil {
			return nil, fmt.Errorf("%s: %w", step.Script, errActionUnavailable)
		}
		rec, err := p.latestCompleted(ctx)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return []string{"no completed backup to verify"}, nil
		}
		res := p.builtins.Verifier.Validate(ctx, rec)
		if res.Valid {
			return nil, nil
		}
		issues := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			issues = append(issues, fmt.Sprintf("backup %s: %s", rec.ID, e))
		}
		if len(issues) == 0 {
			issues = append(issues, fmt.Sprintf("backup %s failed verification", rec.ID))
		}
		return issues, nil

	case ActionRestoreLatest:
		if p.builtins.Restorer == nil {
			return nil, fmt.Errorf("%s: %w", step.Script, errActionUnavailable)
		}
		rec, err := p.latestCompleted(ctx)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return []string{"no completed backup to restore"}, nil
		}
		rp, err := p.builtins.Restorer.Restore(ctx, rec.ID, backup.RestoreOptions{Overwrite: true})
		if err != nil {
			return nil, err
		}
		p.logStep(ctx, plan, step).Str("restore_point_id", rp.ID).Msg("Drill restore completed")
		return nil, nil
	}
	return nil, fmt.Errorf("unknown builtin action %q", step.Script)
}

func (p *Planner) latestCompleted(ctx context.Context) (*models.BackupRecord, error) {
	recs, err := p.catalog.ListBackups(ctx, catalog.BackupFilter{
		Statuses: []models.BackupStatus{models.StatusCompleted},
		Limit:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("find latest backup: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}
