// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package drplan

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/models"
)

// recommend derives follow-ups from a finished drill.
func (p *Planner) recommend(ctx context.Context, plan *models.DisasterRecoveryPlan, layers [][]models.RecoveryStep, result *models.TestResult, took time.Duration) []string {
	recs := make([]string, 0)

	if plan.RTOMinutes > 0 {
		rto := time.Duration(plan.RTOMinutes) * time.Minute
		if took > rto {
			recs = append(recs, fmt.Sprintf("drill took %s, exceeding the RTO of %d minutes", took.Round(time.Second), plan.RTOMinutes))
		}
		if est := criticalPathMinutes(layers); est > plan.RTOMinutes {
			recs = append(recs, fmt.Sprintf("estimated recovery time of %d minutes exceeds the RTO of %d minutes; parallelize or shorten steps", est, plan.RTOMinutes))
		}
	}

	if plan.RPOMinutes > 0 {
		latest, err := p.latestCompleted(ctx)
		switch {
		case err != nil:
			logging.Ctx(ctx).Warn().Err(err).Str("plan_id", plan.ID).Msg("RPO check skipped")
		case latest == nil:
			recs = append(recs, fmt.Sprintf("no completed backup exists; the RPO of %d minutes cannot be met", plan.RPOMinutes))
		default:
			age := p.now().Sub(latest.CreatedAt)
			if age > time.Duration(plan.RPOMinutes)*time.Minute {
				recs = append(recs, fmt.Sprintf("newest completed backup is %s old, exceeding the RPO of %d minutes; back up more often", age.Round(time.Minute), plan.RPOMinutes))
			}
		}
	}

	for _, layer := range layers {
		for _, step := range layer {
			if !step.Automated {
				recs = append(recs, fmt.Sprintf("step %s (%s) is manual; consider automating it", step.ID, step.Title))
			}
		}
	}

	for _, o := range result.Steps {
		if o.Status == models.StepFailed {
			recs = append(recs, fmt.Sprintf("resolve the issues of step %s before the next drill", o.StepID))
		}
	}

	if len(plan.Contacts) == 0 && plan.Priority == models.PriorityCritical {
		recs = append(recs, "critical plan has no contacts")
	}
	return recs
}
