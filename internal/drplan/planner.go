// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package drplan stores disaster recovery plans and runs drills against
// them.
//
// A drill executes the plan's steps in dependency order. Steps with no
// dependency between them run concurrently in waves. Automated steps call
// a builtin action or an operator script; manual steps are recorded as
// checkpoints. Step failures become issues on the TestResult and never
// abort the drill, but steps depending on a failed step are skipped.
package drplan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/notify"
	"github.com/tomtom215/lifeboat/internal/script"
	"github.com/tomtom215/lifeboat/internal/validation"
)

// DefaultStepTimeout bounds an automated step that has no larger estimate.
const DefaultStepTimeout = 5 * time.Minute

// maxHistory caps the drill results kept per plan.
const maxHistory = 100

// Config tunes drill execution.
type Config struct {
	StepTimeout time.Duration
}

// Planner owns DR plans.
type Planner struct {
	cfg      Config
	catalog  catalog.Catalog
	scripts  script.Runner
	builtins Builtins
	notifier notify.Notifier
	now      func() time.Time
}

// New returns a planner. scripts and notifier may be nil.
func New(cfg Config, cat catalog.Catalog, scripts script.Runner, builtins Builtins, notifier notify.Notifier) *Planner {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Planner{
		cfg:      cfg,
		catalog:  cat,
		scripts:  scripts,
		builtins: builtins,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreatePlan validates spec and stores a new plan.
func (p *Planner) CreatePlan(ctx context.Context, spec models.PlanSpec) (*models.DisasterRecoveryPlan, error) {
	if verr := validation.ValidateStruct(&spec); verr != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrPlanInvalid, verr)
	}
	if err := ValidateSteps(spec.Steps); err != nil {
		return nil, err
	}

	plan := &models.DisasterRecoveryPlan{
		ID:          uuid.New().String(),
		Name:        spec.Name,
		Priority:    spec.Priority,
		RTOMinutes:  spec.RTOMinutes,
		RPOMinutes:  spec.RPOMinutes,
		Steps:       spec.Steps,
		Contacts:    spec.Contacts,
		CreatedAt:   p.now().UTC(),
		TestHistory: make([]models.TestResult, 0),
	}
	if plan.Steps == nil {
		plan.Steps = make([]models.RecoveryStep, 0)
	}
	if plan.Contacts == nil {
		plan.Contacts = make([]string, 0)
	}
	if err := p.catalog.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("store plan: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("plan_id", plan.ID).
		Str("name", plan.Name).
		Str("priority", string(plan.Priority)).
		Int("steps", len(plan.Steps)).
		Msg("DR plan created")
	return plan, nil
}

// Get returns the plan with id.
func (p *Planner) Get(ctx context.Context, id string) (*models.DisasterRecoveryPlan, error) {
	return p.catalog.GetPlan(ctx, id)
}

// List returns every stored plan.
func (p *Planner) List(ctx context.Context) ([]*models.DisasterRecoveryPlan, error) {
	return p.catalog.ListPlans(ctx)
}

// TestPlan runs a drill of the plan and appends the result to its
// history. LastTested is updated whether or not the drill succeeded.
func (p *Planner) TestPlan(ctx context.Context, planID string) (*models.TestResult, error) {
	plan, err := p.catalog.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	layers, err := waves(plan.Steps)
	if err != nil {
		// Stored plans were validated on create.
		return nil, err
	}

	log := logging.Ctx(ctx).With().Str("plan_id", plan.ID).Str("plan", plan.Name).Logger()
	log.Info().Int("steps", len(plan.Steps)).Int("waves", len(layers)).Msg("DR drill started")

	started := p.now()
	outcomes := make(map[string]models.StepOutcome, len(plan.Steps))
	ordered := make([]models.StepOutcome, 0, len(plan.Steps))

	for _, layer := range layers {
		results := make([]models.StepOutcome, len(layer))
		var g errgroup.Group
		for i, step := range layer {
			if blocker := failedDependency(step, outcomes); blocker != "" {
				results[i] = models.StepOutcome{
					StepID: step.ID,
					Status: models.StepSkipped,
					Issues: []string{fmt.Sprintf("step %s skipped: dependency %s did not pass", step.ID, blocker)},
				}
				continue
			}
			g.Go(func() error {
				results[i] = p.runStep(ctx, plan, step)
				return nil
			})
		}
		_ = g.Wait()

		for _, o := range results {
			outcomes[o.StepID] = o
			ordered = append(ordered, o)
			metrics.DrillSteps.WithLabelValues(o.Status).Inc()
		}
	}

	finished := p.now()
	result := &models.TestResult{
		ID:         uuid.New().String(),
		PlanID:     plan.ID,
		TestedAt:   finished.UTC(),
		DurationMS: finished.Sub(started).Milliseconds(),
		Issues:     make([]string, 0),
		Steps:      ordered,
	}
	for _, o := range ordered {
		result.Issues = append(result.Issues, o.Issues...)
	}
	result.Success = len(result.Issues) == 0
	result.Recommendations = p.recommend(ctx, plan, layers, result, finished.Sub(started))

	testedAt := result.TestedAt
	if _, err := p.catalog.UpdatePlan(context.WithoutCancel(ctx), plan.ID, func(cur *models.DisasterRecoveryPlan) error {
		cur.LastTested = &testedAt
		cur.TestHistory = append(cur.TestHistory, *result.Clone())
		if n := len(cur.TestHistory); n > maxHistory {
			cur.TestHistory = cur.TestHistory[n-maxHistory:]
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("record drill result: %w", err)
	}

	outcome := "success"
	if !result.Success {
		outcome = "issues"
		msg := fmt.Sprintf("DR drill of %q reported %d issue(s)", plan.Name, len(result.Issues))
		if err := p.notifier.Send(ctx, models.AlertDrillFailed, msg); err != nil {
			log.Warn().Err(err).Msg("Drill notification failed")
		}
	}
	metrics.DrillsTotal.WithLabelValues(outcome).Inc()

	log.Info().
		Bool("success", result.Success).
		Int("issues", len(result.Issues)).
		Int64("duration_ms", result.DurationMS).
		Msg("DR drill finished")
	return result, nil
}

// failedDependency returns the first dependency that did not pass.
func failedDependency(step models.RecoveryStep, outcomes map[string]models.StepOutcome) string {
	for _, dep := range step.Dependencies {
		o := outcomes[dep]
		if o.Status == models.StepFailed || o.Status == models.StepSkipped {
			return dep
		}
	}
	return ""
}

func (p *Planner) runStep(ctx context.Context, plan *models.DisasterRecoveryPlan, step models.RecoveryStep) models.StepOutcome {
	started := p.now()
	out := models.StepOutcome{StepID: step.ID}

	if !step.Automated {
		out.Status = models.StepCheckpoint
		p.logStep(ctx, plan, step).Str("title", step.Title).Msg("Manual checkpoint")
		return out
	}

	timeout := max(p.cfg.StepTimeout, 2*time.Duration(step.EstimatedMinutes)*time.Minute)
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	issues, err := p.execute(stepCtx, plan, step)
	if err != nil {
		if stepCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("step deadline of %s exceeded: %w", timeout, err)
		}
		issues = append(issues, fmt.Sprintf("step %s: %v: %v", step.ID, models.ErrStepExecutionFailed, err))
	}
	prefix := "step " + step.ID + ":"
	for i, issue := range issues {
		if !strings.HasPrefix(issue, prefix) {
			issues[i] = fmt.Sprintf("step %s: %s", step.ID, issue)
		}
	}

	out.Issues = issues
	out.DurationMS = p.now().Sub(started).Milliseconds()
	out.Status = models.StepPassed
	if len(issues) > 0 {
		out.Status = models.StepFailed
	}

	p.logStep(ctx, plan, step).Str("status", out.Status).Int("issues", len(issues)).Msg("Drill step finished")
	return out
}

// execute dispatches an automated step.
func (p *Planner) execute(ctx context.Context, plan *models.DisasterRecoveryPlan, step models.RecoveryStep) ([]string, error) {
	if IsBuiltin(step.Script) {
		return p.runBuiltin(ctx, plan, step)
	}
	if p.scripts == nil {
		return nil, script.ErrNoScriptDir
	}
	res, err := p.scripts.Run(ctx, step.Script)
	if err != nil {
		return nil, err
	}
	return res.Issues, nil
}

func (p *Planner) logStep(ctx context.Context, plan *models.DisasterRecoveryPlan, step models.RecoveryStep) *zerolog.Event {
	return logging.Ctx(ctx).Info().Str("plan_id", plan.ID).Str("step_id", step.ID)
}
