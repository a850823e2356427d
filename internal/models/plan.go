// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package models

import (
	"slices"
	"time"
)

// Priority ranks DR plans.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// DisasterRecoveryPlan is an ordered set of recovery steps with recovery
// objectives.
type DisasterRecoveryPlan struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Priority    Priority       `json:"priority"`
	RTOMinutes  int            `json:"rto_minutes"`
	RPOMinutes  int            `json:"rpo_minutes"`
	Steps       []RecoveryStep `json:"steps"`
	Contacts    []string       `json:"contacts"`
	CreatedAt   time.Time      `json:"created_at"`
	LastTested  *time.Time     `json:"last_tested,omitempty"`
	TestHistory []TestResult   `json:"test_history"`
}

// Clone returns a deep copy.
func (p *DisasterRecoveryPlan) Clone() *DisasterRecoveryPlan {
	if p == nil {
		return nil
	}
	c := *p
	c.Steps = make([]RecoveryStep, len(p.Steps))
	for i := range p.Steps {
		c.Steps[i] = p.Steps[i]
		c.Steps[i].Dependencies = slices.Clone(p.Steps[i].Dependencies)
	}
	c.Contacts = slices.Clone(p.Contacts)
	c.LastTested = cloneTime(p.LastTested)
	c.TestHistory = make([]TestResult, len(p.TestHistory))
	for i := range p.TestHistory {
		c.TestHistory[i] = *p.TestHistory[i].Clone()
	}
	return &c
}

// RecoveryStep is one step of a plan. Dependencies name other step ids of
// the same plan.
type RecoveryStep struct {
	ID               string   `json:"id" validate:"required,max=64"`
	Order            int      `json:"order"`
	Title            string   `json:"title" validate:"required,max=200"`
	Description      string   `json:"description,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes" validate:"min=0"`
	Dependencies     []string `json:"dependencies,omitempty"`
	Automated        bool     `json:"automated"`

	// Script is a builtin action handle or a script name. Only read when
	// Automated is set.
	Script string `json:"script,omitempty" validate:"required_if=Automated true"`
}

// StepOutcome is the per-step record inside a TestResult.
type StepOutcome struct {
	StepID     string   `json:"step_id"`
	Status     string   `json:"status"`
	DurationMS int64    `json:"duration_ms"`
	Issues     []string `json:"issues,omitempty"`
}

// Step outcome statuses.
const (
	StepPassed     = "passed"
	StepFailed     = "failed"
	StepSkipped    = "skipped"
	StepCheckpoint = "manual_checkpoint"
)

// TestResult is the outcome of one drill. Results are appended to the
// plan history and never changed.
type TestResult struct {
	ID              string        `json:"id"`
	PlanID          string        `json:"plan_id"`
	TestedAt        time.Time     `json:"tested_at"`
	Success         bool          `json:"success"`
	DurationMS      int64         `json:"duration_ms"`
	Issues          []string      `json:"issues"`
	Recommendations []string      `json:"recommendations"`
	Steps           []StepOutcome `json:"steps"`
}

// Clone returns a deep copy.
func (r *TestResult) Clone() *TestResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Issues = slices.Clone(r.Issues)
	c.Recommendations = slices.Clone(r.Recommendations)
	c.Steps = make([]StepOutcome, len(r.Steps))
	for i := range r.Steps {
		c.Steps[i] = r.Steps[i]
		c.Steps[i].Issues = slices.Clone(r.Steps[i].Issues)
	}
	return &c
}

// PlanSpec is the operator input for a new plan.
type PlanSpec struct {
	Name       string         `json:"name" validate:"required,max=128"`
	Priority   Priority       `json:"priority" validate:"required,oneof=critical high medium low"`
	RTOMinutes int            `json:"rto_minutes" validate:"min=0"`
	RPOMinutes int            `json:"rpo_minutes" validate:"min=0"`
	Steps      []RecoveryStep `json:"steps" validate:"dive"`
	Contacts   []string       `json:"contacts" validate:"dive,required"`
}
