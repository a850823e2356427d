// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package drplan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/lifeboat/internal/backup"
	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/script"
)

// fakeScripts returns canned results per handle and records run order.
type fakeScripts struct {
	mu      sync.Mutex
	ran     []string
	results map[string]*script.Result
	errs    map[string]error
	block   map[string]bool
}

func (f *fakeScripts) Run(ctx context.Context, handle string) (*script.Result, error) {
	f.mu.Lock()
	f.ran = append(f.ran, handle)
	block := f.block[handle]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return &script.Result{ExitCode: -1, Issues: []string{"script " + handle + " did not finish: " + ctx.Err().Error()}}, nil
	}
	if err := f.errs[handle]; err != nil {
		return nil, err
	}
	if r, ok := f.results[handle]; ok {
		return r, nil
	}
	return &script.Result{}, nil
}

func (f *fakeScripts) Ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

type fakeBackups struct{ calls int }

func (f *fakeBackups) CreateFull(_ context.Context, opts backup.Options) (*models.BackupRecord, error) {
	f.calls++
	return &models.BackupRecord{ID: "drill-backup", Kind: models.KindFull, Status: models.StatusCompleted, Name: opts.Name}, nil
}

type fakeVerifier struct{ valid bool }

func (f *fakeVerifier) Validate(_ context.Context, rec *models.BackupRecord) *backup.ValidationResult {
	res := &backup.ValidationResult{BackupID: rec.ID, Valid: f.valid, Errors: []string{}}
	if !f.valid {
		res.Errors = append(res.Errors, "checksum mismatch")
	}
	return res
}

type fakeRestorer struct{ restored []string }

func (f *fakeRestorer) Restore(_ context.Context, id string, _ backup.RestoreOptions) (*models.RestorePoint, error) {
	f.restored = append(f.restored, id)
	return &models.RestorePoint{ID: "rp-1", BackupID: id, DataIntegrity: true}, nil
}

func newPlanner(t *testing.T, scripts script.Runner, builtins Builtins) (*Planner, *catalog.Memory) {
	t.Helper()
	cat := catalog.NewMemory()
	return New(Config{StepTimeout: time.Second}, cat, scripts, builtins, nil), cat
}

func TestTestPlanEmptyPlan(t *testing.T) {
	p, _ := newPlanner(t, nil, Builtins{})
	ctx := context.Background()

	plan, err := p.CreatePlan(ctx, models.PlanSpec{Name: "empty", Priority: models.PriorityLow})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	res, err := p.TestPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("TestPlan: %v", err)
	}
	if !res.Success {
		t.Error("empty plan drill should succeed")
	}
	if res.Issues == nil || len(res.Issues) != 0 {
		t.Errorf("Issues = %#v, want empty non-nil slice", res.Issues)
	}

	stored, err := p.Get(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.LastTested == nil {
		t.Error("LastTested not set")
	}
	if len(stored.TestHistory) != 1 || stored.TestHistory[0].ID != res.ID {
		t.Errorf("history = %+v", stored.TestHistory)
	}
}

func TestTestPlanNotFound(t *testing.T) {
	p, _ := newPlanner(t, nil, Builtins{})
	if _, err := p.TestPlan(context.Background(), "missing"); !errors.Is(err, models.ErrPlanNotFound) {
		t.Errorf("err = %v, want ErrPlanNotFound", err)
	}
}

func TestCreatePlanRejectsInvalid(t *testing.T) {
	p, _ := newPlanner(t, nil, Builtins{})
	tests := []struct {
		name string
		spec models.PlanSpec
	}{
		{"missing name", models.PlanSpec{Priority: models.PriorityHigh}},
		{"bad priority", models.PlanSpec{Name: "x", Priority: "urgent"}},
		{"automated without script", models.PlanSpec{Name: "x", Priority: models.PriorityHigh, Steps: []models.RecoveryStep{
			{ID: "a", Title: "A", Automated: true},
		}}},
		{"cycle", models.PlanSpec{Name: "x", Priority: models.PriorityHigh, Steps: []models.RecoveryStep{
			{ID: "a", Title: "A", Dependencies: []string{"b"}},
			{ID: "b", Title: "B", Dependencies: []string{"a"}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.CreatePlan(context.Background(), tt.spec); !errors.Is(err, models.ErrPlanInvalid) {
				t.Errorf("err = %v, want ErrPlanInvalid", err)
			}
		})
	}
}

func TestTestPlanRespectsDependencies(t *testing.T) {
	scripts := &fakeScripts{}
	p, _ := newPlanner(t, scripts, Builtins{})
	ctx := context.Background()

	plan, err := p.CreatePlan(ctx, models.PlanSpec{
		Name:     "ordered",
		Priority: models.PriorityHigh,
		Steps: []models.RecoveryStep{
			{ID: "verify", Order: 0, Title: "Verify", Automated: true, Script: "verify.sh", Dependencies: []string{"restore"}},
			{ID: "restore", Order: 1, Title: "Restore", Automated: true, Script: "restore.sh", Dependencies: []string{"provision"}},
			{ID: "provision", Order: 2, Title: "Provision", Automated: true, Script: "provision.sh"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	res, err := p.TestPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("TestPlan: %v", err)
	}
	if !res.Success {
		t.Errorf("drill failed: %v", res.Issues)
	}

	want := []string{"provision.sh", "restore.sh", "verify.sh"}
	got := scripts.Ran()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("run order = %v, want %v", got, want)
	}
	for _, o := range res.Steps {
		if o.Status != models.StepPassed {
			t.Errorf("step %s status = %s", o.StepID, o.Status)
		}
	}
}

func TestTestPlanSkipsDependentsOfFailedStep(t *testing.T) {
	scripts := &fakeScripts{
		results: map[string]*script.Result{
			"restore.sh": {Issues: []string{"ISSUE database did not start"}, ExitCode: 1},
		},
	}
	p, cat := newPlanner(t, scripts, Builtins{})
	ctx := context.Background()

	plan, err := p.CreatePlan(ctx, models.PlanSpec{
		Name:     "partial",
		Priority: models.PriorityCritical,
		Contacts: []string{"oncall@example.com"},
		Steps: []models.RecoveryStep{
			{ID: "restore", Title: "Restore", Automated: true, Script: "restore.sh"},
			{ID: "verify", Title: "Verify", Automated: true, Script: "verify.sh", Dependencies: []string{"restore"}},
			{ID: "announce", Title: "Announce", Order: 5},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	res, err := p.TestPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("TestPlan: %v", err)
	}
	if res.Success {
		t.Fatal("drill should report issues")
	}

	status := make(map[string]string)
	for _, o := range res.Steps {
		status[o.StepID] = o.Status
	}
	if status["restore"] != models.StepFailed {
		t.Errorf("restore = %s, want failed", status["restore"])
	}
	if status["verify"] != models.StepSkipped {
		t.Errorf("verify = %s, want skipped", status["verify"])
	}
	if status["announce"] != models.StepCheckpoint {
		t.Errorf("announce = %s, want manual checkpoint", status["announce"])
	}
	for _, h := range scripts.Ran() {
		if h == "verify.sh" {
			t.Error("verify.sh ran although its dependency failed")
		}
	}
	if len(res.Issues) != 2 {
		t.Errorf("issues = %v, want restore issue and verify skip", res.Issues)
	}
	if !containsSubstring(res.Recommendations, "announce") {
		t.Errorf("recommendations %v should mention the manual step", res.Recommendations)
	}

	stored, _ := cat.GetPlan(ctx, plan.ID)
	if stored.LastTested == nil || len(stored.TestHistory) != 1 || stored.TestHistory[0].Success {
		t.Errorf("history not recorded correctly: %+v", stored.TestHistory)
	}
}

func TestTestPlanScriptErrorIsIssue(t *testing.T) {
	scripts := &fakeScripts{errs: map[string]error{"gone.sh": script.ErrScriptNotFound}}
	p, _ := newPlanner(t, scripts, Builtins{})
	ctx := context.Background()

	plan, err := p.CreatePlan(ctx, models.PlanSpec{
		Name:     "missing-script",
		Priority: models.PriorityMedium,
		Steps: []models.RecoveryStep{
			{ID: "a", Title: "A", Automated: true, Script: "gone.sh"},
			{ID: "b", Title: "B", Automated: true, Script: "fine.sh"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	res, err := p.TestPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("TestPlan: %v", err)
	}
	if res.Success || len(res.Issues) != 1 {
		t.Fatalf("issues = %v, want exactly one", res.Issues)
	}
	if !strings.Contains(res.Issues[0], models.ErrStepExecutionFailed.Error()) {
		t.Errorf("issue %q should name the step failure", res.Issues[0])
	}
	if len(scripts.Ran()) != 2 {
		t.Errorf("independent step should still run, ran %v", scripts.Ran())
	}
}

func TestTestPlanStepDeadline(t *testing.T) {
	scripts := &fakeScripts{block: map[string]bool{"hang.sh": true}}
	cat := catalog.NewMemory()
	p := New(Config{StepTimeout: 50 * time.Millisecond}, cat, scripts, Builtins{}, nil)
	ctx := context.Background()

	plan, err := p.CreatePlan(ctx, models.PlanSpec{
		Name:     "slow",
		Priority: models.PriorityLow,
		Steps:    []models.RecoveryStep{{ID: "hang", Title: "Hang", Automated: true, Script: "hang.sh"}},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	done := make(chan *models.TestResult, 1)
	go func() {
		res, err := p.TestPlan(ctx, plan.ID)
		if err != nil {
			t.Errorf("TestPlan: %v", err)
		}
		done <- res
	}()

	select {
	case res := <-done:
		if res == nil || res.Success {
			t.Fatalf("hung step should be reported, got %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("drill did not honour the step deadline")
	}
}

func TestTestPlanBuiltins(t *testing.T) {
	backups := &fakeBackups{}
	restorer := &fakeRestorer{}
	p, cat := newPlanner(t, nil, Builtins{Backups: backups, Verifier: &fakeVerifier{valid: true}, Restorer: restorer})
	ctx := context.Background()

	if err := cat.CreateBackup(ctx, &models.BackupRecord{
		ID: "latest", Kind: models.KindFull, Status: models.StatusCompleted, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	plan, err := p.CreatePlan(ctx, models.PlanSpec{
		Name:       "builtin",
		Priority:   models.PriorityHigh,
		RPOMinutes: 60,
		Steps: []models.RecoveryStep{
			{ID: "backup", Title: "Backup", Automated: true, Script: ActionBackupFull},
			{ID: "verify", Title: "Verify", Automated: true, Script: ActionVerifyLatest, Dependencies: []string{"backup"}},
			{ID: "restore", Title: "Restore", Automated: true, Script: ActionRestoreLatest, Dependencies: []string{"verify"}},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	res, err := p.TestPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("TestPlan: %v", err)
	}
	if !res.Success {
		t.Fatalf("drill issues: %v", res.Issues)
	}
	if backups.calls != 1 {
		t.Errorf("backups = %d, want 1", backups.calls)
	}
	if len(restorer.restored) != 1 || restorer.restored[0] != "latest" {
		t.Errorf("restored = %v", restorer.restored)
	}
	if containsSubstring(res.Recommendations, "RPO") {
		t.Errorf("fresh backup should satisfy RPO, got %v", res.Recommendations)
	}
}

func TestTestPlanBuiltinIssues(t *testing.T) {
	p, _ := newPlanner(t, nil, Builtins{Verifier: &fakeVerifier{valid: false}})
	ctx := context.Background()

	plan, err := p.CreatePlan(ctx, models.PlanSpec{
		Name:       "no-backups",
		Priority:   models.PriorityHigh,
		RPOMinutes: 30,
		Steps: []models.RecoveryStep{
			{ID: "verify", Title: "Verify", Automated: true, Script: ActionVerifyLatest},
			{ID: "restore", Title: "Restore", Automated: true, Script: ActionRestoreLatest},
			{ID: "odd", Title: "Odd", Automated: true, Script: "builtin:teleport"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	res, err := p.TestPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("TestPlan: %v", err)
	}
	if len(res.Issues) != 3 {
		t.Errorf("issues = %v, want one per step", res.Issues)
	}
	if !containsSubstring(res.Recommendations, "RPO") {
		t.Errorf("missing backups should trigger an RPO recommendation, got %v", res.Recommendations)
	}
}

func TestRecommendRTO(t *testing.T) {
	p, _ := newPlanner(t, nil, Builtins{})
	ctx := context.Background()

	plan, err := p.CreatePlan(ctx, models.PlanSpec{
		Name:       "slow-plan",
		Priority:   models.PriorityCritical,
		RTOMinutes: 30,
		Steps: []models.RecoveryStep{
			{ID: "a", Title: "A", EstimatedMinutes: 20},
			{ID: "b", Title: "B", EstimatedMinutes: 25, Dependencies: []string{"a"}},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	res, err := p.TestPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("TestPlan: %v", err)
	}
	if !containsSubstring(res.Recommendations, "estimated recovery time of 45 minutes") {
		t.Errorf("recommendations = %v", res.Recommendations)
	}
	if !containsSubstring(res.Recommendations, "no contacts") {
		t.Errorf("critical plan without contacts should be flagged: %v", res.Recommendations)
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
