// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package drplan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/lifeboat/internal/models"
)

// ValidateSteps checks that step ids are unique, that every dependency
// names a step of the same plan, and that the dependencies form no cycle.
func ValidateSteps(steps []models.RecoveryStep) error {
	_, err := waves(steps)
	return err
}

// waves groups steps into topological layers. Every step in a wave only
// depends on steps of earlier waves. Inside a wave, steps are ordered by
// Order and then id.
func waves(steps []models.RecoveryStep) ([][]models.RecoveryStep, error) {
	byID := make(map[string]models.RecoveryStep, len(steps))
	for _, s := range steps {
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q: %w", s.ID, models.ErrPlanInvalid)
		}
		byID[s.ID] = s
	}

	indegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))
	for _, s := range steps {
		seen := make(map[string]bool, len(s.Dependencies))
		for _, dep := range s.Dependencies {
			if dep == s.ID {
				return nil, fmt.Errorf("step %q depends on itself: %w", s.ID, models.ErrPlanInvalid)
			}
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("step %q depends on unknown step %q: %w", s.ID, dep, models.ErrPlanInvalid)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			indegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	var ready []models.RecoveryStep
	for _, s := range steps {
		if indegree[s.ID] == 0 {
			ready = append(ready, s)
		}
	}

	out := make([][]models.RecoveryStep, 0)
	placed := 0
	for len(ready) > 0 {
		sortSteps(ready)
		out = append(out, ready)
		placed += len(ready)

		var next []models.RecoveryStep
		for _, s := range ready {
			for _, id := range dependents[s.ID] {
				indegree[id]--
				if indegree[id] == 0 {
					next = append(next, byID[id])
				}
			}
		}
		ready = next
	}

	if placed != len(steps) {
		var stuck []string
		for _, s := range steps {
			if indegree[s.ID] > 0 {
				stuck = append(stuck, s.ID)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("dependency cycle among steps %s: %w", strings.Join(stuck, ", "), models.ErrPlanInvalid)
	}
	return out, nil
}

func sortSteps(steps []models.RecoveryStep) {
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Order != steps[j].Order {
			return steps[i].Order < steps[j].Order
		}
		return steps[i].ID < steps[j].ID
	})
}

// criticalPathMinutes is the longest chain of estimated minutes through
// the dependency graph. steps must already be valid.
func criticalPathMinutes(layers [][]models.RecoveryStep) int {
	finish := make(map[string]int)
	longest := 0
	for _, layer := range layers {
		for _, s := range layer {
			start := 0
			for _, dep := range s.Dependencies {
				start = max(start, finish[dep])
			}
			finish[s.ID] = start + s.EstimatedMinutes
			longest = max(longest, finish[s.ID])
		}
	}
	return longest
}
