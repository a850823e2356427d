// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package schedule

import (
	"fmt"
	"time"

	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/validation"
)

// ParseTimeOfDay splits "HH:MM".
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	if !validation.IsTimeOfDay(s) {
		return 0, 0, fmt.Errorf("time %q is not HH:MM: %w", s, models.ErrScheduleInvalid)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("time %q: %w", s, models.ErrScheduleInvalid)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the next instant strictly after now at which a schedule
// fires, in now's location.
//
//   - daily: today at hh:mm if still ahead, otherwise tomorrow.
//   - weekly: the next weekday at hh:mm, a week out if today's slot passed.
//   - monthly: the first day of the next calendar month at hh:mm.
func NextRun(freq models.Frequency, timeOfDay string, weekday time.Weekday, now time.Time) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)

	switch freq {
	case models.FrequencyDaily:
		if today.After(now) {
			return today, nil
		}
		return today.AddDate(0, 0, 1), nil

	case models.FrequencyWeekly:
		if weekday < time.Sunday || weekday > time.Saturday {
			return time.Time{}, fmt.Errorf("weekday %d: %w", weekday, models.ErrScheduleInvalid)
		}
		ahead := (int(weekday) - int(now.Weekday()) + 7) % 7
		next := today.AddDate(0, 0, ahead)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil

	case models.FrequencyMonthly:
		return time.Date(now.Year(), now.Month()+1, 1, hour, minute, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("frequency %q: %w", freq, models.ErrScheduleInvalid)
}
