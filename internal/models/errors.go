// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package models

import "errors"

// Error kinds reported by the engine. Components wrap these with context;
// callers match with errors.Is.
var (
	ErrBackupNotFound       = errors.New("backup not found")
	ErrBaseBackupNotFound   = errors.New("base backup not found or not completed")
	ErrBackupCreationFailed = errors.New("backup creation failed")
	ErrBackupNotRestorable  = errors.New("backup is not restorable")
	ErrIntegrityCheckFailed = errors.New("integrity check failed")
	ErrRestoreFailed        = errors.New("restore failed")
	ErrScheduleInvalid      = errors.New("schedule is invalid")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPlanInvalid          = errors.New("plan is invalid")
	ErrStepExecutionFailed  = errors.New("step execution failed")
	ErrAlertNotFound        = errors.New("alert not found")
	ErrRestorePointNotFound = errors.New("restore point not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrValidation           = errors.New("validation failed")
)

// Stable error codes returned by the API.
const (
	CodeBackupNotFound       = "BACKUP_NOT_FOUND"
	CodeBaseBackupNotFound   = "BASE_BACKUP_NOT_FOUND"
	CodeBackupCreationFailed = "BACKUP_CREATION_FAILED"
	CodeBackupNotRestorable  = "BACKUP_NOT_RESTORABLE"
	CodeIntegrityCheckFailed = "INTEGRITY_CHECK_FAILED"
	CodeRestoreFailed        = "RESTORE_FAILED"
	CodeScheduleInvalid      = "SCHEDULE_INVALID"
	CodeScheduleNotFound     = "SCHEDULE_NOT_FOUND"
	CodePlanNotFound         = "PLAN_NOT_FOUND"
	CodePlanInvalid          = "PLAN_INVALID"
	CodeStepExecutionFailed  = "STEP_EXECUTION_FAILED"
	CodeAlertNotFound        = "ALERT_NOT_FOUND"
	CodeRestorePointNotFound = "RESTORE_POINT_NOT_FOUND"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeStorageUnavailable   = "STORAGE_UNAVAILABLE"
	CodeValidation           = "VALIDATION_ERROR"
	CodeCanceled             = "CANCELED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Order matters: more specific kinds are checked first so a base lookup
// failure is not reported as a plain not-found.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrBaseBackupNotFound, CodeBaseBackupNotFound},
	{ErrBackupNotFound, CodeBackupNotFound},
	{ErrIntegrityCheckFailed, CodeIntegrityCheckFailed},
	{ErrBackupNotRestorable, CodeBackupNotRestorable},
	{ErrBackupCreationFailed, CodeBackupCreationFailed},
	{ErrRestoreFailed, CodeRestoreFailed},
	{ErrScheduleInvalid, CodeScheduleInvalid},
	{ErrScheduleNotFound, CodeScheduleNotFound},
	{ErrPlanNotFound, CodePlanNotFound},
	{ErrPlanInvalid, CodePlanInvalid},
	{ErrStepExecutionFailed, CodeStepExecutionFailed},
	{ErrAlertNotFound, CodeAlertNotFound},
	{ErrRestorePointNotFound, CodeRestorePointNotFound},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrStorageUnavailable, CodeStorageUnavailable},
	{ErrValidation, CodeValidation},
}

// ErrorCode maps err to its stable code. Unknown errors map to
// INTERNAL_ERROR.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
