// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"fmt"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/storage"
)

// ValidationResult is the detailed outcome of an integrity check.
type ValidationResult struct {
	BackupID         string   `json:"backup_id"`
	Valid            bool     `json:"valid"`
	ExpectedChecksum string   `json:"expected_checksum"`
	ActualChecksum   string   `json:"actual_checksum,omitempty"`
	SizeBytes        int64    `json:"size_bytes"`
	Errors           []string `json:"errors"`
}

// Validator checks stored payloads against catalog checksums.
type Validator struct {
	store storage.Storage
}

// NewValidator returns a Validator that reads payloads from store.
func NewValidator(store storage.Storage) *Validator {
	return &Validator{store: store}
}

// Verify reports whether the stored payload matches rec.Checksum. An
// unreadable payload is not valid.
func (v *Validator) Verify(ctx context.Context, rec *models.BackupRecord) bool {
	return v.Validate(ctx, rec).Valid
}

// Validate reads the payload and compares checksums.
func (v *Validator) Validate(ctx context.Context, rec *models.BackupRecord) *ValidationResult {
	res, _ := v.validate(ctx, rec)
	return res
}

// validate also returns the payload so a restore does not read it twice.
func (v *Validator) validate(ctx context.Context, rec *models.BackupRecord) (*ValidationResult, []byte) {
	result := &ValidationResult{
		BackupID:         rec.ID,
		Valid:            true,
		ExpectedChecksum: rec.Checksum,
		Errors:           make([]string, 0),
	}
	invalid := func(msg string) (*ValidationResult, []byte) {
		result.Valid = false
		result.Errors = append(result.Errors, msg)
		metrics.RecordIntegrityCheck(false)
		logging.Warn().Str("backup_id", rec.ID).Str("reason", msg).Msg("Integrity check failed")
		return result, nil
	}

	if rec.Location == "" {
		return invalid("backup has no stored payload")
	}
	if rec.Checksum == "" {
		return invalid("backup has no recorded checksum")
	}

	payload, err := v.store.Read(ctx, rec.Location)
	if err != nil {
		return invalid(fmt.Sprintf("payload unreadable: %v", err))
	}
	result.ActualChecksum = storage.Checksum(payload)
	result.SizeBytes = int64(len(payload))

	if result.ActualChecksum != rec.Checksum {
		return invalid("checksum mismatch - backup may be corrupted")
	}
	if rec.SizeBytes > 0 && result.SizeBytes != rec.SizeBytes {
		return invalid(fmt.Sprintf("size mismatch: recorded %d, stored %d", rec.SizeBytes, result.SizeBytes))
	}

	metrics.RecordIntegrityCheck(true)
	return result, payload
}
