// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/validation"
)

// maxBodyBytes caps request bodies. Plans with many steps stay well below it.
const maxBodyBytes = 1 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func metadataFor(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp:     time.Now().UTC(),
		CorrelationID: logging.CorrelationIDFromContext(r.Context()),
	}
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: metadataFor(r),
	})
}

// respondList is respondSuccess with the item count in the metadata.
func respondList(w http.ResponseWriter, r *http.Request, data interface{}, total int) {
	meta := metadataFor(r)
	meta.Total = &total
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	respondAPIError(w, r, status, &models.APIError{Code: code, Message: message}, err)
}

func respondAPIError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError, err error) {
	if err != nil {
		ev := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			ev = logging.Ctx(r.Context()).Error()
		}
		ev.Str("code", sanitizeLogValue(apiErr.Code)).
			Str("error", sanitizeLogValue(err.Error())).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: metadataFor(r),
		Error:    apiErr,
	})
}

// respondErr maps a domain error to its code and HTTP status.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		respondError(w, r, http.StatusServiceUnavailable, models.CodeCanceled, "Operation was canceled", err)
		return
	}

	code := models.ErrorCode(err)
	status := statusForCode(code)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		apiErr.Code = code
		respondAPIError(w, r, status, apiErr, err)
		return
	}

	message := err.Error()
	if code == models.CodeInternal {
		message = "Internal server error"
	}
	respondError(w, r, status, code, message, err)
}

func statusForCode(code string) int {
	switch code {
	case models.CodeBackupNotFound, models.CodeBaseBackupNotFound, models.CodeScheduleNotFound,
		models.CodePlanNotFound, models.CodeAlertNotFound, models.CodeRestorePointNotFound:
		return http.StatusNotFound
	case models.CodeValidation, models.CodeScheduleInvalid, models.CodePlanInvalid:
		return http.StatusBadRequest
	case models.CodeBackupNotRestorable, models.CodeInvalidTransition:
		return http.StatusConflict
	case models.CodeIntegrityCheckFailed:
		return http.StatusUnprocessableEntity
	case models.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes.
func validateRequest(v interface{}) *models.APIError {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// decodeJSON reads the request body into dst. An empty body is accepted
// when allowEmpty is set and leaves dst untouched. On failure the error
// response has been written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return true
		}
		respondError(w, r, http.StatusBadRequest, models.CodeValidation, "Invalid request body", err)
		return false
	}
	return true
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, name string, defaultValue int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// getBoolParam extracts a boolean query parameter with a default value
func getBoolParam(r *http.Request, name string, defaultValue bool) bool {
	if v := r.URL.Query().Get(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
