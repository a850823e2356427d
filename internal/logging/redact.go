// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package logging

import "strings"

var secretKeys = map[string]bool{
	"password":       true,
	"secret":         true,
	"secret_key":     true,
	"access_key":     true,
	"encryption_key": true,
	"key":            true,
	"token":          true,
	"nats_url":       true,
}

// Redact masks a secret, keeping four characters at each end of long values.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 12 {
		return "***"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// RedactField masks value when key names a credential. Used when dumping
// effective configuration at startup.
func RedactField(key, value string) string {
	k := strings.ToLower(key)
	if i := strings.LastIndex(k, "."); i >= 0 {
		k = k[i+1:]
	}
	if secretKeys[k] {
		return Redact(value)
	}
	return value
}
