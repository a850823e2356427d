// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/models"
)

// maxChainLength bounds chain walks against corrupt catalogs.
const maxChainLength = 1024

// ResolveChain returns the backups needed to reconstruct id, full base
// first and id last. Every member must be completed.
func ResolveChain(ctx context.Context, cat catalog.Catalog, id string) ([]*models.BackupRecord, error) {
	rec, err := cat.GetBackup(ctx, id)
	if err != nil {
		return nil, err
	}

	chain := []*models.BackupRecord{rec}
	seen := map[string]bool{rec.ID: true}
	for cur := rec; cur.Kind.NeedsBase(); {
		if len(chain) >= maxChainLength {
			return nil, fmt.Errorf("chain for %s exceeds %d links: %w", id, maxChainLength, models.ErrBackupNotRestorable)
		}
		if cur.BaseBackupID == "" || seen[cur.BaseBackupID] {
			return nil, fmt.Errorf("%s %s has no usable base: %w", cur.Kind, cur.ID, models.ErrBaseBackupNotFound)
		}
		base, err := cat.GetBackup(ctx, cur.BaseBackupID)
		if errors.Is(err, models.ErrBackupNotFound) {
			return nil, fmt.Errorf("base %s of %s: %w", cur.BaseBackupID, cur.ID, models.ErrBaseBackupNotFound)
		}
		if err != nil {
			return nil, err
		}
		seen[base.ID] = true
		chain = append(chain, base)
		cur = base
	}

	for _, member := range chain {
		if member.Status != models.StatusCompleted {
			return nil, fmt.Errorf("chain member %s is %s: %w", member.ID, member.Status, models.ErrBackupNotRestorable)
		}
	}

	slices.Reverse(chain)
	return chain, nil
}

func chainIDs(chain []*models.BackupRecord) []string {
	ids := make([]string, len(chain))
	for i, rec := range chain {
		ids[i] = rec.ID
	}
	return ids
}
