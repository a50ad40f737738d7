// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package asset

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction categorizes audit trail entries.
type AuditAction string

const (
	// AuditCreate records an asset creation.
	AuditCreate AuditAction = "create"

	// AuditUpdate records an asset update.
	AuditUpdate AuditAction = "update"

	// AuditDelete records an explicit asset deletion.
	AuditDelete AuditAction = "delete"

	// AuditMove records a re-parent operation.
	AuditMove AuditAction = "move"

	// AuditCopy records a deep-copy operation.
	AuditCopy AuditAction = "copy"

	// AuditSnapshotAppend records a BOM snapshot append or backfill.
	AuditSnapshotAppend AuditAction = "snapshot_append"
)

// AuditEvent is one append-only audit trail entry.
//
// The trail answers "what changed and when" independently of the
// window-based change report.
type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Action     AuditAction    `json:"action"`
	OldValues  map[string]any `json:"old_values,omitempty"`
	NewValues  map[string]any `json:"new_values,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
