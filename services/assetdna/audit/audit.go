// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit records the append-only trail of create/update/append
// events behind every mutation in the service.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/google/uuid"
)

// Recorder writes audit events through an AuditStore.
//
// Audit failures are logged but never fail the operation being audited;
// the trail is best-effort relative to the primary write, which has
// already committed or will commit in the same transaction.
type Recorder struct {
	store  storage.AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(store storage.AuditStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// Record appends one audit event.
//
// Inputs:
//
//	ctx - Request context.
//	entityType - "asset" or "bom_snapshot".
//	entityID - The entity the event concerns.
//	action - What happened.
//	oldValues, newValues - Optional before/after field maps.
//	summary - Optional human-readable one-liner.
func (r *Recorder) Record(ctx context.Context, entityType string, entityID uuid.UUID,
	action asset.AuditAction, oldValues, newValues map[string]any, summary string) {

	e := &asset.AuditEvent{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
		Summary:    summary,
		CreatedAt:  r.now().UTC(),
	}
	if err := r.store.AppendEvent(ctx, e); err != nil {
		r.logger.Error("failed to append audit event",
			"entity_type", entityType, "entity_id", entityID, "action", action, "error", err)
	}
}

// RecordTo behaves like Record but writes through the given store, so
// events land inside a caller-managed transaction.
func (r *Recorder) RecordTo(ctx context.Context, store storage.AuditStore, entityType string,
	entityID uuid.UUID, action asset.AuditAction, oldValues, newValues map[string]any, summary string) {

	e := &asset.AuditEvent{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
		Summary:    summary,
		CreatedAt:  r.now().UTC(),
	}
	if err := store.AppendEvent(ctx, e); err != nil {
		r.logger.Error("failed to append audit event",
			"entity_type", entityType, "entity_id", entityID, "action", action, "error", err)
	}
}
