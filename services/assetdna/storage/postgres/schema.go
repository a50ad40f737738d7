// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package postgres

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
)

// schemaStatements creates the four logical stores plus the audit trail.
// Statements are idempotent so startup can always run them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS asset_types (
		name          TEXT PRIMARY KEY,
		level         INTEGER NOT NULL,
		can_have_bom  BOOLEAN NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS assets (
		id               UUID PRIMARY KEY,
		urn              TEXT NOT NULL UNIQUE,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		asset_type       TEXT NOT NULL REFERENCES asset_types(name),
		parent_id        UUID REFERENCES assets(id) ON DELETE CASCADE,
		status           TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'inactive', 'deprecated')),
		lifecycle_stage  TEXT NOT NULL DEFAULT '',
		external_id      TEXT NOT NULL DEFAULT '',
		external_system  TEXT NOT NULL DEFAULT '',
		version          TEXT NOT NULL DEFAULT '',
		properties       JSONB NOT NULL DEFAULT '{}',
		tags             JSONB NOT NULL DEFAULT '[]',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL,
		UNIQUE (parent_id, name)
	)`,

	// UNIQUE (parent_id, name) does not cover roots because NULLs never
	// collide; the partial index closes that gap.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assets_root_name
		ON assets (name) WHERE parent_id IS NULL`,

	`CREATE INDEX IF NOT EXISTS idx_assets_parent ON assets (parent_id)`,

	`CREATE TABLE IF NOT EXISTS bom_snapshots (
		id             UUID PRIMARY KEY,
		asset_id       UUID NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		seq            BIGSERIAL,
		taken_at       TIMESTAMPTZ NOT NULL,
		bom_version    TEXT NOT NULL DEFAULT '',
		format         TEXT NOT NULL DEFAULT '',
		source         TEXT NOT NULL DEFAULT '',
		import_method  TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL,
		UNIQUE (asset_id, taken_at)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bom_snapshots_asset_taken
		ON bom_snapshots (asset_id, taken_at, seq)`,

	`CREATE TABLE IF NOT EXISTS bom_items (
		snapshot_id   UUID NOT NULL REFERENCES bom_snapshots(id) ON DELETE CASCADE,
		position      INTEGER NOT NULL,
		component_id  TEXT NOT NULL,
		component_name TEXT NOT NULL DEFAULT '',
		slot          TEXT NOT NULL DEFAULT '',
		quantity      INTEGER NOT NULL CHECK (quantity >= 1),
		version       TEXT NOT NULL DEFAULT '',
		properties    JSONB NOT NULL DEFAULT '{}',
		PRIMARY KEY (snapshot_id, position),
		UNIQUE (snapshot_id, component_id, slot)
	)`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		id           UUID PRIMARY KEY,
		entity_type  TEXT NOT NULL,
		entity_id    UUID NOT NULL,
		action       TEXT NOT NULL,
		old_values   JSONB,
		new_values   JSONB,
		summary      TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_events_entity
		ON audit_events (entity_id, created_at DESC)`,
}

// ensureSchema creates tables and seeds the fixed taxonomy.
func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	for _, t := range asset.AllTypes() {
		_, err := s.q.Exec(ctx,
			`INSERT INTO asset_types (name, level, can_have_bom)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO UPDATE SET level = $2, can_have_bom = $3`,
			string(t), t.Rank(), t.CanHaveBOM())
		if err != nil {
			return fmt.Errorf("seed asset type %q: %w", t, err)
		}
	}
	return nil
}
