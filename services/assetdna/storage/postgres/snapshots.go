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
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
)

const snapshotColumns = `id, asset_id, seq, taken_at, bom_version, format, source,
	import_method, created_at`

// AppendSnapshot implements storage.SnapshotStore.
//
// The snapshot row and its items insert atomically when called inside
// WithTx; standalone appends rely on the (asset_id, taken_at) constraint
// and the caller's per-asset serialization.
func (s *Store) AppendSnapshot(ctx context.Context, sn *asset.BOMSnapshot) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO bom_snapshots (id, asset_id, taken_at, bom_version, format,
			source, import_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`,
		sn.ID, sn.AssetID, sn.TakenAt, sn.Version, sn.Format, sn.Source,
		sn.ImportMethod, sn.CreatedAt).Scan(&sn.Seq)
	if err != nil {
		return translateError(err)
	}

	for i, it := range sn.Items {
		props := it.Properties
		if props == nil {
			props = map[string]any{}
		}
		data, err := json.Marshal(props)
		if err != nil {
			return fmt.Errorf("encode item properties: %w", err)
		}
		_, err = s.q.Exec(ctx, `
			INSERT INTO bom_items (snapshot_id, position, component_id,
				component_name, slot, quantity, version, properties)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sn.ID, i, it.ComponentID, it.Name, it.Slot, it.Quantity, it.Version, data)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

// GetSnapshot implements storage.SnapshotStore.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*asset.BOMSnapshot, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM bom_snapshots WHERE id = $1`, id)
	return s.scanSnapshotWithItems(ctx, row)
}

// LatestSnapshot implements storage.SnapshotStore.
func (s *Store) LatestSnapshot(ctx context.Context, assetID uuid.UUID) (*asset.BOMSnapshot, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+snapshotColumns+` FROM bom_snapshots
		WHERE asset_id = $1
		ORDER BY taken_at DESC, seq DESC
		LIMIT 1`, assetID)
	return s.scanSnapshotWithItems(ctx, row)
}

// LatestBefore implements storage.SnapshotStore.
func (s *Store) LatestBefore(ctx context.Context, assetID uuid.UUID, ts time.Time) (*asset.BOMSnapshot, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+snapshotColumns+` FROM bom_snapshots
		WHERE asset_id = $1 AND taken_at <= $2
		ORDER BY taken_at DESC, seq DESC
		LIMIT 1`, assetID, ts)
	return s.scanSnapshotWithItems(ctx, row)
}

// AllBetween implements storage.SnapshotStore.
func (s *Store) AllBetween(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*asset.BOMSnapshot, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+snapshotColumns+` FROM bom_snapshots
		WHERE asset_id = $1 AND taken_at >= $2 AND taken_at <= $3
		ORDER BY taken_at ASC, seq ASC`, assetID, from, to)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []*asset.BOMSnapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	for _, sn := range out {
		if err := s.loadItems(ctx, sn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListSnapshots implements storage.SnapshotStore.
func (s *Store) ListSnapshots(ctx context.Context, assetID uuid.UUID, limit int) ([]*asset.BOMSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + ` FROM bom_snapshots
		WHERE asset_id = $1
		ORDER BY taken_at DESC, seq DESC`
	args := []any{assetID}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $2"
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []*asset.BOMSnapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	for _, sn := range out {
		if err := s.loadItems(ctx, sn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountSnapshots implements storage.SnapshotStore.
func (s *Store) CountSnapshots(ctx context.Context, since time.Time) (int, error) {
	var n int
	var err error
	if since.IsZero() {
		err = s.q.QueryRow(ctx, `SELECT COUNT(*) FROM bom_snapshots`).Scan(&n)
	} else {
		err = s.q.QueryRow(ctx,
			`SELECT COUNT(*) FROM bom_snapshots WHERE created_at >= $1`, since).Scan(&n)
	}
	return n, translateError(err)
}

// =============================================================================
// Audit Store
// =============================================================================

// AppendEvent implements storage.AuditStore.
func (s *Store) AppendEvent(ctx context.Context, e *asset.AuditEvent) error {
	oldVals, err := marshalNullable(e.OldValues)
	if err != nil {
		return err
	}
	newVals, err := marshalNullable(e.NewValues)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO audit_events (id, entity_type, entity_id, action, old_values,
			new_values, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.EntityType, e.EntityID, string(e.Action), oldVals, newVals,
		e.Summary, e.CreatedAt)
	return translateError(err)
}

// ListEvents implements storage.AuditStore.
func (s *Store) ListEvents(ctx context.Context, entityID uuid.UUID, limit int) ([]*asset.AuditEvent, error) {
	query := `
		SELECT id, entity_type, entity_id, action, old_values, new_values, summary, created_at
		FROM audit_events`
	var args []any
	if entityID != uuid.Nil {
		args = append(args, entityID)
		query += " WHERE entity_id = $1"
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []*asset.AuditEvent
	for rows.Next() {
		var (
			ev               asset.AuditEvent
			action           string
			oldVals, newVals []byte
		)
		if err := rows.Scan(&ev.ID, &ev.EntityType, &ev.EntityID, &action, &oldVals,
			&newVals, &ev.Summary, &ev.CreatedAt); err != nil {
			return nil, translateError(err)
		}
		ev.Action = asset.AuditAction(action)
		if len(oldVals) > 0 {
			if err := json.Unmarshal(oldVals, &ev.OldValues); err != nil {
				return nil, fmt.Errorf("decode old_values: %w", err)
			}
		}
		if len(newVals) > 0 {
			if err := json.Unmarshal(newVals, &ev.NewValues); err != nil {
				return nil, fmt.Errorf("decode new_values: %w", err)
			}
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// =============================================================================
// Helpers
// =============================================================================

func scanSnapshot(row rowScanner) (*asset.BOMSnapshot, error) {
	var sn asset.BOMSnapshot
	err := row.Scan(&sn.ID, &sn.AssetID, &sn.Seq, &sn.TakenAt, &sn.Version,
		&sn.Format, &sn.Source, &sn.ImportMethod, &sn.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &sn, nil
}

func (s *Store) scanSnapshotWithItems(ctx context.Context, row rowScanner) (*asset.BOMSnapshot, error) {
	sn, err := scanSnapshot(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, sn); err != nil {
		return nil, err
	}
	return sn, nil
}

func (s *Store) loadItems(ctx context.Context, sn *asset.BOMSnapshot) error {
	rows, err := s.q.Query(ctx, `
		SELECT component_id, component_name, slot, quantity, version, properties
		FROM bom_items
		WHERE snapshot_id = $1
		ORDER BY position`, sn.ID)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var it asset.BOMItem
		var props []byte
		if err := rows.Scan(&it.ComponentID, &it.Name, &it.Slot, &it.Quantity,
			&it.Version, &props); err != nil {
			return translateError(err)
		}
		if err := json.Unmarshal(props, &it.Properties); err != nil {
			return fmt.Errorf("decode item properties: %w", err)
		}
		sn.Items = append(sn.Items, it)
	}
	return translateError(rows.Err())
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode audit values: %w", err)
	}
	return data, nil
}
