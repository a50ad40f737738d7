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
	"strings"

	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

const assetColumns = `id, urn, name, description, asset_type, parent_id, status,
	lifecycle_stage, external_id, external_system, version, properties, tags,
	created_at, updated_at`

// CreateAsset implements storage.AssetStore.
func (s *Store) CreateAsset(ctx context.Context, a *asset.Asset) error {
	props, tags, err := marshalAssetJSON(a)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.URN, a.Name, a.Description, string(a.Type), a.ParentID, string(a.Status),
		a.LifecycleStage, a.ExternalID, a.ExternalSystem, a.Version, props, tags,
		a.CreatedAt, a.UpdatedAt)
	return translateError(err)
}

// UpdateAsset implements storage.AssetStore.
func (s *Store) UpdateAsset(ctx context.Context, a *asset.Asset) error {
	props, tags, err := marshalAssetJSON(a)
	if err != nil {
		return err
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE assets SET urn = $2, name = $3, description = $4, asset_type = $5,
			parent_id = $6, status = $7, lifecycle_stage = $8, external_id = $9,
			external_system = $10, version = $11, properties = $12, tags = $13,
			updated_at = $14
		WHERE id = $1`,
		a.ID, a.URN, a.Name, a.Description, string(a.Type), a.ParentID, string(a.Status),
		a.LifecycleStage, a.ExternalID, a.ExternalSystem, a.Version, props, tags,
		a.UpdatedAt)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetAsset implements storage.AssetStore.
func (s *Store) GetAsset(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	row := s.q.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	return scanAsset(row)
}

// FindByParentAndName implements storage.AssetStore.
func (s *Store) FindByParentAndName(ctx context.Context, parentID *uuid.UUID, name string) (*asset.Asset, error) {
	var row rowScanner
	if parentID == nil {
		row = s.q.QueryRow(ctx,
			`SELECT `+assetColumns+` FROM assets WHERE parent_id IS NULL AND name = $1`, name)
	} else {
		row = s.q.QueryRow(ctx,
			`SELECT `+assetColumns+` FROM assets WHERE parent_id = $1 AND name = $2`, *parentID, name)
	}
	return scanAsset(row)
}

// FindByName implements storage.AssetStore.
func (s *Store) FindByName(ctx context.Context, name string) ([]*asset.Asset, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE name = $1 ORDER BY name, id`, name)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return scanAssets(rows)
}

// ListAssets implements storage.AssetStore.
func (s *Store) ListAssets(ctx context.Context, f storage.AssetFilter) ([]*asset.Asset, error) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Type != "" {
		add("asset_type = $%d", string(f.Type))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.HasParentFilter {
		if f.ParentID == nil {
			conds = append(conds, "parent_id IS NULL")
		} else {
			add("parent_id = $%d", *f.ParentID)
		}
	}
	if f.NameContains != "" {
		add("name ILIKE $%d", "%"+f.NameContains+"%")
	}

	query := `SELECT ` + assetColumns + ` FROM assets`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return scanAssets(rows)
}

// ListChildren implements storage.AssetStore.
func (s *Store) ListChildren(ctx context.Context, parentID *uuid.UUID) ([]*asset.Asset, error) {
	f := storage.AssetFilter{ParentID: parentID, HasParentFilter: true}
	return s.ListAssets(ctx, f)
}

// HasChildren implements storage.AssetStore.
func (s *Store) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assets WHERE parent_id = $1)`, id).Scan(&exists)
	return exists, translateError(err)
}

// DeleteAsset implements storage.AssetStore.
func (s *Store) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountAssets implements storage.AssetStore.
func (s *Store) CountAssets(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n)
	return n, translateError(err)
}

// =============================================================================
// Scanning
// =============================================================================

// rowScanner is the subset of pgx.Row used by the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*asset.Asset, error) {
	var (
		a           asset.Asset
		typ, status string
		props, tags []byte
	)
	err := row.Scan(&a.ID, &a.URN, &a.Name, &a.Description, &typ, &a.ParentID, &status,
		&a.LifecycleStage, &a.ExternalID, &a.ExternalSystem, &a.Version, &props, &tags,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	a.Type = asset.Type(typ)
	a.Status = asset.Status(status)
	if err := json.Unmarshal(props, &a.Properties); err != nil {
		return nil, fmt.Errorf("decode properties for %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(tags, &a.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", a.ID, err)
	}
	return &a, nil
}

func scanAssets(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*asset.Asset, error) {
	var out []*asset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func marshalAssetJSON(a *asset.Asset) (props, tags []byte, err error) {
	p := a.Properties
	if p == nil {
		p = map[string]any{}
	}
	t := a.Tags
	if t == nil {
		t = []string{}
	}
	props, err = json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("encode properties: %w", err)
	}
	tags, err = json.Marshal(t)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tags: %w", err)
	}
	return props, tags, nil
}
