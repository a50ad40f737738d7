// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
)

// =============================================================================
// BOM Requests
// =============================================================================

// UploadBOMRequest is the body for POST /v1/assets/:id/bom.
//
// # Description
//
// Exactly one of Document or Items must be set. Document carries a raw BOM
// document (CycloneDX, SPDX, or a custom components/packages/items layout)
// that the service sniffs and normalizes; Items carries pre-normalized
// entries directly.
//
// TakenAt is the moment the BOM state is asserted valid; it defaults to
// the upload time. Backfill permits a TakenAt earlier than the asset's
// latest snapshot; without it out-of-order uploads are rejected.
type UploadBOMRequest struct {
	TakenAt  *time.Time     `json:"taken_at,omitempty"`
	Version  string         `json:"bom_version,omitempty"`
	Source   string         `json:"source,omitempty"`
	Backfill bool           `json:"backfill,omitempty"`
	Document map[string]any `json:"document,omitempty"`
	Items    []BOMItemInput `json:"items,omitempty" binding:"omitempty,max=5000,dive"`
}

// BOMItemInput is one pre-normalized BOM entry.
type BOMItemInput struct {
	ComponentID string         `json:"component_id" binding:"required"`
	Name        string         `json:"component_name,omitempty"`
	Slot        string         `json:"slot,omitempty"`
	Quantity    int            `json:"quantity,omitempty" binding:"omitempty,min=1"`
	Version     string         `json:"version,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// ToItem converts the input to a domain item, defaulting quantity to 1.
func (i BOMItemInput) ToItem() asset.BOMItem {
	qty := i.Quantity
	if qty == 0 {
		qty = 1
	}
	return asset.BOMItem{
		ComponentID: i.ComponentID,
		Name:        i.Name,
		Slot:        i.Slot,
		Quantity:    qty,
		Version:     i.Version,
		Properties:  i.Properties,
	}
}

// =============================================================================
// BOM Responses
// =============================================================================

// SnapshotResponse is the wire shape of one BOM snapshot.
type SnapshotResponse struct {
	ID           uuid.UUID       `json:"id"`
	AssetID      uuid.UUID       `json:"asset_id"`
	TakenAt      time.Time       `json:"taken_at"`
	Version      string          `json:"bom_version,omitempty"`
	Format       string          `json:"bom_format,omitempty"`
	Source       string          `json:"source,omitempty"`
	ImportMethod string          `json:"import_method,omitempty"`
	TotalItems   int             `json:"total_items"`
	Items        []asset.BOMItem `json:"items,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewSnapshotResponse converts a snapshot. withItems=false produces the
// listing shape: counts only, no item payload.
func NewSnapshotResponse(sn *asset.BOMSnapshot, withItems bool) SnapshotResponse {
	resp := SnapshotResponse{
		ID:           sn.ID,
		AssetID:      sn.AssetID,
		TakenAt:      sn.TakenAt,
		Version:      sn.Version,
		Format:       sn.Format,
		Source:       sn.Source,
		ImportMethod: sn.ImportMethod,
		TotalItems:   len(sn.Items),
		CreatedAt:    sn.CreatedAt,
	}
	if withItems {
		resp.Items = sn.Items
	}
	return resp
}

// SnapshotListResponse is the body for GET /v1/assets/:id/bom/history.
type SnapshotListResponse struct {
	AssetID   uuid.UUID          `json:"asset_id"`
	Total     int                `json:"total"`
	Snapshots []SnapshotResponse `json:"snapshots"`
}
