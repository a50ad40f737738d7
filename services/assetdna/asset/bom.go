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

// =============================================================================
// BOM Snapshots
// =============================================================================

// BOMSnapshot is an immutable, timestamped full BOM state for one asset.
//
// # Description
//
// A snapshot is a full replacement of the asset's BOM as of TakenAt, not a
// delta. History is append-only: snapshots are never edited or deleted by
// normal operation; corrections are new snapshots.
type BOMSnapshot struct {
	// ID is the system-generated snapshot identifier.
	ID uuid.UUID `json:"id"`

	// AssetID is the owning asset.
	AssetID uuid.UUID `json:"asset_id"`

	// TakenAt is the moment the BOM state is asserted to be valid.
	TakenAt time.Time `json:"taken_at"`

	// Seq is the store-assigned insertion sequence, used to break
	// timestamp ties in chronological ordering.
	Seq int64 `json:"seq"`

	// Version is the free-form BOM version label (e.g. "2.1").
	Version string `json:"bom_version,omitempty"`

	// Format records the source document format (CycloneDX, SPDX, custom).
	Format string `json:"bom_format,omitempty"`

	// Source records where this BOM came from.
	Source string `json:"source,omitempty"`

	// ImportMethod is how the snapshot arrived (api, file_upload, backfill).
	ImportMethod string `json:"import_method,omitempty"`

	// Items is the ordered itemized BOM. Item identity keys are unique
	// within a snapshot.
	Items []BOMItem `json:"items"`

	CreatedAt time.Time `json:"created_at"`
}

// BOMItem is a single entry in a BOM snapshot.
type BOMItem struct {
	// ComponentID is the referenced component asset's identifier, or a
	// stable external part identifier when the component is not itself a
	// tracked asset.
	ComponentID string `json:"component_id"`

	// Name is the human-readable component name.
	Name string `json:"component_name,omitempty"`

	// Slot is the position designator, used when the same component can
	// appear more than once. Empty when unused.
	Slot string `json:"slot,omitempty"`

	// Quantity must be >= 1.
	Quantity int `json:"quantity"`

	// Version is an optional component version string.
	Version string `json:"version,omitempty"`

	// Properties is an arbitrary string-keyed mapping.
	Properties map[string]any `json:"properties,omitempty"`
}

// Key returns the item's identity key within a snapshot.
//
// The key combines ComponentID and Slot; two items with the same component
// in different slots are distinct entries.
func (i BOMItem) Key() string {
	if i.Slot == "" {
		return i.ComponentID
	}
	return i.ComponentID + "@" + i.Slot
}
