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
// Status
// =============================================================================

// Status is the lifecycle status of an asset.
type Status string

const (
	// StatusActive is the default status for new assets.
	StatusActive Status = "active"

	// StatusInactive marks assets that are present but not in use.
	StatusInactive Status = "inactive"

	// StatusDeprecated marks assets scheduled for removal.
	StatusDeprecated Status = "deprecated"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether the status is one of the allowed values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDeprecated:
		return true
	default:
		return false
	}
}

// =============================================================================
// Asset
// =============================================================================

// Asset is a node in the managed infrastructure hierarchy.
//
// # Description
//
// The parent relation is a weak back-reference: the child row owns the tree
// edge via ParentID. Traversal is always a store query, never
// pointer-following, so the model cannot form cyclic object graphs.
//
// ID and URN are immutable once assigned. Name is unique among siblings
// sharing the same parent; uniqueness scope is (ParentID, Name).
type Asset struct {
	// ID is the system-generated identifier. Immutable.
	ID uuid.UUID `json:"id"`

	// URN is deterministically derived from the type and ancestor path.
	// Immutable for a given tree position.
	URN string `json:"urn"`

	// Name is unique among siblings of the same parent.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// Type is the fixed taxonomy type.
	Type Type `json:"asset_type"`

	// ParentID is nil for root assets.
	ParentID *uuid.UUID `json:"parent_id,omitempty"`

	// Status defaults to StatusActive.
	Status Status `json:"status"`

	// LifecycleStage is optional (development, production, maintenance,
	// retired).
	LifecycleStage string `json:"lifecycle_stage,omitempty"`

	// ExternalID is the identifier in a foreign system, if any.
	ExternalID string `json:"external_id,omitempty"`

	// ExternalSystem names the foreign system; defaults to the configured
	// external system when an ExternalID is imported without one.
	ExternalSystem string `json:"external_system,omitempty"`

	// Version is a free-form version string.
	Version string `json:"version,omitempty"`

	// Properties is an arbitrary string-keyed mapping.
	Properties map[string]any `json:"properties,omitempty"`

	// Tags is a set of labels. Order is not significant.
	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether the asset has no parent.
func (a *Asset) IsRoot() bool {
	return a.ParentID == nil
}

// =============================================================================
// Raw Import Records
// =============================================================================

// RawRecord is the decoded shape of one import record.
//
// # Description
//
// The import/export adapter decodes CSV, JSON, or XML into an ordered
// sequence of RawRecords; the hierarchy builder consumes them without
// caring which serialization produced them. Parents are referenced by
// name and records are not guaranteed to arrive parent-first.
type RawRecord struct {
	// Name is required.
	Name string `json:"name"`

	// Type is the raw asset type string, validated against the taxonomy.
	Type string `json:"asset_type"`

	// ParentName is empty for root records.
	ParentName string `json:"parent_name,omitempty"`

	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status,omitempty"`
	LifecycleStage string         `json:"lifecycle_stage,omitempty"`
	ExternalID     string         `json:"external_id,omitempty"`
	ExternalSystem string         `json:"external_system,omitempty"`
	Version        string         `json:"version,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}
