// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage defines the persistence boundary for AssetDNA.
//
// # Description
//
// Three backends implement the Store interface as part of the tiered
// persistence model:
//
//	Memory (tests, lightweight mode) → BadgerDB (embedded local) → Postgres (authoritative)
//
// All reads and writes against assets, BOM snapshots, and audit events go
// through these interfaces. Batch ingestion runs inside WithTx so that a
// batch-fatal failure leaves nothing persisted.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. The Store handed to a
// WithTx callback is only valid for the duration of the callback.
package storage

import (
	"context"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/google/uuid"
)

// =============================================================================
// Filters
// =============================================================================

// AssetFilter narrows ListAssets results. Zero-value fields are ignored.
type AssetFilter struct {
	// Type filters by exact asset type.
	Type asset.Type

	// Status filters by exact status.
	Status asset.Status

	// ParentID filters by parent. Use HasParentFilter to distinguish
	// "no filter" from "roots only" (ParentID nil with HasParentFilter set).
	ParentID        *uuid.UUID
	HasParentFilter bool

	// NameContains filters by case-insensitive substring match on name.
	NameContains string

	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// =============================================================================
// Interfaces
// =============================================================================

// AssetStore persists the asset tree.
type AssetStore interface {
	// CreateAsset inserts a new asset row. Returns ErrConflict when the
	// (parent, name) pair or URN is already taken.
	CreateAsset(ctx context.Context, a *asset.Asset) error

	// UpdateAsset rewrites an existing asset row. Returns ErrNotFound when
	// the ID is unknown.
	UpdateAsset(ctx context.Context, a *asset.Asset) error

	// GetAsset returns the asset by ID, or ErrNotFound.
	GetAsset(ctx context.Context, id uuid.UUID) (*asset.Asset, error)

	// FindByParentAndName returns the asset matching the sibling-uniqueness
	// scope (parent_id, name), or ErrNotFound. parentID nil matches roots.
	FindByParentAndName(ctx context.Context, parentID *uuid.UUID, name string) (*asset.Asset, error)

	// FindByName returns every asset with the given name, anywhere in the
	// tree. Used for parent lookups that must detect ambiguity.
	FindByName(ctx context.Context, name string) ([]*asset.Asset, error)

	// ListAssets returns assets matching the filter, ordered by name.
	ListAssets(ctx context.Context, f AssetFilter) ([]*asset.Asset, error)

	// ListChildren returns the direct children of parentID ordered by name.
	// parentID nil returns root assets.
	ListChildren(ctx context.Context, parentID *uuid.UUID) ([]*asset.Asset, error)

	// HasChildren reports whether any asset references id as its parent.
	HasChildren(ctx context.Context, id uuid.UUID) (bool, error)

	// DeleteAsset removes the asset row. The caller is responsible for
	// refusing deletion of assets with children.
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	// CountAssets returns the total number of assets.
	CountAssets(ctx context.Context) (int, error)
}

// SnapshotStore persists append-only BOM history.
type SnapshotStore interface {
	// AppendSnapshot inserts a snapshot and assigns its insertion sequence.
	// Returns ErrConflict when a snapshot with the same (asset, taken_at)
	// already exists.
	AppendSnapshot(ctx context.Context, s *asset.BOMSnapshot) error

	// GetSnapshot returns a snapshot by ID, or ErrNotFound.
	GetSnapshot(ctx context.Context, id uuid.UUID) (*asset.BOMSnapshot, error)

	// LatestSnapshot returns the snapshot with the greatest (taken_at, seq)
	// for the asset, or ErrNotFound when the asset has none.
	LatestSnapshot(ctx context.Context, assetID uuid.UUID) (*asset.BOMSnapshot, error)

	// LatestBefore returns the most recent snapshot with taken_at <= ts,
	// or ErrNotFound.
	LatestBefore(ctx context.Context, assetID uuid.UUID, ts time.Time) (*asset.BOMSnapshot, error)

	// AllBetween returns snapshots with from <= taken_at <= to, ordered by
	// taken_at ascending, ties broken by insertion sequence.
	AllBetween(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*asset.BOMSnapshot, error)

	// ListSnapshots returns the asset's snapshots newest first, capped at
	// limit (zero means no cap).
	ListSnapshots(ctx context.Context, assetID uuid.UUID, limit int) ([]*asset.BOMSnapshot, error)

	// CountSnapshots returns the total snapshot count, and the count of
	// snapshots created at or after since when since is non-zero.
	CountSnapshots(ctx context.Context, since time.Time) (int, error)
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	// AppendEvent inserts an audit event.
	AppendEvent(ctx context.Context, e *asset.AuditEvent) error

	// ListEvents returns events for an entity newest first, capped at limit
	// (zero means no cap). A zero entityID returns events for all entities.
	ListEvents(ctx context.Context, entityID uuid.UUID, limit int) ([]*asset.AuditEvent, error)
}

// Store is the full persistence surface.
type Store interface {
	AssetStore
	SnapshotStore
	AuditStore

	// WithTx runs fn inside a single transaction. The Store passed to fn
	// shares the outer store's data but buffers writes until fn returns
	// nil; a non-nil error rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
