// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bom maintains the append-only BOM snapshot history per asset.
//
// # Description
//
// A snapshot is a full itemized BOM as of a timestamp, never a delta.
// Append is the only mutation; snapshots are immutable once written and
// history is never edited or deleted by normal operation. Corrections for
// past dates go through Backfill, an explicit separate operation.
//
// # Thread Safety
//
// Safe for concurrent use. Appends for the same asset are serialized by a
// striped lock keyed on the asset ID so the monotonic-timestamp invariant
// holds under concurrency; appends for different assets normally proceed in
// parallel.
package bom

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/audit"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/google/uuid"
)

// Sentinel errors for the bom package.
var (
	// ErrDuplicateItem is returned when two items in one snapshot share an
	// identity key.
	ErrDuplicateItem = errors.New("duplicate BOM item identity key")

	// ErrNonMonotonic is returned when an appended snapshot's timestamp is
	// not strictly after the asset's latest snapshot.
	ErrNonMonotonic = errors.New("snapshot timestamp not after latest snapshot")

	// ErrNotLeaf is returned when the target asset has child assets; BOMs
	// attach to leaf-level assets only.
	ErrNotLeaf = errors.New("asset has children; BOM snapshots attach to leaf assets")

	// ErrNoBOMCapability is returned when the asset's type does not carry
	// a BOM (structural levels above Configuration Item).
	ErrNoBOMCapability = errors.New("asset type does not carry a BOM")

	// ErrInvalidQuantity is returned when an item quantity is below 1.
	ErrInvalidQuantity = errors.New("BOM item quantity must be >= 1")
)

// DuplicateItemError names the offending identity key.
type DuplicateItemError struct {
	Key string
}

// Error returns the duplicate description.
func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("duplicate BOM item identity key %q", e.Key)
}

// Unwrap returns ErrDuplicateItem so callers can use errors.Is.
func (e *DuplicateItemError) Unwrap() error {
	return ErrDuplicateItem
}

// =============================================================================
// Service
// =============================================================================

// Meta carries optional snapshot metadata through Append and Backfill.
type Meta struct {
	Version      string
	Format       string
	Source       string
	ImportMethod string
}

// appendLockStripes bounds the append-lock memory to a fixed stripe array
// regardless of how many assets are ever touched. UUIDs hash uniformly, so
// two assets sharing a stripe merely serialize against each other.
const appendLockStripes = 64

// Service coordinates snapshot appends and reads.
type Service struct {
	store    storage.Store
	recorder *audit.Recorder
	logger   *slog.Logger
	now      func() time.Time

	locks [appendLockStripes]sync.Mutex
}

// NewService creates a snapshot Service.
func NewService(store storage.Store, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// assetLock returns the append-lock stripe serializing this asset.
func (s *Service) assetLock(assetID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(assetID[:])
	return &s.locks[h.Sum32()%appendLockStripes]
}

// Append records a new snapshot for an asset.
//
// # Description
//
// Validates that the asset exists, carries a BOM (rank 5+ type, no
// children), that item identity keys are unique, and that the timestamp is
// strictly after the asset's latest snapshot. The append is a single-row
// insert; concurrent appends for the same asset are serialized.
//
// Inputs:
//
//	ctx - Request context.
//	assetID - The owning asset.
//	ts - The moment the BOM state is asserted to be valid.
//	items - The full itemized BOM; replaces, never amends.
//	meta - Optional snapshot metadata.
//
// Outputs:
//
//	uuid.UUID - The new snapshot's ID.
//	error - storage.ErrNotFound, ErrNoBOMCapability, ErrNotLeaf,
//	        ErrDuplicateItem, ErrInvalidQuantity, or ErrNonMonotonic.
func (s *Service) Append(ctx context.Context, assetID uuid.UUID, ts time.Time,
	items []asset.BOMItem, meta Meta) (uuid.UUID, error) {
	return s.append(ctx, assetID, ts, items, meta, false)
}

// Backfill inserts a snapshot with a timestamp earlier than the asset's
// latest snapshot.
//
// Out-of-order insertion is never performed by Append; Backfill is the
// explicit path for loading historical BOMs. Exact-timestamp duplicates
// are still rejected.
func (s *Service) Backfill(ctx context.Context, assetID uuid.UUID, ts time.Time,
	items []asset.BOMItem, meta Meta) (uuid.UUID, error) {
	if meta.ImportMethod == "" {
		meta.ImportMethod = "backfill"
	}
	return s.append(ctx, assetID, ts, items, meta, true)
}

func (s *Service) append(ctx context.Context, assetID uuid.UUID, ts time.Time,
	items []asset.BOMItem, meta Meta, backfill bool) (uuid.UUID, error) {

	a, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return uuid.Nil, err
	}
	if !a.Type.CanHaveBOM() {
		return uuid.Nil, fmt.Errorf("%w: %s is %q", ErrNoBOMCapability, a.Name, a.Type)
	}
	hasChildren, err := s.store.HasChildren(ctx, assetID)
	if err != nil {
		return uuid.Nil, err
	}
	if hasChildren {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrNotLeaf, a.Name)
	}
	if err := validateItems(items); err != nil {
		return uuid.Nil, err
	}

	lock := s.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	if !backfill {
		latest, err := s.store.LatestSnapshot(ctx, assetID)
		switch {
		case err == nil:
			if !ts.After(latest.TakenAt) {
				return uuid.Nil, fmt.Errorf("%w: %s is not after %s",
					ErrNonMonotonic, ts.UTC().Format(time.RFC3339), latest.TakenAt.UTC().Format(time.RFC3339))
			}
		case errors.Is(err, storage.ErrNotFound):
			// First snapshot for this asset.
		default:
			return uuid.Nil, err
		}
	}

	sn := &asset.BOMSnapshot{
		ID:           uuid.New(),
		AssetID:      assetID,
		TakenAt:      ts.UTC(),
		Version:      meta.Version,
		Format:       meta.Format,
		Source:       meta.Source,
		ImportMethod: meta.ImportMethod,
		Items:        items,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.AppendSnapshot(ctx, sn); err != nil {
		return uuid.Nil, err
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, "bom_snapshot", sn.ID, asset.AuditSnapshotAppend, nil,
			map[string]any{"asset_id": assetID.String(), "taken_at": sn.TakenAt, "items": len(items)},
			fmt.Sprintf("snapshot for %s", a.Name))
	}

	s.logger.Info("snapshot appended",
		"asset", a.Name, "snapshot_id", sn.ID, "taken_at", sn.TakenAt,
		"items", len(items), "backfill", backfill)
	return sn.ID, nil
}

// validateItems checks quantities and identity-key uniqueness.
func validateItems(items []asset.BOMItem) error {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: %q has quantity %d", ErrInvalidQuantity, it.Key(), it.Quantity)
		}
		if seen[it.Key()] {
			return &DuplicateItemError{Key: it.Key()}
		}
		seen[it.Key()] = true
	}
	return nil
}

// =============================================================================
// Reads
// =============================================================================

// LatestBefore returns the most recent snapshot at or before ts.
func (s *Service) LatestBefore(ctx context.Context, assetID uuid.UUID, ts time.Time) (*asset.BOMSnapshot, error) {
	return s.store.LatestBefore(ctx, assetID, ts)
}

// AllBetween returns the asset's snapshots within [from, to], chronological.
func (s *Service) AllBetween(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*asset.BOMSnapshot, error) {
	return s.store.AllBetween(ctx, assetID, from, to)
}

// History returns the asset's snapshots newest first.
func (s *Service) History(ctx context.Context, assetID uuid.UUID, limit int) ([]*asset.BOMSnapshot, error) {
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, assetID, limit)
}

// Get returns one snapshot by ID, verifying it belongs to the asset.
func (s *Service) Get(ctx context.Context, assetID, snapshotID uuid.UUID) (*asset.BOMSnapshot, error) {
	sn, err := s.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if sn.AssetID != assetID {
		return nil, storage.ErrNotFound
	}
	return sn, nil
}
