// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package changes computes structured BOM diffs across a time window.
//
// # Description
//
// A change report compares exactly two snapshots: the baseline (last known
// state at or before the window start) and the current state at the window
// end. Intermediate snapshots inside the window do not contribute; only the
// net change is reported.
//
// Unchanged items are omitted from reports by default; pass
// IncludeUnchanged to get the full item listing. This is the one
// report-shape policy of the engine and it is applied consistently
// everywhere reports are produced.
//
// # Thread Safety
//
// Engine is read-only over the snapshot store and safe for concurrent use.
// Window timestamps are pinned when the report starts, so a snapshot
// appended mid-computation cannot shift the comparison.
package changes

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/google/uuid"
)

// =============================================================================
// Report Types
// =============================================================================

// Classification labels one BOM item's fate across the window.
type Classification string

const (
	// Added means the item is present only in the current snapshot.
	Added Classification = "added"

	// Removed means the item is present only in the baseline.
	Removed Classification = "removed"

	// Modified means the item is present in both with differing fields.
	Modified Classification = "modified"

	// Unchanged means the item is present in both with no differing field.
	Unchanged Classification = "unchanged"
)

// String returns the string representation of the classification.
func (c Classification) String() string {
	return string(c)
}

// FieldChange is one differing field with its before/after values.
type FieldChange struct {
	Field  string `json:"field"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// ChangeRecord is the diff outcome for one item identity key.
type ChangeRecord struct {
	Key            string         `json:"key"`
	ComponentName  string         `json:"component_name,omitempty"`
	Classification Classification `json:"classification"`

	// Fields is populated for Modified records only.
	Fields []FieldChange `json:"fields,omitempty"`
}

// Summary counts records per classification.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

// Report is a structured diff between the two snapshots bounding a window.
type Report struct {
	AssetID   uuid.UUID `json:"asset_id"`
	AssetName string    `json:"asset_name"`
	AssetURN  string    `json:"asset_urn"`

	// From and To bound the requested window.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// WindowMonths is the requested window size.
	WindowMonths int `json:"window_months"`

	// BaselineID and CurrentID identify the compared snapshots. BaselineID
	// is nil when no snapshot existed at the window start (empty baseline).
	BaselineID *uuid.UUID `json:"baseline_snapshot_id,omitempty"`
	CurrentID  *uuid.UUID `json:"current_snapshot_id,omitempty"`

	Changes []ChangeRecord `json:"changes"`
	Summary Summary        `json:"summary"`
}

// =============================================================================
// Engine
// =============================================================================

// Options adjusts report shape.
type Options struct {
	// IncludeUnchanged lists Unchanged items in the report.
	// Default: false (Unchanged entries are counted but omitted).
	IncludeUnchanged bool
}

// Engine computes change reports.
type Engine struct {
	assets    storage.AssetStore
	snapshots storage.SnapshotStore
	now       func() time.Time
}

// NewEngine creates an Engine over the given stores.
func NewEngine(assets storage.AssetStore, snapshots storage.SnapshotStore) *Engine {
	return &Engine{assets: assets, snapshots: snapshots, now: time.Now}
}

// windowDays converts a month count the way import windows are specified:
// months are 30-day periods, not calendar months.
const windowDays = 30

// Report computes the net BOM change over the trailing window.
//
// # Description
//
// `to` is the asset's latest snapshot timestamp (current time when the
// asset has no snapshots); `from` is `to` minus months×30 days. The
// baseline is the last snapshot at or before `from` (the empty item set
// when none exists); the current state is the last snapshot at or before
// `to`. The diff covers exactly those two snapshots.
//
// Inputs:
//
//	ctx - Request context.
//	assetID - The asset to report on.
//	months - Window size in 30-day months; must be >= 1.
//	opts - Report shape options.
//
// Outputs:
//
//	*Report - The change report. When baseline and current are the same
//	          snapshot the report carries no Added/Removed/Modified entries.
//	error - storage.ErrNotFound for unknown assets, or a store failure.
func (e *Engine) Report(ctx context.Context, assetID uuid.UUID, months int, opts Options) (*Report, error) {
	if months < 1 {
		return nil, fmt.Errorf("window must be at least one month, got %d", months)
	}

	a, err := e.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	// Pin the window before reading snapshots; appends racing this report
	// land after `to` and are ignored.
	to := e.now().UTC()
	if latest, err := e.snapshots.LatestSnapshot(ctx, assetID); err == nil {
		to = latest.TakenAt
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	from := to.Add(-time.Duration(months) * windowDays * 24 * time.Hour)

	baseline, err := e.snapshotAt(ctx, assetID, from)
	if err != nil {
		return nil, err
	}
	current, err := e.snapshotAt(ctx, assetID, to)
	if err != nil {
		return nil, err
	}

	report := &Report{
		AssetID:      a.ID,
		AssetName:    a.Name,
		AssetURN:     a.URN,
		From:         from,
		To:           to,
		WindowMonths: months,
	}
	if baseline != nil {
		id := baseline.ID
		report.BaselineID = &id
	}
	if current != nil {
		id := current.ID
		report.CurrentID = &id
	}

	report.Changes, report.Summary = Diff(baseline, current, opts)
	return report, nil
}

// snapshotAt returns the last snapshot at or before ts, or nil.
func (e *Engine) snapshotAt(ctx context.Context, assetID uuid.UUID, ts time.Time) (*asset.BOMSnapshot, error) {
	sn, err := e.snapshots.LatestBefore(ctx, assetID, ts)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sn, nil
}

// =============================================================================
// Diffing
// =============================================================================

// Diff computes change records between two snapshots keyed by item identity.
//
// Either snapshot may be nil, standing for the empty item set. When both
// point at the same snapshot every item is Unchanged by construction.
func Diff(baseline, current *asset.BOMSnapshot, opts Options) ([]ChangeRecord, Summary) {
	before := itemMap(baseline)
	after := itemMap(current)

	var records []ChangeRecord
	var summary Summary

	keys := make([]string, 0, len(before)+len(after))
	for k := range after {
		keys = append(keys, k)
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		b, inBefore := before[key]
		c, inAfter := after[key]

		switch {
		case inAfter && !inBefore:
			summary.Added++
			records = append(records, ChangeRecord{
				Key: key, ComponentName: c.Name, Classification: Added,
			})
		case inBefore && !inAfter:
			summary.Removed++
			records = append(records, ChangeRecord{
				Key: key, ComponentName: b.Name, Classification: Removed,
			})
		default:
			fields := fieldChanges(b, c)
			if len(fields) > 0 {
				summary.Modified++
				records = append(records, ChangeRecord{
					Key: key, ComponentName: c.Name, Classification: Modified, Fields: fields,
				})
			} else {
				summary.Unchanged++
				if opts.IncludeUnchanged {
					records = append(records, ChangeRecord{
						Key: key, ComponentName: c.Name, Classification: Unchanged,
					})
				}
			}
		}
	}
	return records, summary
}

// fieldChanges lists differing fields between two items with the same key.
func fieldChanges(before, after asset.BOMItem) []FieldChange {
	var fields []FieldChange
	if before.Quantity != after.Quantity {
		fields = append(fields, FieldChange{Field: "quantity", Before: before.Quantity, After: after.Quantity})
	}
	if before.Version != after.Version {
		fields = append(fields, FieldChange{
			Field:  "version",
			Before: nilIfEmpty(before.Version),
			After:  nilIfEmpty(after.Version),
		})
	}
	if !reflect.DeepEqual(normalizeProps(before.Properties), normalizeProps(after.Properties)) {
		fields = append(fields, FieldChange{Field: "properties", Before: before.Properties, After: after.Properties})
	}
	return fields
}

func itemMap(sn *asset.BOMSnapshot) map[string]asset.BOMItem {
	if sn == nil {
		return nil
	}
	m := make(map[string]asset.BOMItem, len(sn.Items))
	for _, it := range sn.Items {
		m[it.Key()] = it
	}
	return m
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeProps treats nil and empty maps as equal.
func normalizeProps(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
