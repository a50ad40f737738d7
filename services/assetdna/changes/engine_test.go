// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package changes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/google/uuid"
)

func snap(assetID uuid.UUID, takenAt time.Time, items ...asset.BOMItem) *asset.BOMSnapshot {
	return &asset.BOMSnapshot{
		ID:        uuid.New(),
		AssetID:   assetID,
		TakenAt:   takenAt,
		Items:     items,
		CreatedAt: takenAt,
	}
}

func item(id string, qty int, version string) asset.BOMItem {
	return asset.BOMItem{ComponentID: id, Name: id, Quantity: qty, Version: version}
}

// seedCI creates a leaf asset and appends the given snapshots directly.
func seedCI(t *testing.T, store *storage.Memory, snaps ...*asset.BOMSnapshot) *asset.Asset {
	t.Helper()
	ctx := context.Background()
	a := &asset.Asset{
		ID:     uuid.New(),
		URN:    "urn:assetdna:hw:alpha/router-1",
		Name:   "Router-1",
		Type:   asset.TypeHardwareCI,
		Status: asset.StatusActive,
	}
	if err := store.CreateAsset(ctx, a); err != nil {
		t.Fatalf("CreateAsset() error: %v", err)
	}
	for _, sn := range snaps {
		sn.AssetID = a.ID
		if err := store.AppendSnapshot(ctx, sn); err != nil {
			t.Fatalf("AppendSnapshot() error: %v", err)
		}
	}
	return a
}

func findRecord(records []ChangeRecord, key string) (ChangeRecord, bool) {
	for _, r := range records {
		if r.Key == key {
			return r, true
		}
	}
	return ChangeRecord{}, false
}

func TestReport_AddedRemovedModified(t *testing.T) {
	store := storage.NewMemory()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	baseline := snap(uuid.Nil, now.Add(-90*24*time.Hour),
		item("cpu", 1, "1.0"),
		item("psu", 2, ""),
		item("fan", 4, ""),
	)
	current := snap(uuid.Nil, now,
		item("cpu", 1, "2.0"), // version bump
		item("psu", 1, ""),    // quantity drop
		item("nic", 1, ""),    // new
	)
	a := seedCI(t, store, baseline, current)

	engine := NewEngine(store, store)
	report, err := engine.Report(context.Background(), a.ID, 2, Options{})
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}

	want := Summary{Added: 1, Removed: 1, Modified: 2}
	if report.Summary != want {
		t.Fatalf("Summary = %+v, want %+v", report.Summary, want)
	}
	if report.BaselineID == nil || *report.BaselineID != baseline.ID {
		t.Errorf("BaselineID = %v, want %v", report.BaselineID, baseline.ID)
	}
	if report.CurrentID == nil || *report.CurrentID != current.ID {
		t.Errorf("CurrentID = %v, want %v", report.CurrentID, current.ID)
	}

	if r, ok := findRecord(report.Changes, "nic"); !ok || r.Classification != Added {
		t.Errorf("nic record = %+v, want added", r)
	}
	if r, ok := findRecord(report.Changes, "fan"); !ok || r.Classification != Removed {
		t.Errorf("fan record = %+v, want removed", r)
	}
	r, ok := findRecord(report.Changes, "cpu")
	if !ok || r.Classification != Modified {
		t.Fatalf("cpu record = %+v, want modified", r)
	}
	if len(r.Fields) != 1 || r.Fields[0].Field != "version" ||
		r.Fields[0].Before != "1.0" || r.Fields[0].After != "2.0" {
		t.Errorf("cpu field change = %+v", r.Fields)
	}
	r, ok = findRecord(report.Changes, "psu")
	if !ok || len(r.Fields) != 1 || r.Fields[0].Field != "quantity" {
		t.Errorf("psu field change = %+v", r.Fields)
	}
}

func TestReport_IncludeUnchanged(t *testing.T) {
	store := storage.NewMemory()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	baseline := snap(uuid.Nil, now.Add(-60*24*time.Hour), item("cpu", 1, "1.0"))
	current := snap(uuid.Nil, now, item("cpu", 1, "1.0"))
	a := seedCI(t, store, baseline, current)

	engine := NewEngine(store, store)

	report, err := engine.Report(context.Background(), a.ID, 1, Options{})
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if report.Summary.Unchanged != 1 || len(report.Changes) != 0 {
		t.Errorf("default report: summary %+v, %d changes", report.Summary, len(report.Changes))
	}

	report, err = engine.Report(context.Background(), a.ID, 1, Options{IncludeUnchanged: true})
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if len(report.Changes) != 1 || report.Changes[0].Classification != Unchanged {
		t.Errorf("IncludeUnchanged report: %+v", report.Changes)
	}
}

func TestReport_EmptyBaseline(t *testing.T) {
	store := storage.NewMemory()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	current := snap(uuid.Nil, now, item("cpu", 1, ""), item("psu", 2, ""))
	a := seedCI(t, store, current)

	engine := NewEngine(store, store)
	report, err := engine.Report(context.Background(), a.ID, 1, Options{})
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if report.BaselineID != nil {
		t.Errorf("BaselineID = %v, want nil", report.BaselineID)
	}
	if report.Summary.Added != 2 || report.Summary.Removed != 0 {
		t.Errorf("Summary = %+v, want all added", report.Summary)
	}
}

func TestReport_IntermediateSnapshotsIgnored(t *testing.T) {
	// Only the snapshots bounding the window contribute; states in between
	// do not show up in the net diff.
	store := storage.NewMemory()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	only := snap(uuid.Nil, now, item("cpu", 1, ""))
	a := seedCI(t, store, only)
	older := snap(a.ID, now.Add(-45*24*time.Hour), item("cpu", 1, ""), item("psu", 1, ""))
	mid := snap(a.ID, now.Add(-15*24*time.Hour), item("cpu", 1, ""), item("gpu", 1, ""))
	for _, sn := range []*asset.BOMSnapshot{older, mid} {
		if err := store.AppendSnapshot(context.Background(), sn); err != nil {
			t.Fatalf("AppendSnapshot() error: %v", err)
		}
	}

	engine := NewEngine(store, store)
	report, err := engine.Report(context.Background(), a.ID, 1, Options{})
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if report.Summary.Removed != 1 {
		t.Errorf("Summary = %+v, want psu removed", report.Summary)
	}
	if report.BaselineID == nil || *report.BaselineID != older.ID {
		t.Errorf("BaselineID = %v, want %v", report.BaselineID, older.ID)
	}
	if _, ok := findRecord(report.Changes, "gpu"); ok {
		t.Error("intermediate-only item gpu must not appear in the diff")
	}
}

func TestReport_WindowAnchoredToLatestSnapshot(t *testing.T) {
	// The window end is the latest snapshot's timestamp, not wall-clock now,
	// so reports stay stable for assets with stale histories.
	store := storage.NewMemory()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	baseline := snap(uuid.Nil, old.Add(-75*24*time.Hour), item("cpu", 1, ""))
	current := snap(uuid.Nil, old, item("cpu", 2, ""))
	a := seedCI(t, store, baseline, current)

	engine := NewEngine(store, store)
	report, err := engine.Report(context.Background(), a.ID, 2, Options{})
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if !report.To.Equal(old) {
		t.Errorf("To = %v, want %v", report.To, old)
	}
	if report.Summary.Modified != 1 {
		t.Errorf("Summary = %+v, want one modified", report.Summary)
	}
}

func TestReport_InvalidWindow(t *testing.T) {
	store := storage.NewMemory()
	a := seedCI(t, store)
	engine := NewEngine(store, store)
	if _, err := engine.Report(context.Background(), a.ID, 0, Options{}); err == nil {
		t.Error("Report() with zero window should fail")
	}
}

func TestReport_UnknownAsset(t *testing.T) {
	store := storage.NewMemory()
	engine := NewEngine(store, store)
	_, err := engine.Report(context.Background(), uuid.New(), 6, Options{})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Report() = %v, want ErrNotFound", err)
	}
}

func TestDiff_NilSnapshots(t *testing.T) {
	records, summary := Diff(nil, nil, Options{})
	if len(records) != 0 || summary != (Summary{}) {
		t.Errorf("Diff(nil, nil) = %v, %+v", records, summary)
	}
}

func TestDiff_PropertiesChange(t *testing.T) {
	before := snap(uuid.New(), time.Now(), asset.BOMItem{
		ComponentID: "cpu", Quantity: 1,
		Properties: map[string]any{"cores": "8"},
	})
	after := snap(before.AssetID, time.Now().Add(time.Hour), asset.BOMItem{
		ComponentID: "cpu", Quantity: 1,
		Properties: map[string]any{"cores": "16"},
	})
	records, summary := Diff(before, after, Options{})
	if summary.Modified != 1 {
		t.Fatalf("Summary = %+v, want one modified", summary)
	}
	if records[0].Fields[0].Field != "properties" {
		t.Errorf("Fields = %+v, want properties change", records[0].Fields)
	}
}

func TestDiff_NilAndEmptyPropertiesEqual(t *testing.T) {
	before := snap(uuid.New(), time.Now(), asset.BOMItem{ComponentID: "cpu", Quantity: 1})
	after := snap(before.AssetID, time.Now().Add(time.Hour), asset.BOMItem{
		ComponentID: "cpu", Quantity: 1, Properties: map[string]any{},
	})
	_, summary := Diff(before, after, Options{})
	if summary.Unchanged != 1 || summary.Modified != 0 {
		t.Errorf("Summary = %+v, want unchanged", summary)
	}
}

func TestDiff_SlotKeysAreDistinct(t *testing.T) {
	before := snap(uuid.New(), time.Now(),
		asset.BOMItem{ComponentID: "psu", Slot: "bay-1", Quantity: 1})
	after := snap(before.AssetID, time.Now().Add(time.Hour),
		asset.BOMItem{ComponentID: "psu", Slot: "bay-2", Quantity: 1})
	_, summary := Diff(before, after, Options{})
	if summary.Added != 1 || summary.Removed != 1 {
		t.Errorf("Summary = %+v, want one added and one removed", summary)
	}
}
