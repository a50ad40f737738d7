// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hierarchy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

func newTestBuilder(store storage.Store) *Builder {
	return NewBuilder(store, "", nil, nil)
}

func sampleBatch() []asset.RawRecord {
	return []asset.RawRecord{
		{Name: "Alpha", Type: string(asset.TypeSystem)},
		{Name: "Routing", Type: string(asset.TypeSubsystem), ParentName: "Alpha"},
		{Name: "Router-1", Type: string(asset.TypeHardwareCI), ParentName: "Routing"},
	}
}

func TestIngest_OrderIndependence(t *testing.T) {
	ctx := context.Background()

	// Children listed before their parents must still resolve.
	orderings := map[string][]asset.RawRecord{
		"parent first": sampleBatch(),
		"child first": {
			{Name: "Router-1", Type: string(asset.TypeHardwareCI), ParentName: "Routing"},
			{Name: "Routing", Type: string(asset.TypeSubsystem), ParentName: "Alpha"},
			{Name: "Alpha", Type: string(asset.TypeSystem)},
		},
	}

	urns := map[string]map[string]string{}
	for name, batch := range orderings {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemory()
			report, err := newTestBuilder(store).Ingest(ctx, batch)
			if err != nil {
				t.Fatalf("Ingest() error: %v", err)
			}
			if len(report.Created) != 3 || len(report.Failed) != 0 {
				t.Fatalf("created=%d failed=%d, want 3/0", len(report.Created), len(report.Failed))
			}
			got := map[string]string{}
			for _, o := range report.Created {
				got[o.Name] = o.URN
			}
			urns[name] = got
		})
	}

	for n, u := range urns["parent first"] {
		if urns["child first"][n] != u {
			t.Errorf("URN for %q differs by ordering: %q vs %q", n, u, urns["child first"][n])
		}
	}
}

func TestIngest_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	b := newTestBuilder(store)

	first, err := b.Ingest(ctx, sampleBatch())
	if err != nil {
		t.Fatalf("first Ingest() error: %v", err)
	}
	second, err := b.Ingest(ctx, sampleBatch())
	if err != nil {
		t.Fatalf("second Ingest() error: %v", err)
	}

	if len(second.Created) != 0 {
		t.Errorf("re-import created %d assets, want 0", len(second.Created))
	}
	if len(second.Updated) != 3 {
		t.Errorf("re-import updated %d assets, want 3", len(second.Updated))
	}

	firstIDs := map[string]string{}
	for _, o := range first.Created {
		firstIDs[o.Name] = o.ID.String()
	}
	for _, o := range second.Updated {
		if firstIDs[o.Name] != o.ID.String() {
			t.Errorf("identity for %q changed on re-import", o.Name)
		}
	}

	n, err := store.CountAssets(ctx)
	if err != nil {
		t.Fatalf("CountAssets() error: %v", err)
	}
	if n != 3 {
		t.Errorf("store holds %d assets after re-import, want 3", n)
	}
}

func TestIngest_OrphanFailsOnlyThatRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	batch := append(sampleBatch(),
		asset.RawRecord{Name: "Stray", Type: string(asset.TypeHardwareCI), ParentName: "Nowhere"})

	report, err := newTestBuilder(store).Ingest(ctx, batch)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(report.Created) != 3 {
		t.Errorf("created=%d, want 3 despite the orphan", len(report.Created))
	}
	if len(report.Failed) != 1 {
		t.Fatalf("failed=%d, want 1", len(report.Failed))
	}
	f := report.Failed[0]
	if f.Name != "Stray" || !strings.Contains(f.Reason, "orphan") {
		t.Errorf("unexpected failure: %+v", f)
	}
	if report.Total() != 4 {
		t.Errorf("Total() = %d, want 4: every record must be accounted for", report.Total())
	}
}

func TestIngest_FailedParentOrphansItsChildren(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	// "Broken" has an unknown type; its child must fail as an orphan
	// rather than hang or get silently dropped.
	batch := []asset.RawRecord{
		{Name: "Broken", Type: "Mystery Type"},
		{Name: "Child", Type: string(asset.TypeHardwareCI), ParentName: "Broken"},
	}

	report, err := newTestBuilder(store).Ingest(ctx, batch)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("failed=%d, want 2: %+v", len(report.Failed), report.Failed)
	}
}

func TestIngest_CycleIsBatchFatal(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	batch := []asset.RawRecord{
		{Name: "A", Type: string(asset.TypeSystem), ParentName: "C"},
		{Name: "B", Type: string(asset.TypeSubsystem), ParentName: "A"},
		{Name: "C", Type: string(asset.TypeComponent), ParentName: "B"},
		{Name: "Innocent", Type: string(asset.TypeSystem)},
	}

	_, err := newTestBuilder(store).Ingest(ctx, batch)
	if !errors.Is(err, ErrCyclicHierarchy) {
		t.Fatalf("expected ErrCyclicHierarchy, got %v", err)
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) || len(cycleErr.Path) < 3 {
		t.Errorf("cycle error should name the path: %v", err)
	}

	// Nothing from the batch may be persisted, including unrelated records.
	n, err := store.CountAssets(ctx)
	if err != nil {
		t.Fatalf("CountAssets() error: %v", err)
	}
	if n != 0 {
		t.Errorf("store holds %d assets after rejected batch, want 0", n)
	}
}

func TestIngest_SelfParentIsCycle(t *testing.T) {
	batch := []asset.RawRecord{
		{Name: "Ouro", Type: string(asset.TypeSystem), ParentName: "Ouro"},
	}
	_, err := newTestBuilder(storage.NewMemory()).Ingest(context.Background(), batch)
	if !errors.Is(err, ErrCyclicHierarchy) {
		t.Fatalf("expected ErrCyclicHierarchy for self-parent, got %v", err)
	}
}

func TestIngest_RankViolation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	batch := []asset.RawRecord{
		{Name: "CI-1", Type: string(asset.TypeConfigurationItem)},
		// A Component (rank 4) cannot sit below a CI (rank 5).
		{Name: "Bad", Type: string(asset.TypeComponent), ParentName: "CI-1"},
	}

	report, err := newTestBuilder(store).Ingest(ctx, batch)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(report.Created) != 1 {
		t.Errorf("created=%d, want 1", len(report.Created))
	}
	if len(report.Failed) != 1 || !strings.Contains(report.Failed[0].Reason, "hierarchy") {
		t.Errorf("unexpected failures: %+v", report.Failed)
	}
}

func TestIngest_EmptyNameFails(t *testing.T) {
	report, err := newTestBuilder(storage.NewMemory()).Ingest(context.Background(),
		[]asset.RawRecord{{Name: "", Type: string(asset.TypeSystem)}})
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(report.Failed) != 1 {
		t.Fatalf("failed=%d, want 1", len(report.Failed))
	}
	if report.Failed[0].Reason != ErrEmptyName.Error() {
		t.Errorf("reason = %q", report.Failed[0].Reason)
	}
}

func TestIngest_ParentOutsideBatch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	b := newTestBuilder(store)

	if _, err := b.Ingest(ctx, []asset.RawRecord{
		{Name: "Alpha", Type: string(asset.TypeSystem)},
	}); err != nil {
		t.Fatalf("seed Ingest() error: %v", err)
	}

	report, err := b.Ingest(ctx, []asset.RawRecord{
		{Name: "Router-9", Type: string(asset.TypeHardwareCI), ParentName: "Alpha"},
	})
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(report.Created) != 1 || len(report.Failed) != 0 {
		t.Fatalf("created=%d failed=%d, want 1/0", len(report.Created), len(report.Failed))
	}
	if report.Created[0].URN != "urn:assetdna:hw:alpha/router-9" {
		t.Errorf("URN = %q", report.Created[0].URN)
	}
}

func TestIngest_DuplicateInBatchParentIsAmbiguous(t *testing.T) {
	ctx := context.Background()

	// "X" is declared twice under different parents; a child referencing
	// "X" by name must fail identically no matter which X comes first.
	orderings := map[string][]asset.RawRecord{
		"a first": {
			{Name: "A", Type: string(asset.TypeSystem)},
			{Name: "B", Type: string(asset.TypeSystem)},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "A"},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "B"},
			{Name: "C", Type: string(asset.TypeComponent), ParentName: "X"},
		},
		"b first": {
			{Name: "A", Type: string(asset.TypeSystem)},
			{Name: "B", Type: string(asset.TypeSystem)},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "B"},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "A"},
			{Name: "C", Type: string(asset.TypeComponent), ParentName: "X"},
		},
	}

	for name, batch := range orderings {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemory()
			report, err := newTestBuilder(store).Ingest(ctx, batch)
			if err != nil {
				t.Fatalf("Ingest() error: %v", err)
			}

			// Both X assets are valid in themselves; only the bare-name
			// reference to them is unresolvable.
			if len(report.Created) != 4 {
				t.Errorf("created=%d, want 4: %+v", len(report.Created), report.Created)
			}
			if len(report.Failed) != 1 {
				t.Fatalf("failed=%d, want 1: %+v", len(report.Failed), report.Failed)
			}
			f := report.Failed[0]
			if f.Name != "C" || !strings.Contains(f.Reason, "ambiguous") {
				t.Errorf("unexpected failure: %+v", f)
			}
			if !strings.Contains(f.Reason, "A/X") || !strings.Contains(f.Reason, "B/X") {
				t.Errorf("failure should name both candidates: %q", f.Reason)
			}
		})
	}
}

func TestIngest_RepeatedIdenticalRowsAreNotAmbiguous(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	// Two rows for the same logical asset (same name, same parent) are one
	// declaration; children of that name resolve normally.
	batch := []asset.RawRecord{
		{Name: "A", Type: string(asset.TypeSystem)},
		{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "A"},
		{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "A"},
		{Name: "C", Type: string(asset.TypeComponent), ParentName: "X"},
	}

	report, err := newTestBuilder(store).Ingest(ctx, batch)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(report.Failed) != 0 {
		t.Fatalf("failed=%d, want 0: %+v", len(report.Failed), report.Failed)
	}
	if len(report.Created) != 3 || len(report.Updated) != 1 {
		t.Errorf("created=%d updated=%d, want 3/1", len(report.Created), len(report.Updated))
	}
	for _, o := range report.Created {
		if o.Name == "C" && o.URN != "urn:assetdna:comp:a/x/c" {
			t.Errorf("URN for C = %q", o.URN)
		}
	}
}

func TestIngest_ReimportTypeMismatchFails(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	b := newTestBuilder(store)

	first, err := b.Ingest(ctx, []asset.RawRecord{
		{Name: "Alpha", Type: string(asset.TypeSystem)},
	})
	if err != nil {
		t.Fatalf("seed Ingest() error: %v", err)
	}

	report, err := b.Ingest(ctx, []asset.RawRecord{
		{Name: "Alpha", Type: string(asset.TypeSubsystem)},
	})
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(report.Failed) != 1 || !strings.Contains(report.Failed[0].Reason, "type mismatch") {
		t.Fatalf("expected a type-mismatch failure, got %+v", report)
	}

	got, err := store.GetAsset(ctx, first.Created[0].ID)
	if err != nil {
		t.Fatalf("GetAsset() error: %v", err)
	}
	if got.Type != asset.TypeSystem {
		t.Errorf("stored type changed to %q", got.Type)
	}
}

func TestDetectCycle_NoFalsePositives(t *testing.T) {
	// A diamond-ish shape (two children of one parent) has no cycle.
	batch := []asset.RawRecord{
		{Name: "Top", Type: string(asset.TypeSystem)},
		{Name: "L", Type: string(asset.TypeSubsystem), ParentName: "Top"},
		{Name: "R", Type: string(asset.TypeSubsystem), ParentName: "Top"},
		{Name: "Leaf", Type: string(asset.TypeHardwareCI), ParentName: "L"},
	}
	if cycle := detectCycle(batch, indexByName(batch)); cycle != nil {
		t.Errorf("detectCycle() reported a false cycle: %v", cycle)
	}

	// Duplicate names without a back-edge are still acyclic.
	dup := []asset.RawRecord{
		{Name: "A", Type: string(asset.TypeSystem)},
		{Name: "B", Type: string(asset.TypeSystem)},
		{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "A"},
		{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "B"},
		{Name: "C", Type: string(asset.TypeComponent), ParentName: "X"},
	}
	if cycle := detectCycle(dup, indexByName(dup)); cycle != nil {
		t.Errorf("detectCycle() reported a false cycle for duplicate names: %v", cycle)
	}
}

func TestDetectCycle_DuplicateNameEdges(t *testing.T) {
	// Only the second "X" record participates in the cycle; every edge a
	// duplicated name declares must be followed, in either record order.
	orderings := map[string][]asset.RawRecord{
		"cycle edge last": {
			{Name: "B", Type: string(asset.TypeSystem)},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "B"},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "C"},
			{Name: "C", Type: string(asset.TypeComponent), ParentName: "X"},
		},
		"cycle edge first": {
			{Name: "B", Type: string(asset.TypeSystem)},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "C"},
			{Name: "X", Type: string(asset.TypeSubsystem), ParentName: "B"},
			{Name: "C", Type: string(asset.TypeComponent), ParentName: "X"},
		},
	}
	for name, batch := range orderings {
		t.Run(name, func(t *testing.T) {
			cycle := detectCycle(batch, indexByName(batch))
			if cycle == nil {
				t.Fatal("detectCycle() missed the X/C cycle")
			}
			found := map[string]bool{}
			for _, n := range cycle.Path {
				found[n] = true
			}
			if !found["X"] || !found["C"] {
				t.Errorf("cycle path %v should include X and C", cycle.Path)
			}
		})
	}
}
