// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAsset(name string, typ asset.Type, parentID *uuid.UUID) *asset.Asset {
	urn := "urn:assetdna:" + typ.Code() + ":" + name
	return &asset.Asset{
		ID:        uuid.New(),
		URN:       urn,
		Name:      name,
		Type:      typ,
		ParentID:  parentID,
		Status:    asset.StatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestMemory_CreateAsset_Conflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alpha := newAsset("Alpha", asset.TypeSystem, nil)
	require.NoError(t, m.CreateAsset(ctx, alpha))

	// Same ID.
	dup := *alpha
	dup.Name = "Other"
	dup.URN = "urn:assetdna:sys:other"
	assert.ErrorIs(t, m.CreateAsset(ctx, &dup), ErrConflict)

	// Same (parent, name).
	twin := newAsset("Alpha", asset.TypeSystem, nil)
	assert.ErrorIs(t, m.CreateAsset(ctx, twin), ErrConflict)

	// Same URN.
	clash := newAsset("Beta", asset.TypeSystem, nil)
	clash.URN = alpha.URN
	assert.ErrorIs(t, m.CreateAsset(ctx, clash), ErrConflict)

	// Same name under a different parent is fine.
	pid := alpha.ID
	child := newAsset("Alpha", asset.TypeSubsystem, &pid)
	child.URN = "urn:assetdna:subsys:alpha/alpha"
	assert.NoError(t, m.CreateAsset(ctx, child))
}

func TestMemory_GetAsset_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a := newAsset("Alpha", asset.TypeSystem, nil)
	a.Properties = map[string]any{"env": "prod"}
	a.Tags = []string{"network"}
	require.NoError(t, m.CreateAsset(ctx, a))

	got, err := m.GetAsset(ctx, a.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	got.Name = "Tampered"
	got.Properties["env"] = "dev"
	got.Tags[0] = "tampered"

	again, err := m.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", again.Name)
	assert.Equal(t, "prod", again.Properties["env"])
	assert.Equal(t, "network", again.Tags[0])
}

func TestMemory_UpdateAsset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	unknown := newAsset("Ghost", asset.TypeSystem, nil)
	assert.ErrorIs(t, m.UpdateAsset(ctx, unknown), ErrNotFound)

	a := newAsset("Alpha", asset.TypeSystem, nil)
	require.NoError(t, m.CreateAsset(ctx, a))
	a.Description = "updated"
	require.NoError(t, m.UpdateAsset(ctx, a))

	got, err := m.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
}

func TestMemory_UpdateAsset_RenameConflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alpha := newAsset("Alpha", asset.TypeSystem, nil)
	beta := newAsset("Beta", asset.TypeSystem, nil)
	require.NoError(t, m.CreateAsset(ctx, alpha))
	require.NoError(t, m.CreateAsset(ctx, beta))

	// Renaming onto an occupied sibling name is refused.
	renamed := cloneAsset(beta)
	renamed.Name = "Alpha"
	renamed.URN = "urn:assetdna:sys:alpha-renamed"
	assert.ErrorIs(t, m.UpdateAsset(ctx, renamed), ErrConflict)

	matches, err := m.FindByName(ctx, "Alpha")
	require.NoError(t, err)
	assert.Len(t, matches, 1, "the refused rename must not create a twin")

	// Claiming another asset's URN is refused.
	stolen := cloneAsset(beta)
	stolen.URN = alpha.URN
	assert.ErrorIs(t, m.UpdateAsset(ctx, stolen), ErrConflict)

	// An update that keeps its own name and URN is not a self-conflict,
	// and a rename to a free name succeeds.
	beta.Description = "still Beta"
	require.NoError(t, m.UpdateAsset(ctx, beta))
	beta.Name = "Gamma"
	beta.URN = "urn:assetdna:sys:gamma"
	require.NoError(t, m.UpdateAsset(ctx, beta))

	_, err = m.FindByParentAndName(ctx, nil, "Beta")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := m.FindByParentAndName(ctx, nil, "Gamma")
	require.NoError(t, err)
	assert.Equal(t, beta.ID, got.ID)
}

func TestMemory_FindByParentAndName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alpha := newAsset("Alpha", asset.TypeSystem, nil)
	require.NoError(t, m.CreateAsset(ctx, alpha))
	pid := alpha.ID
	router := newAsset("Router-1", asset.TypeHardwareCI, &pid)
	require.NoError(t, m.CreateAsset(ctx, router))

	got, err := m.FindByParentAndName(ctx, &pid, "Router-1")
	require.NoError(t, err)
	assert.Equal(t, router.ID, got.ID)

	got, err = m.FindByParentAndName(ctx, nil, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, alpha.ID, got.ID)

	// Root lookup must not match a nested asset of the same name.
	_, err = m.FindByParentAndName(ctx, nil, "Router-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_FindByName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alpha := newAsset("Alpha", asset.TypeSystem, nil)
	beta := newAsset("Beta", asset.TypeSystem, nil)
	require.NoError(t, m.CreateAsset(ctx, alpha))
	require.NoError(t, m.CreateAsset(ctx, beta))
	pid := alpha.ID
	nested := newAsset("Beta", asset.TypeSubsystem, &pid)
	nested.URN = "urn:assetdna:subsys:alpha/beta"
	require.NoError(t, m.CreateAsset(ctx, nested))

	got, err := m.FindByName(ctx, "Beta")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = m.FindByName(ctx, "Gamma")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_ListAssets_Filters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alpha := newAsset("Alpha Platform", asset.TypeSystem, nil)
	require.NoError(t, m.CreateAsset(ctx, alpha))
	pid := alpha.ID
	routing := newAsset("Routing", asset.TypeSubsystem, &pid)
	require.NoError(t, m.CreateAsset(ctx, routing))
	retired := newAsset("Old Platform", asset.TypeSystem, nil)
	retired.Status = asset.StatusDeprecated
	require.NoError(t, m.CreateAsset(ctx, retired))

	tests := []struct {
		name      string
		filter    AssetFilter
		wantNames []string
	}{
		{"no filter", AssetFilter{}, []string{"Alpha Platform", "Old Platform", "Routing"}},
		{"by type", AssetFilter{Type: asset.TypeSystem}, []string{"Alpha Platform", "Old Platform"}},
		{"by status", AssetFilter{Status: asset.StatusDeprecated}, []string{"Old Platform"}},
		{"roots only", AssetFilter{HasParentFilter: true}, []string{"Alpha Platform", "Old Platform"}},
		{"by parent", AssetFilter{HasParentFilter: true, ParentID: &pid}, []string{"Routing"}},
		{"name substring, case-insensitive", AssetFilter{NameContains: "platform"}, []string{"Alpha Platform", "Old Platform"}},
		{"limit", AssetFilter{Limit: 2}, []string{"Alpha Platform", "Old Platform"}},
		{"no match", AssetFilter{NameContains: "zzz"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ListAssets(ctx, tt.filter)
			require.NoError(t, err)
			names := make([]string, 0, len(got))
			for _, a := range got {
				names = append(names, a.Name)
			}
			if tt.wantNames == nil {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, tt.wantNames, names)
			}
		})
	}
}

func TestMemory_ChildrenAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alpha := newAsset("Alpha", asset.TypeSystem, nil)
	require.NoError(t, m.CreateAsset(ctx, alpha))
	pid := alpha.ID
	r1 := newAsset("Router-1", asset.TypeHardwareCI, &pid)
	r2 := newAsset("Router-2", asset.TypeHardwareCI, &pid)
	require.NoError(t, m.CreateAsset(ctx, r1))
	require.NoError(t, m.CreateAsset(ctx, r2))

	children, err := m.ListChildren(ctx, &pid)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Router-1", children[0].Name)

	has, err := m.HasChildren(ctx, alpha.ID)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = m.HasChildren(ctx, r1.ID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, m.DeleteAsset(ctx, r1.ID))
	assert.ErrorIs(t, m.DeleteAsset(ctx, r1.ID), ErrNotFound)

	n, err := m.CountAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func newSnapshot(assetID uuid.UUID, takenAt time.Time) *asset.BOMSnapshot {
	return &asset.BOMSnapshot{
		ID:        uuid.New(),
		AssetID:   assetID,
		TakenAt:   takenAt,
		Items:     []asset.BOMItem{{ComponentID: "cpu", Quantity: 1}},
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemory_AppendSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	assetID := uuid.New()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newSnapshot(assetID, ts)
	require.NoError(t, m.AppendSnapshot(ctx, first))
	assert.Equal(t, int64(1), first.Seq)

	second := newSnapshot(assetID, ts.Add(time.Hour))
	require.NoError(t, m.AppendSnapshot(ctx, second))
	assert.Equal(t, int64(2), second.Seq)

	// Duplicate (asset, taken_at).
	dup := newSnapshot(assetID, ts)
	assert.ErrorIs(t, m.AppendSnapshot(ctx, dup), ErrConflict)

	// Same instant on another asset is fine.
	other := newSnapshot(uuid.New(), ts)
	assert.NoError(t, m.AppendSnapshot(ctx, other))
}

func TestMemory_SnapshotQueries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	assetID := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var snaps []*asset.BOMSnapshot
	for i := 0; i < 3; i++ {
		sn := newSnapshot(assetID, base.AddDate(0, i, 0))
		require.NoError(t, m.AppendSnapshot(ctx, sn))
		snaps = append(snaps, sn)
	}

	got, err := m.GetSnapshot(ctx, snaps[1].ID)
	require.NoError(t, err)
	assert.Equal(t, snaps[1].ID, got.ID)
	_, err = m.GetSnapshot(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	latest, err := m.LatestSnapshot(ctx, assetID)
	require.NoError(t, err)
	assert.Equal(t, snaps[2].ID, latest.ID)
	_, err = m.LatestSnapshot(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	// LatestBefore is inclusive of the bound.
	before, err := m.LatestBefore(ctx, assetID, snaps[1].TakenAt)
	require.NoError(t, err)
	assert.Equal(t, snaps[1].ID, before.ID)
	_, err = m.LatestBefore(ctx, assetID, base.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrNotFound)

	// AllBetween is inclusive on both ends, oldest first.
	window, err := m.AllBetween(ctx, assetID, snaps[0].TakenAt, snaps[1].TakenAt)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, snaps[0].ID, window[0].ID)
	assert.Equal(t, snaps[1].ID, window[1].ID)

	// ListSnapshots is newest first with an optional cap.
	list, err := m.ListSnapshots(ctx, assetID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, snaps[2].ID, list[0].ID)
	assert.Equal(t, snaps[1].ID, list[1].ID)

	n, err := m.CountSnapshots(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemory_CountSnapshots_Since(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	assetID := uuid.New()

	old := newSnapshot(assetID, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	old.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := newSnapshot(assetID, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	recent.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.AppendSnapshot(ctx, old))
	require.NoError(t, m.AppendSnapshot(ctx, recent))

	n, err := m.CountSnapshots(ctx, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_AuditEvents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	target := uuid.New()

	for i, entity := range []uuid.UUID{target, uuid.New(), target} {
		e := &asset.AuditEvent{
			ID:         uuid.New(),
			EntityType: "asset",
			EntityID:   entity,
			Action:     asset.AuditCreate,
			Summary:    string(rune('a' + i)),
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, m.AppendEvent(ctx, e))
	}

	// Filtered to one entity, newest first.
	events, err := m.ListEvents(ctx, target, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].Summary)
	assert.Equal(t, "a", events[1].Summary)

	// uuid.Nil means all entities; limit caps the slice.
	events, err = m.ListEvents(ctx, uuid.Nil, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestMemory_WithTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s Store) error {
		if err := s.CreateAsset(ctx, newAsset("Doomed", asset.TypeSystem, nil)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := m.CountAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "failed transaction must leave no trace")

	require.NoError(t, m.WithTx(ctx, func(s Store) error {
		return s.CreateAsset(ctx, newAsset("Kept", asset.TypeSystem, nil))
	}))
	n, err = m.CountAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_WithTx_SeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.WithTx(ctx, func(s Store) error {
		a := newAsset("Alpha", asset.TypeSystem, nil)
		if err := s.CreateAsset(ctx, a); err != nil {
			return err
		}
		got, err := s.GetAsset(ctx, a.ID)
		if err != nil {
			return err
		}
		got.Description = "written in tx"
		return s.UpdateAsset(ctx, got)
	}))

	assets, err := m.ListAssets(ctx, AssetFilter{})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "written in tx", assets[0].Description)
}

func TestMemory_Close(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Ping(ctx))
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, m.WithTx(ctx, func(Store) error { return nil }), ErrClosed)
}
