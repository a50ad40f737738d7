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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/google/uuid"
)

// =============================================================================
// In-Memory Store
// =============================================================================

// Memory is the in-memory Store used for tests and lightweight mode.
//
// # Description
//
// All state lives in process memory and is lost on restart. WithTx clones
// the full state, runs the callback against the clone, and swaps it in on
// success, so rollback semantics match the durable backends.
//
// # Thread Safety
//
// Safe for concurrent use. WithTx holds the write lock for the duration of
// the callback; the callback must use the Store it is handed, not the outer
// store.
type Memory struct {
	mu     sync.RWMutex
	state  *memState
	closed bool
}

type memState struct {
	assets    map[uuid.UUID]*asset.Asset
	snapshots []*asset.BOMSnapshot
	snapSeq   int64
	events    []*asset.AuditEvent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func newMemState() *memState {
	return &memState{assets: make(map[uuid.UUID]*asset.Asset)}
}

func (s *memState) clone() *memState {
	c := &memState{
		assets:    make(map[uuid.UUID]*asset.Asset, len(s.assets)),
		snapshots: make([]*asset.BOMSnapshot, len(s.snapshots)),
		snapSeq:   s.snapSeq,
		events:    make([]*asset.AuditEvent, len(s.events)),
	}
	for id, a := range s.assets {
		c.assets[id] = cloneAsset(a)
	}
	for i, sn := range s.snapshots {
		c.snapshots[i] = cloneSnapshot(sn)
	}
	for i, e := range s.events {
		c.events[i] = cloneEvent(e)
	}
	return c
}

// =============================================================================
// Clone Helpers
// =============================================================================

func cloneAsset(a *asset.Asset) *asset.Asset {
	c := *a
	if a.ParentID != nil {
		pid := *a.ParentID
		c.ParentID = &pid
	}
	c.Properties = cloneProps(a.Properties)
	if a.Tags != nil {
		c.Tags = append([]string(nil), a.Tags...)
	}
	return &c
}

func cloneSnapshot(s *asset.BOMSnapshot) *asset.BOMSnapshot {
	c := *s
	c.Items = make([]asset.BOMItem, len(s.Items))
	for i, it := range s.Items {
		c.Items[i] = it
		c.Items[i].Properties = cloneProps(it.Properties)
	}
	return &c
}

func cloneEvent(e *asset.AuditEvent) *asset.AuditEvent {
	c := *e
	c.OldValues = cloneProps(e.OldValues)
	c.NewValues = cloneProps(e.NewValues)
	return &c
}

func cloneProps(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// =============================================================================
// Asset Store
// =============================================================================

// CreateAsset implements AssetStore.
func (m *Memory) CreateAsset(_ context.Context, a *asset.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createAsset(a)
}

func (s *memState) createAsset(a *asset.Asset) error {
	if _, ok := s.assets[a.ID]; ok {
		return ErrConflict
	}
	for _, existing := range s.assets {
		if existing.Name == a.Name && sameParent(existing.ParentID, a.ParentID) {
			return ErrConflict
		}
		if existing.URN == a.URN {
			return ErrConflict
		}
	}
	s.assets[a.ID] = cloneAsset(a)
	return nil
}

// UpdateAsset implements AssetStore.
func (m *Memory) UpdateAsset(_ context.Context, a *asset.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateAsset(a)
}

func (s *memState) updateAsset(a *asset.Asset) error {
	if _, ok := s.assets[a.ID]; !ok {
		return ErrNotFound
	}
	// Renames and re-parents must re-satisfy the same uniqueness rules
	// creation enforces; the asset's own row is exempt.
	for _, existing := range s.assets {
		if existing.ID == a.ID {
			continue
		}
		if existing.Name == a.Name && sameParent(existing.ParentID, a.ParentID) {
			return ErrConflict
		}
		if existing.URN == a.URN {
			return ErrConflict
		}
	}
	s.assets[a.ID] = cloneAsset(a)
	return nil
}

// GetAsset implements AssetStore.
func (m *Memory) GetAsset(_ context.Context, id uuid.UUID) (*asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getAsset(id)
}

func (s *memState) getAsset(id uuid.UUID) (*asset.Asset, error) {
	a, ok := s.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAsset(a), nil
}

// FindByParentAndName implements AssetStore.
func (m *Memory) FindByParentAndName(_ context.Context, parentID *uuid.UUID, name string) (*asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.findByParentAndName(parentID, name)
}

func (s *memState) findByParentAndName(parentID *uuid.UUID, name string) (*asset.Asset, error) {
	for _, a := range s.assets {
		if a.Name == name && sameParent(a.ParentID, parentID) {
			return cloneAsset(a), nil
		}
	}
	return nil, ErrNotFound
}

// FindByName implements AssetStore.
func (m *Memory) FindByName(_ context.Context, name string) ([]*asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.findByName(name), nil
}

func (s *memState) findByName(name string) []*asset.Asset {
	var out []*asset.Asset
	for _, a := range s.assets {
		if a.Name == name {
			out = append(out, cloneAsset(a))
		}
	}
	sortAssets(out)
	return out
}

// ListAssets implements AssetStore.
func (m *Memory) ListAssets(_ context.Context, f AssetFilter) ([]*asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*asset.Asset
	for _, a := range m.state.assets {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.HasParentFilter && !sameParent(a.ParentID, f.ParentID) {
			continue
		}
		if f.NameContains != "" &&
			!strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.NameContains)) {
			continue
		}
		out = append(out, cloneAsset(a))
	}
	sortAssets(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ListChildren implements AssetStore.
func (m *Memory) ListChildren(_ context.Context, parentID *uuid.UUID) ([]*asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*asset.Asset
	for _, a := range m.state.assets {
		if sameParent(a.ParentID, parentID) {
			out = append(out, cloneAsset(a))
		}
	}
	sortAssets(out)
	return out, nil
}

// HasChildren implements AssetStore.
func (m *Memory) HasChildren(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.hasChildren(id), nil
}

func (s *memState) hasChildren(id uuid.UUID) bool {
	for _, a := range s.assets {
		if a.ParentID != nil && *a.ParentID == id {
			return true
		}
	}
	return false
}

// DeleteAsset implements AssetStore.
func (m *Memory) DeleteAsset(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.assets[id]; !ok {
		return ErrNotFound
	}
	delete(m.state.assets, id)
	return nil
}

// CountAssets implements AssetStore.
func (m *Memory) CountAssets(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.assets), nil
}

// =============================================================================
// Snapshot Store
// =============================================================================

// AppendSnapshot implements SnapshotStore.
func (m *Memory) AppendSnapshot(_ context.Context, sn *asset.BOMSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.appendSnapshot(sn)
}

func (s *memState) appendSnapshot(sn *asset.BOMSnapshot) error {
	for _, existing := range s.snapshots {
		if existing.AssetID == sn.AssetID && existing.TakenAt.Equal(sn.TakenAt) {
			return ErrConflict
		}
	}
	s.snapSeq++
	sn.Seq = s.snapSeq
	s.snapshots = append(s.snapshots, cloneSnapshot(sn))
	return nil
}

// GetSnapshot implements SnapshotStore.
func (m *Memory) GetSnapshot(_ context.Context, id uuid.UUID) (*asset.BOMSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sn := range m.state.snapshots {
		if sn.ID == id {
			return cloneSnapshot(sn), nil
		}
	}
	return nil, ErrNotFound
}

// LatestSnapshot implements SnapshotStore.
func (m *Memory) LatestSnapshot(_ context.Context, assetID uuid.UUID) (*asset.BOMSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *asset.BOMSnapshot
	for _, sn := range m.state.snapshots {
		if sn.AssetID != assetID {
			continue
		}
		if best == nil || snapshotAfter(sn, best) {
			best = sn
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneSnapshot(best), nil
}

// LatestBefore implements SnapshotStore.
func (m *Memory) LatestBefore(_ context.Context, assetID uuid.UUID, ts time.Time) (*asset.BOMSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *asset.BOMSnapshot
	for _, sn := range m.state.snapshots {
		if sn.AssetID != assetID || sn.TakenAt.After(ts) {
			continue
		}
		if best == nil || snapshotAfter(sn, best) {
			best = sn
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneSnapshot(best), nil
}

// AllBetween implements SnapshotStore.
func (m *Memory) AllBetween(_ context.Context, assetID uuid.UUID, from, to time.Time) ([]*asset.BOMSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*asset.BOMSnapshot
	for _, sn := range m.state.snapshots {
		if sn.AssetID != assetID || sn.TakenAt.Before(from) || sn.TakenAt.After(to) {
			continue
		}
		out = append(out, cloneSnapshot(sn))
	}
	sort.Slice(out, func(i, j int) bool {
		return snapshotAfter(out[j], out[i])
	})
	return out, nil
}

// ListSnapshots implements SnapshotStore.
func (m *Memory) ListSnapshots(_ context.Context, assetID uuid.UUID, limit int) ([]*asset.BOMSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*asset.BOMSnapshot
	for _, sn := range m.state.snapshots {
		if sn.AssetID == assetID {
			out = append(out, cloneSnapshot(sn))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return snapshotAfter(out[i], out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountSnapshots implements SnapshotStore.
func (m *Memory) CountSnapshots(_ context.Context, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if since.IsZero() {
		return len(m.state.snapshots), nil
	}
	n := 0
	for _, sn := range m.state.snapshots {
		if !sn.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Audit Store
// =============================================================================

// AppendEvent implements AuditStore.
func (m *Memory) AppendEvent(_ context.Context, e *asset.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.events = append(m.state.events, cloneEvent(e))
	return nil
}

// ListEvents implements AuditStore.
func (m *Memory) ListEvents(_ context.Context, entityID uuid.UUID, limit int) ([]*asset.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*asset.AuditEvent
	for i := len(m.state.events) - 1; i >= 0; i-- {
		e := m.state.events[i]
		if entityID != uuid.Nil && e.EntityID != entityID {
			continue
		}
		out = append(out, cloneEvent(e))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// =============================================================================
// Transactions & Lifecycle
// =============================================================================

// WithTx implements Store.
//
// The callback receives a transactional view over a clone of the current
// state; the clone replaces the live state only when fn returns nil.
func (m *Memory) WithTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	clone := m.state.clone()
	if err := fn(&memTx{state: clone}); err != nil {
		return err
	}
	m.state = clone
	return nil
}

// Ping implements Store.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memTx is the unlocked transactional view handed to WithTx callbacks.
type memTx struct {
	state *memState
}

func (t *memTx) CreateAsset(_ context.Context, a *asset.Asset) error { return t.state.createAsset(a) }
func (t *memTx) UpdateAsset(_ context.Context, a *asset.Asset) error { return t.state.updateAsset(a) }
func (t *memTx) GetAsset(_ context.Context, id uuid.UUID) (*asset.Asset, error) {
	return t.state.getAsset(id)
}
func (t *memTx) FindByParentAndName(_ context.Context, parentID *uuid.UUID, name string) (*asset.Asset, error) {
	return t.state.findByParentAndName(parentID, name)
}
func (t *memTx) FindByName(_ context.Context, name string) ([]*asset.Asset, error) {
	return t.state.findByName(name), nil
}
func (t *memTx) ListAssets(ctx context.Context, f AssetFilter) ([]*asset.Asset, error) {
	return (&Memory{state: t.state}).ListAssets(ctx, f)
}
func (t *memTx) ListChildren(ctx context.Context, parentID *uuid.UUID) ([]*asset.Asset, error) {
	return (&Memory{state: t.state}).ListChildren(ctx, parentID)
}
func (t *memTx) HasChildren(_ context.Context, id uuid.UUID) (bool, error) {
	return t.state.hasChildren(id), nil
}
func (t *memTx) DeleteAsset(_ context.Context, id uuid.UUID) error {
	if _, ok := t.state.assets[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.assets, id)
	return nil
}
func (t *memTx) CountAssets(_ context.Context) (int, error) { return len(t.state.assets), nil }
func (t *memTx) AppendSnapshot(_ context.Context, sn *asset.BOMSnapshot) error {
	return t.state.appendSnapshot(sn)
}
func (t *memTx) GetSnapshot(ctx context.Context, id uuid.UUID) (*asset.BOMSnapshot, error) {
	return (&Memory{state: t.state}).GetSnapshot(ctx, id)
}
func (t *memTx) LatestSnapshot(ctx context.Context, assetID uuid.UUID) (*asset.BOMSnapshot, error) {
	return (&Memory{state: t.state}).LatestSnapshot(ctx, assetID)
}
func (t *memTx) LatestBefore(ctx context.Context, assetID uuid.UUID, ts time.Time) (*asset.BOMSnapshot, error) {
	return (&Memory{state: t.state}).LatestBefore(ctx, assetID, ts)
}
func (t *memTx) AllBetween(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*asset.BOMSnapshot, error) {
	return (&Memory{state: t.state}).AllBetween(ctx, assetID, from, to)
}
func (t *memTx) ListSnapshots(ctx context.Context, assetID uuid.UUID, limit int) ([]*asset.BOMSnapshot, error) {
	return (&Memory{state: t.state}).ListSnapshots(ctx, assetID, limit)
}
func (t *memTx) CountSnapshots(ctx context.Context, since time.Time) (int, error) {
	return (&Memory{state: t.state}).CountSnapshots(ctx, since)
}
func (t *memTx) AppendEvent(_ context.Context, e *asset.AuditEvent) error {
	t.state.events = append(t.state.events, cloneEvent(e))
	return nil
}
func (t *memTx) ListEvents(ctx context.Context, entityID uuid.UUID, limit int) ([]*asset.AuditEvent, error) {
	return (&Memory{state: t.state}).ListEvents(ctx, entityID, limit)
}

// WithTx on a transactional view runs fn against the same view; the outer
// transaction owns commit and rollback.
func (t *memTx) WithTx(_ context.Context, fn func(Store) error) error { return fn(t) }

func (t *memTx) Ping(_ context.Context) error { return nil }
func (t *memTx) Close() error                 { return nil }

// =============================================================================
// Helpers
// =============================================================================

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sortAssets(assets []*asset.Asset) {
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Name != assets[j].Name {
			return assets[i].Name < assets[j].Name
		}
		return assets[i].ID.String() < assets[j].ID.String()
	})
}

// snapshotAfter reports whether a is chronologically after b, using the
// insertion sequence to break timestamp ties.
func snapshotAfter(a, b *asset.BOMSnapshot) bool {
	if !a.TakenAt.Equal(b.TakenAt) {
		return a.TakenAt.After(b.TakenAt)
	}
	return a.Seq > b.Seq
}
