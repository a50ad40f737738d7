// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hierarchy ingests batches of parent-referencing asset records in
// topological order.
//
// # Description
//
// Records reference parents by name and may arrive in any order. The
// builder treats a batch as a dependency graph and resolves records in
// rounds: a record becomes eligible once its declared parent is either
// already persisted or was resolved earlier in the same batch. Cycle
// detection runs as an explicit pre-pass with iterative visited/in-progress
// marking, never recursion, so deep or cyclic input cannot overflow the
// stack.
//
// Failure semantics: a cycle aborts the whole batch before anything is
// written; every other failure (orphan, ambiguous parent, unknown type,
// rank violation) fails only that record while siblings proceed. A parent
// name the batch declares as more than one distinct asset is ambiguous for
// its children, exactly as a stored name matching several assets is. The
// whole batch runs in one storage transaction.
//
// # Thread Safety
//
// Builder is safe for concurrent use; each Ingest call is independent.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/audit"
	"github.com/AleutianAI/AssetDNA/services/assetdna/identity"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/google/uuid"
)

// =============================================================================
// Ingestion Report
// =============================================================================

// Outcome describes one successfully applied record.
type Outcome struct {
	Name       string    `json:"name"`
	ParentName string    `json:"parent_name,omitempty"`
	ID         uuid.UUID `json:"id"`
	URN        string    `json:"urn"`
}

// Failure describes one rejected record and why.
type Failure struct {
	Name       string `json:"name"`
	ParentName string `json:"parent_name,omitempty"`
	Reason     string `json:"reason"`
}

// Report enumerates every record's outcome. No record is silently dropped.
type Report struct {
	Created []Outcome `json:"created"`
	Updated []Outcome `json:"updated"`
	Failed  []Failure `json:"failed"`

	// Duration is how long the ingest took.
	Duration time.Duration `json:"duration_ms"`
}

// Total returns the number of records accounted for.
func (r *Report) Total() int {
	return len(r.Created) + len(r.Updated) + len(r.Failed)
}

// =============================================================================
// Builder
// =============================================================================

// Builder resolves batches of raw records into the persisted asset tree.
type Builder struct {
	store     storage.Store
	urnPrefix string
	recorder  *audit.Recorder
	logger    *slog.Logger
}

// NewBuilder creates a Builder.
//
// Inputs:
//
//	store - The authoritative store; batches run inside store.WithTx.
//	urnPrefix - URN namespace passed through to the identity resolver.
//	recorder - Audit recorder; may be nil to disable auditing.
//	logger - Structured logger; nil uses slog.Default().
func NewBuilder(store storage.Store, urnPrefix string, recorder *audit.Recorder, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, urnPrefix: urnPrefix, recorder: recorder, logger: logger}
}

// Ingest applies one batch of raw records.
//
// # Description
//
// Runs cycle detection first; a cycle returns a CycleError and nothing is
// persisted. Otherwise the batch executes inside one transaction, resolving
// records in topological rounds. The returned report enumerates every
// record as created, updated, or failed with a reason.
//
// Given the same batch content, the resulting set of assets and their URNs
// is identical regardless of input ordering.
//
// Outputs:
//
//	*Report - Always non-nil on success, covering every input record.
//	error - CycleError for batch-fatal cycles, or a storage error; in both
//	        cases the batch left no rows behind.
func (b *Builder) Ingest(ctx context.Context, batch []asset.RawRecord) (*Report, error) {
	start := time.Now()

	byName := indexByName(batch)
	if cycle := detectCycle(batch, byName); cycle != nil {
		b.logger.Warn("batch rejected: cyclic hierarchy", "path", cycle.Path)
		return nil, cycle
	}

	report := &Report{}
	err := b.store.WithTx(ctx, func(tx storage.Store) error {
		return b.ingestTx(ctx, tx, batch, byName, report)
	})
	if err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	b.logger.Info("batch ingested",
		"created", len(report.Created),
		"updated", len(report.Updated),
		"failed", len(report.Failed),
		"duration", report.Duration)
	return report, nil
}

// ingestTx runs the topological resolution rounds inside a transaction.
func (b *Builder) ingestTx(ctx context.Context, tx storage.Store, batch []asset.RawRecord,
	byName map[string][]int, report *Report) error {

	resolver := identity.NewResolver(tx, b.urnPrefix)

	resolved := make(map[string]*asset.Asset) // batch name -> applied asset
	failed := make(map[string]bool)           // batch names that failed
	pending := make([]int, 0, len(batch))
	for i := range batch {
		pending = append(pending, i)
	}

	for len(pending) > 0 {
		var next []int
		progress := false

		for _, i := range pending {
			rec := batch[i]
			if rec.Name == "" {
				report.Failed = append(report.Failed, Failure{
					ParentName: rec.ParentName, Reason: ErrEmptyName.Error(),
				})
				progress = true
				continue
			}

			parent, ready, err := b.resolveParent(ctx, resolver, rec, batch, byName, resolved, failed)
			if err != nil {
				report.Failed = append(report.Failed, Failure{
					Name: rec.Name, ParentName: rec.ParentName, Reason: err.Error(),
				})
				failed[rec.Name] = true
				progress = true
				continue
			}
			if !ready {
				next = append(next, i)
				continue
			}

			if err := b.applyRecord(ctx, tx, resolver, rec, parent, resolved, report); err != nil {
				report.Failed = append(report.Failed, Failure{
					Name: rec.Name, ParentName: rec.ParentName, Reason: err.Error(),
				})
				failed[rec.Name] = true
			}
			progress = true
		}

		if !progress {
			// Remaining records wait on in-batch parents that never became
			// available. Cycles were excluded up front, so these are orphans.
			for _, i := range next {
				rec := batch[i]
				report.Failed = append(report.Failed, Failure{
					Name:       rec.Name,
					ParentName: rec.ParentName,
					Reason:     (&OrphanError{Name: rec.Name, Parent: rec.ParentName}).Error(),
				})
			}
			return nil
		}
		pending = next
	}
	return nil
}

// resolveParent determines the parent asset for a record.
//
// Outputs:
//
//	*asset.Asset - The parent, nil for root records.
//	bool - False when the record must wait for an in-batch parent.
//	error - Orphan or ambiguity failure for this record.
func (b *Builder) resolveParent(ctx context.Context, resolver *identity.Resolver, rec asset.RawRecord,
	batch []asset.RawRecord, byName map[string][]int, resolved map[string]*asset.Asset,
	failed map[string]bool) (*asset.Asset, bool, error) {

	if rec.ParentName == "" {
		return nil, true, nil
	}
	// A parent name the batch declares as more than one distinct asset
	// cannot be resolved safely, same as LookupParent for stored rows.
	if paths := distinctDeclarations(batch, byName, rec.ParentName); len(paths) > 1 {
		return nil, false, &identity.AmbiguousParentError{Name: rec.ParentName, Matches: paths}
	}
	if parent, ok := resolved[rec.ParentName]; ok {
		return parent, true, nil
	}

	_, inBatch := byName[rec.ParentName]
	if inBatch && !failed[rec.ParentName] {
		// Declared in this batch but not applied yet; try again next round.
		return nil, false, nil
	}

	// Parent is not (or no longer) resolvable within the batch; it must
	// already be persisted.
	parent, err := resolver.LookupParent(ctx, rec.ParentName)
	switch {
	case err == nil:
		return parent, true, nil
	case errors.Is(err, storage.ErrNotFound):
		return nil, false, &OrphanError{Name: rec.Name, Parent: rec.ParentName}
	default:
		return nil, false, err
	}
}

// applyRecord validates, resolves, and writes one eligible record.
func (b *Builder) applyRecord(ctx context.Context, tx storage.Store, resolver *identity.Resolver,
	rec asset.RawRecord, parent *asset.Asset, resolved map[string]*asset.Asset, report *Report) error {

	typ, err := asset.ParseType(rec.Type)
	if err != nil {
		return err
	}
	if parent != nil {
		if err := asset.ValidateHierarchy(parent.Type, typ); err != nil {
			return err
		}
	}

	res, err := resolver.Resolve(ctx, rec, typ, parent)
	if err != nil {
		return err
	}

	outcome := Outcome{Name: rec.Name, ParentName: rec.ParentName, ID: res.Asset.ID, URN: res.Asset.URN}
	if res.Created {
		if err := tx.CreateAsset(ctx, res.Asset); err != nil {
			return fmt.Errorf("create asset %q: %w", rec.Name, err)
		}
		report.Created = append(report.Created, outcome)
		if b.recorder != nil {
			b.recorder.RecordTo(ctx, tx, "asset", res.Asset.ID, asset.AuditCreate,
				nil, map[string]any{"name": res.Asset.Name, "urn": res.Asset.URN}, "imported")
		}
	} else {
		if err := tx.UpdateAsset(ctx, res.Asset); err != nil {
			return fmt.Errorf("update asset %q: %w", rec.Name, err)
		}
		report.Updated = append(report.Updated, outcome)
		if b.recorder != nil {
			b.recorder.RecordTo(ctx, tx, "asset", res.Asset.ID, asset.AuditUpdate,
				nil, map[string]any{"name": res.Asset.Name, "urn": res.Asset.URN}, "re-imported")
		}
	}
	resolved[rec.Name] = res.Asset
	return nil
}

// =============================================================================
// Batch Graph
// =============================================================================

// indexByName maps each record name to the indices that declare it.
func indexByName(batch []asset.RawRecord) map[string][]int {
	byName := make(map[string][]int, len(batch))
	for i, rec := range batch {
		if rec.Name == "" {
			continue
		}
		byName[rec.Name] = append(byName[rec.Name], i)
	}
	return byName
}

// distinctDeclarations returns one "parent/name" path per distinct asset
// the batch declares under the given name. Repeated rows for the same
// logical asset (same name, same parent) collapse to one entry.
func distinctDeclarations(batch []asset.RawRecord, byName map[string][]int, name string) []string {
	idxs, ok := byName[name]
	if !ok {
		return nil
	}
	seen := make(map[string]bool, len(idxs))
	var paths []string
	for _, i := range idxs {
		path := batch[i].Name
		if batch[i].ParentName != "" {
			path = batch[i].ParentName + "/" + batch[i].Name
		}
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// detectCycle looks for parent cycles among the batch's own records.
//
// Iterative DFS with explicit white/gray/black marking over record names.
// A name shared by several records contributes every distinct in-batch
// parent it declares as an edge, and nodes and edges are visited in sorted
// order, so detection depends only on batch content, never record order.
// Only edges whose parent is declared in the same batch participate;
// references to pre-existing assets cannot form a cycle because stored
// rows never point back into the batch.
func detectCycle(batch []asset.RawRecord, byName map[string][]int) *CycleError {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)

	edges := make(map[string][]string, len(byName))
	names := make([]string, 0, len(byName))
	for name, idxs := range byName {
		names = append(names, name)
		seen := make(map[string]bool)
		for _, i := range idxs {
			p := batch[i].ParentName
			if p == "" || seen[p] {
				continue
			}
			if _, inBatch := byName[p]; inBatch {
				seen[p] = true
				edges[name] = append(edges[name], p)
			}
		}
		sort.Strings(edges[name])
	}
	sort.Strings(names)

	type frame struct {
		name string
		next int // index of the next unexplored edge
	}
	color := make(map[string]int, len(byName))

	for _, root := range names {
		if color[root] != white {
			continue
		}
		stack := []frame{{name: root}}
		color[root] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(edges[top.name]) {
				color[top.name] = black
				stack = stack[:len(stack)-1]
				continue
			}
			parent := edges[top.name][top.next]
			top.next++
			switch color[parent] {
			case gray:
				// Trim the stack to the cycle itself.
				start := 0
				for i, f := range stack {
					if f.name == parent {
						start = i
						break
					}
				}
				cyclePath := make([]string, 0, len(stack)-start+1)
				for _, f := range stack[start:] {
					cyclePath = append(cyclePath, f.name)
				}
				cyclePath = append(cyclePath, parent)
				return &CycleError{Path: cyclePath}
			case white:
				color[parent] = gray
				stack = append(stack, frame{name: parent})
			}
		}
	}
	return nil
}
