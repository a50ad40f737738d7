// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity derives canonical asset identifiers and resolves import
// records against the stored tree.
//
// # Description
//
// Every asset carries two identifiers: a system-generated UUID, minted once
// on creation, and a URN derived deterministically from the asset's type and
// its ancestor path of names. The same logical path always yields the same
// URN, which is what makes re-import idempotent.
//
// URN encoding:
//
//	urn:assetdna:<typecode>:<ancestor-slugs>/<name-slug>
//
// e.g. a Hardware CI "Router-1" under System "Alpha" becomes
// "urn:assetdna:hw:alpha/router-1". Distinct ancestor paths always produce
// distinct URNs; names that normalize to the same slug under the same parent
// are already rejected by sibling-name uniqueness.
//
// # Thread Safety
//
// Resolver is stateless apart from its store reference and is safe for
// concurrent use.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/google/uuid"
)

// DefaultURNPrefix is the URN namespace used when none is configured.
const DefaultURNPrefix = "urn:assetdna"

// DefaultExternalSystem is assumed when a record carries an external ID
// without naming its system.
const DefaultExternalSystem = "OTOBO"

// Sentinel errors for the identity package.
var (
	// ErrAmbiguousParent is returned when a parent name matches more than
	// one stored asset and nothing disambiguates them.
	ErrAmbiguousParent = errors.New("ambiguous parent reference")

	// ErrTypeMismatch is returned when a record re-imports an existing
	// (parent, name) row under a different asset type. Types are immutable;
	// a row never silently changes or keeps a contradicted type.
	ErrTypeMismatch = errors.New("asset type mismatch")
)

// AmbiguousParentError lists the assets that matched a parent name.
type AmbiguousParentError struct {
	Name    string
	Matches []string // URNs or parent/name paths of the matching assets
}

// Error returns the ambiguity description.
func (e *AmbiguousParentError) Error() string {
	return fmt.Sprintf("ambiguous parent reference %q matches %d assets: %s",
		e.Name, len(e.Matches), strings.Join(e.Matches, ", "))
}

// Unwrap returns ErrAmbiguousParent so callers can use errors.Is.
func (e *AmbiguousParentError) Unwrap() error {
	return ErrAmbiguousParent
}

// =============================================================================
// Resolver
// =============================================================================

// Resolution is the outcome of resolving one record.
type Resolution struct {
	// Asset is the resolved asset, fully populated. Not yet persisted;
	// the hierarchy builder performs the actual write.
	Asset *asset.Asset

	// Created is true when a new identity was minted, false when an
	// existing (parent, name) row matched.
	Created bool
}

// Resolver locates existing assets and derives identities for new ones.
type Resolver struct {
	store  storage.AssetStore
	prefix string
	now    func() time.Time
}

// NewResolver creates a Resolver backed by the given asset store.
//
// Inputs:
//
//	store - Asset lookups are scoped by this store.
//	urnPrefix - URN namespace; empty uses DefaultURNPrefix.
func NewResolver(store storage.AssetStore, urnPrefix string) *Resolver {
	if urnPrefix == "" {
		urnPrefix = DefaultURNPrefix
	}
	return &Resolver{store: store, prefix: urnPrefix, now: time.Now}
}

// Resolve produces or locates the identity for one import record.
//
// # Description
//
// Resolution is a pure query plus identifier generation: no rows are
// written. An existing asset matches when (parent, name) equals a stored
// row; the stored identity is kept and record fields are merged onto it,
// except the type, which is immutable: a record contradicting the stored
// type fails with ErrTypeMismatch instead of being silently kept.
// Otherwise a new UUID is minted and the URN derived from the parent's path.
//
// Inputs:
//
//	ctx - Request context.
//	rec - The raw import record. rec.Type must already be validated.
//	typ - The parsed asset type.
//	parent - The already-resolved parent, or nil for root records.
//
// Outputs:
//
//	*Resolution - The resolved asset and whether it is a creation.
//	error - Non-nil on store failure or invalid field values.
func (r *Resolver) Resolve(ctx context.Context, rec asset.RawRecord, typ asset.Type, parent *asset.Asset) (*Resolution, error) {
	var parentID *uuid.UUID
	if parent != nil {
		pid := parent.ID
		parentID = &pid
	}

	now := r.now().UTC()
	existing, err := r.store.FindByParentAndName(ctx, parentID, rec.Name)
	switch {
	case err == nil:
		if existing.Type != typ {
			return nil, fmt.Errorf("%w: %q is stored as %q, record declares %q",
				ErrTypeMismatch, rec.Name, existing.Type, typ)
		}
		merged := mergeRecord(existing, rec)
		merged.UpdatedAt = now
		return &Resolution{Asset: merged, Created: false}, nil
	case errors.Is(err, storage.ErrNotFound):
		// Fall through to creation.
	default:
		return nil, fmt.Errorf("lookup (parent, name): %w", err)
	}

	a := &asset.Asset{
		ID:             uuid.New(),
		URN:            r.DeriveURN(typ, parent, rec.Name),
		Name:           rec.Name,
		Description:    rec.Description,
		Type:           typ,
		ParentID:       parentID,
		Status:         asset.StatusActive,
		LifecycleStage: rec.LifecycleStage,
		ExternalID:     rec.ExternalID,
		ExternalSystem: rec.ExternalSystem,
		Version:        rec.Version,
		Properties:     rec.Properties,
		Tags:           rec.Tags,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rec.Status != "" {
		st := asset.Status(rec.Status)
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: %q", asset.ErrInvalidStatus, rec.Status)
		}
		a.Status = st
	}
	if a.ExternalID != "" && a.ExternalSystem == "" {
		a.ExternalSystem = DefaultExternalSystem
	}
	return &Resolution{Asset: a, Created: true}, nil
}

// LookupParent finds a parent asset by name alone.
//
// # Description
//
// Used when a record references a pre-existing parent that is not part of
// the current batch. A name matching more than one stored asset cannot be
// resolved safely across subtrees and returns AmbiguousParentError.
//
// Outputs:
//
//	*asset.Asset - The single matching parent.
//	error - storage.ErrNotFound when no asset has the name,
//	        ErrAmbiguousParent when more than one does.
func (r *Resolver) LookupParent(ctx context.Context, name string) (*asset.Asset, error) {
	matches, err := r.store.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup parent %q: %w", name, err)
	}
	switch len(matches) {
	case 0:
		return nil, storage.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		urns := make([]string, len(matches))
		for i, m := range matches {
			urns[i] = m.URN
		}
		return nil, &AmbiguousParentError{Name: name, Matches: urns}
	}
}

// DeriveURN computes the deterministic URN for a tree position.
//
// The derivation depends only on the type, the parent's own URN path, and
// the name, so re-deriving for the same logical path is stable.
func (r *Resolver) DeriveURN(typ asset.Type, parent *asset.Asset, name string) string {
	slug := Slugify(name)
	if parent == nil {
		return fmt.Sprintf("%s:%s:%s", r.prefix, typ.Code(), slug)
	}
	return fmt.Sprintf("%s:%s:%s/%s", r.prefix, typ.Code(), URNPath(parent.URN), slug)
}

// URNPath extracts the slug path portion of a URN (everything after the
// third colon).
func URNPath(urn string) string {
	parts := strings.SplitN(urn, ":", 4)
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

// Slugify normalizes a name for use in a URN path segment.
//
// Lowercases and replaces spaces and slashes with hyphens, matching the
// sibling-name normalization used across imports.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

// mergeRecord overlays non-empty record fields onto an existing asset,
// preserving its identity, type, and tree position.
func mergeRecord(existing *asset.Asset, rec asset.RawRecord) *asset.Asset {
	merged := *existing
	if rec.Description != "" {
		merged.Description = rec.Description
	}
	if rec.Status != "" {
		if st := asset.Status(rec.Status); st.IsValid() {
			merged.Status = st
		}
	}
	if rec.LifecycleStage != "" {
		merged.LifecycleStage = rec.LifecycleStage
	}
	if rec.ExternalID != "" {
		merged.ExternalID = rec.ExternalID
		if rec.ExternalSystem != "" {
			merged.ExternalSystem = rec.ExternalSystem
		} else if merged.ExternalSystem == "" {
			merged.ExternalSystem = DefaultExternalSystem
		}
	}
	if rec.Version != "" {
		merged.Version = rec.Version
	}
	if rec.Properties != nil {
		merged.Properties = rec.Properties
	}
	if rec.Tags != nil {
		merged.Tags = rec.Tags
	}
	return &merged
}
