// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/google/uuid"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Alpha", "alpha"},
		{"spaces", "Core Router 1", "core-router-1"},
		{"slashes", "OS/Firmware", "os-firmware"},
		{"mixed", " Edge / POP 3 ", "edge---pop-3"},
		{"already clean", "router-1", "router-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeriveURN(t *testing.T) {
	store := storage.NewMemory()
	r := NewResolver(store, "")

	root := r.DeriveURN(asset.TypeSystem, nil, "Alpha")
	if root != "urn:assetdna:sys:alpha" {
		t.Errorf("root URN = %q", root)
	}

	parent := &asset.Asset{URN: root}
	child := r.DeriveURN(asset.TypeHardwareCI, parent, "Router-1")
	if child != "urn:assetdna:hw:alpha/router-1" {
		t.Errorf("child URN = %q", child)
	}

	grandparent := &asset.Asset{URN: child}
	deep := r.DeriveURN(asset.TypeFirmwareCI, grandparent, "Boot ROM")
	if deep != "urn:assetdna:fw:alpha/router-1/boot-rom" {
		t.Errorf("deep URN = %q", deep)
	}
}

func TestDeriveURN_CustomPrefix(t *testing.T) {
	r := NewResolver(storage.NewMemory(), "urn:acme")
	got := r.DeriveURN(asset.TypeDomain, nil, "Network")
	if got != "urn:acme:domain:network" {
		t.Errorf("URN = %q", got)
	}
}

func TestURNPath(t *testing.T) {
	tests := []struct {
		urn  string
		want string
	}{
		{"urn:assetdna:hw:alpha/router-1", "alpha/router-1"},
		{"urn:assetdna:sys:alpha", "alpha"},
		{"urn:assetdna:hw", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := URNPath(tt.urn); got != tt.want {
			t.Errorf("URNPath(%q) = %q, want %q", tt.urn, got, tt.want)
		}
	}
}

func TestResolve_NewAsset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver(store, "")

	rec := asset.RawRecord{Name: "Alpha", Type: string(asset.TypeSystem)}
	res, err := r.Resolve(ctx, rec, asset.TypeSystem, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !res.Created {
		t.Error("expected Created = true for a new record")
	}
	a := res.Asset
	if a.ID == uuid.Nil {
		t.Error("no UUID minted")
	}
	if a.URN != "urn:assetdna:sys:alpha" {
		t.Errorf("URN = %q", a.URN)
	}
	if a.Status != asset.StatusActive {
		t.Errorf("Status = %q, want active default", a.Status)
	}
	if a.ParentID != nil {
		t.Error("root record should have nil ParentID")
	}
}

func TestResolve_ExistingAssetKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver(store, "")

	rec := asset.RawRecord{Name: "Alpha", Type: string(asset.TypeSystem)}
	first, err := r.Resolve(ctx, rec, asset.TypeSystem, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if err := store.CreateAsset(ctx, first.Asset); err != nil {
		t.Fatalf("CreateAsset() error: %v", err)
	}

	// Re-resolving the same (parent, name) must return the stored identity.
	rec.Description = "core system"
	second, err := r.Resolve(ctx, rec, asset.TypeSystem, nil)
	if err != nil {
		t.Fatalf("second Resolve() error: %v", err)
	}
	if second.Created {
		t.Error("expected Created = false for an existing record")
	}
	if second.Asset.ID != first.Asset.ID {
		t.Errorf("identity changed: %v != %v", second.Asset.ID, first.Asset.ID)
	}
	if second.Asset.URN != first.Asset.URN {
		t.Errorf("URN changed: %q != %q", second.Asset.URN, first.Asset.URN)
	}
	if second.Asset.Description != "core system" {
		t.Errorf("record fields not merged: %q", second.Asset.Description)
	}
}

func TestResolve_TypeIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver(store, "")

	rec := asset.RawRecord{Name: "Alpha", Type: string(asset.TypeSystem)}
	first, err := r.Resolve(ctx, rec, asset.TypeSystem, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if err := store.CreateAsset(ctx, first.Asset); err != nil {
		t.Fatalf("CreateAsset() error: %v", err)
	}

	// Re-importing the same (parent, name) under a different type must
	// fail rather than keep or rewrite the stored type.
	rec.Type = string(asset.TypeSubsystem)
	_, err = r.Resolve(ctx, rec, asset.TypeSubsystem, nil)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	stored, err := store.GetAsset(ctx, first.Asset.ID)
	if err != nil {
		t.Fatalf("GetAsset() error: %v", err)
	}
	if stored.Type != asset.TypeSystem {
		t.Errorf("stored type changed to %q", stored.Type)
	}
}

func TestResolve_InvalidStatus(t *testing.T) {
	r := NewResolver(storage.NewMemory(), "")
	rec := asset.RawRecord{Name: "Alpha", Type: string(asset.TypeSystem), Status: "retired"}

	_, err := r.Resolve(context.Background(), rec, asset.TypeSystem, nil)
	if !errors.Is(err, asset.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestResolve_ExternalSystemDefault(t *testing.T) {
	r := NewResolver(storage.NewMemory(), "")
	rec := asset.RawRecord{
		Name:       "Router-1",
		Type:       string(asset.TypeHardwareCI),
		ExternalID: "CI-0042",
	}

	res, err := r.Resolve(context.Background(), rec, asset.TypeHardwareCI, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Asset.ExternalSystem != DefaultExternalSystem {
		t.Errorf("ExternalSystem = %q, want %q", res.Asset.ExternalSystem, DefaultExternalSystem)
	}
}

func TestLookupParent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver(store, "")

	// Not found
	if _, err := r.LookupParent(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Single match
	res, err := r.Resolve(ctx, asset.RawRecord{Name: "Alpha"}, asset.TypeSystem, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if err := store.CreateAsset(ctx, res.Asset); err != nil {
		t.Fatalf("CreateAsset() error: %v", err)
	}
	parent, err := r.LookupParent(ctx, "Alpha")
	if err != nil {
		t.Fatalf("LookupParent() error: %v", err)
	}
	if parent.ID != res.Asset.ID {
		t.Error("wrong parent returned")
	}

	// Same name under a different parent makes the reference ambiguous.
	dup, err := r.Resolve(ctx, asset.RawRecord{Name: "Alpha"}, asset.TypeSubsystem, res.Asset)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if err := store.CreateAsset(ctx, dup.Asset); err != nil {
		t.Fatalf("CreateAsset() error: %v", err)
	}
	_, err = r.LookupParent(ctx, "Alpha")
	if !errors.Is(err, ErrAmbiguousParent) {
		t.Fatalf("expected ErrAmbiguousParent, got %v", err)
	}
	var ambErr *AmbiguousParentError
	if !errors.As(err, &ambErr) || len(ambErr.Matches) != 2 {
		t.Errorf("ambiguity error should list both URNs: %v", err)
	}
}
