// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package asset

import (
	"errors"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Type
		wantErr bool
	}{
		{"domain", "Domain / System of Systems", TypeDomain, false},
		{"hardware ci", "Hardware CI", TypeHardwareCI, false},
		{"configuration item", "Configuration Item (CI)", TypeConfigurationItem, false},
		{"unknown", "Router", "", true},
		{"empty", "", "", true},
		{"case sensitive", "hardware ci", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseType(%q) expected error", tt.input)
				}
				if !errors.Is(err, ErrUnknownType) {
					t.Errorf("error %v should wrap ErrUnknownType", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseType(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestType_Rank(t *testing.T) {
	tests := []struct {
		typ  Type
		want int
	}{
		{TypeDomain, 1},
		{TypeSystem, 2},
		{TypeSubsystem, 3},
		{TypeComponent, 4},
		{TypeConfigurationItem, 5},
		{TypeHardwareCI, 6},
		{TypeSoftwareCI, 6},
		{TypeFirmwareCI, 6},
		{Type("bogus"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.Rank(); got != tt.want {
				t.Errorf("Rank() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestType_Code(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeDomain, "domain"},
		{TypeSystem, "sys"},
		{TypeSubsystem, "subsys"},
		{TypeComponent, "comp"},
		{TypeConfigurationItem, "ci"},
		{TypeHardwareCI, "hw"},
		{TypeSoftwareCI, "sw"},
		{TypeFirmwareCI, "fw"},
		{Type("bogus"), "asset"},
	}

	for _, tt := range tests {
		if got := tt.typ.Code(); got != tt.want {
			t.Errorf("%v.Code() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestType_CanHaveBOM(t *testing.T) {
	// Only the CI levels (rank >= 5) carry a BOM.
	withBOM := []Type{TypeConfigurationItem, TypeHardwareCI, TypeSoftwareCI, TypeFirmwareCI}
	withoutBOM := []Type{TypeDomain, TypeSystem, TypeSubsystem, TypeComponent}

	for _, typ := range withBOM {
		if !typ.CanHaveBOM() {
			t.Errorf("%v.CanHaveBOM() = false, want true", typ)
		}
	}
	for _, typ := range withoutBOM {
		if typ.CanHaveBOM() {
			t.Errorf("%v.CanHaveBOM() = true, want false", typ)
		}
	}
}

func TestAllTypes_RankOrder(t *testing.T) {
	types := AllTypes()
	if len(types) != 8 {
		t.Fatalf("AllTypes() returned %d types, want 8", len(types))
	}
	for i := 1; i < len(types); i++ {
		if types[i].Rank() < types[i-1].Rank() {
			t.Errorf("AllTypes() not in rank order at index %d: %v before %v",
				i, types[i-1], types[i])
		}
	}
}

func TestValidateHierarchy(t *testing.T) {
	tests := []struct {
		name    string
		parent  Type
		child   Type
		wantErr error
	}{
		{"domain over system", TypeDomain, TypeSystem, nil},
		{"skip levels", TypeDomain, TypeHardwareCI, nil},
		{"ci over hardware ci", TypeConfigurationItem, TypeHardwareCI, nil},
		{"component over ci", TypeComponent, TypeConfigurationItem, nil},
		{"same rank", TypeSystem, TypeSystem, ErrInvalidHierarchy},
		{"inverted", TypeHardwareCI, TypeDomain, ErrInvalidHierarchy},
		{"ci variant under ci variant", TypeHardwareCI, TypeSoftwareCI, ErrInvalidHierarchy},
		{"unknown parent", Type("Router"), TypeSystem, ErrUnknownType},
		{"unknown child", TypeDomain, Type("Router"), ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHierarchy(tt.parent, tt.child)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateHierarchy(%v, %v) error: %v", tt.parent, tt.child, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateHierarchy(%v, %v) = %v, want %v",
					tt.parent, tt.child, err, tt.wantErr)
			}
		})
	}
}

func TestHierarchyViolationError_Message(t *testing.T) {
	err := ValidateHierarchy(TypeConfigurationItem, TypeComponent)
	var hvErr *HierarchyViolationError
	if !errors.As(err, &hvErr) {
		t.Fatalf("expected HierarchyViolationError, got %T", err)
	}
	if hvErr.Parent != TypeConfigurationItem || hvErr.Child != TypeComponent {
		t.Errorf("unexpected error fields: %+v", hvErr)
	}
}

func TestStatus_IsValid(t *testing.T) {
	valid := []Status{StatusActive, StatusInactive, StatusDeprecated}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("%v.IsValid() = false, want true", s)
		}
	}
	if Status("retired").IsValid() {
		t.Error(`Status("retired").IsValid() = true, want false`)
	}
	if Status("").IsValid() {
		t.Error(`empty status should be invalid`)
	}
}
