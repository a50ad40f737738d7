// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package asset defines the core AssetDNA data model: the fixed asset-type
// taxonomy, hierarchical assets, BOM snapshots, and audit events.
//
// # Description
//
// The taxonomy is a closed enumeration with an associated rank table. Adding
// a type is a data change here, never a type-hierarchy change. Rank 1 is the
// highest level of the tree (Domain / System of Systems); rank 6 holds the
// three mutually substitutable CI leaf variants (Hardware, Software,
// Firmware).
//
// # Thread Safety
//
// All functions in this file are pure and stateless. Types are plain data
// and are not safe for concurrent modification.
package asset

import "fmt"

// =============================================================================
// Asset Types
// =============================================================================

// Type identifies one of the fixed asset types. The set is not user-editable.
type Type string

const (
	// TypeDomain is the top-level grouping (rank 1).
	TypeDomain Type = "Domain / System of Systems"

	// TypeSystem is a system or environment (rank 2).
	TypeSystem Type = "System / Environment"

	// TypeSubsystem is a subsystem or service (rank 3).
	TypeSubsystem Type = "Subsystem / Service"

	// TypeComponent is a component or segment (rank 4).
	TypeComponent Type = "Component / Segment"

	// TypeConfigurationItem is a configuration item (rank 5).
	TypeConfigurationItem Type = "Configuration Item (CI)"

	// TypeHardwareCI is a hardware configuration item (rank 6).
	TypeHardwareCI Type = "Hardware CI"

	// TypeSoftwareCI is a software configuration item (rank 6).
	TypeSoftwareCI Type = "Software CI"

	// TypeFirmwareCI is a firmware configuration item (rank 6).
	TypeFirmwareCI Type = "Firmware CI"
)

// String returns the display name of the type.
func (t Type) String() string {
	return string(t)
}

// typeRanks is the rank table for the fixed taxonomy.
// Lower rank means higher in the tree.
var typeRanks = map[Type]int{
	TypeDomain:            1,
	TypeSystem:            2,
	TypeSubsystem:         3,
	TypeComponent:         4,
	TypeConfigurationItem: 5,
	TypeHardwareCI:        6,
	TypeSoftwareCI:        6,
	TypeFirmwareCI:        6,
}

// typeCodes maps each type to its URN type code.
var typeCodes = map[Type]string{
	TypeDomain:            "domain",
	TypeSystem:            "sys",
	TypeSubsystem:         "subsys",
	TypeComponent:         "comp",
	TypeConfigurationItem: "ci",
	TypeHardwareCI:        "hw",
	TypeSoftwareCI:        "sw",
	TypeFirmwareCI:        "fw",
}

// AllTypes returns the fixed taxonomy in rank order.
//
// Outputs:
//
//	[]Type - All eight types, highest level first.
func AllTypes() []Type {
	return []Type{
		TypeDomain,
		TypeSystem,
		TypeSubsystem,
		TypeComponent,
		TypeConfigurationItem,
		TypeHardwareCI,
		TypeSoftwareCI,
		TypeFirmwareCI,
	}
}

// ParseType validates a raw type string against the fixed taxonomy.
//
// Inputs:
//
//	s - The raw type string, as it appears in import records.
//
// Outputs:
//
//	Type - The matching type.
//	error - Non-nil if s is not a known asset type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := typeRanks[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Rank returns the hierarchy rank of the type (1 = highest).
//
// Unknown types return 0; callers should have validated via ParseType first.
func (t Type) Rank() int {
	return typeRanks[t]
}

// Code returns the short URN type code (e.g. "hw" for Hardware CI).
func (t Type) Code() string {
	code, ok := typeCodes[t]
	if !ok {
		return "asset"
	}
	return code
}

// IsValid reports whether the type belongs to the fixed taxonomy.
func (t Type) IsValid() bool {
	_, ok := typeRanks[t]
	return ok
}

// CanHaveBOM reports whether assets of this type accept BOM snapshots.
//
// Only configuration items (rank 5 and the rank-6 CI variants) carry a BOM;
// higher levels are structural groupings.
func (t Type) CanHaveBOM() bool {
	return typeRanks[t] >= typeRanks[TypeConfigurationItem]
}

// =============================================================================
// Hierarchy Validation
// =============================================================================

// ValidateHierarchy checks parent/child type compatibility.
//
// # Description
//
// A child's rank must be strictly greater than its parent's rank: the tree
// coarsens downward and same-rank parent/child pairs are disallowed. The
// rank-6 CI variants may only appear under a rank-5 Configuration Item or
// deeper structural levels, never under each other.
//
// Inputs:
//
//	parent - The parent asset's type.
//	child - The candidate child asset's type.
//
// Outputs:
//
//	error - Nil if compatible, otherwise a HierarchyViolationError wrapping
//	        ErrInvalidHierarchy.
func ValidateHierarchy(parent, child Type) error {
	if !parent.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, parent)
	}
	if !child.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, child)
	}
	if child.Rank() <= parent.Rank() {
		return &HierarchyViolationError{Parent: parent, Child: child}
	}
	return nil
}
