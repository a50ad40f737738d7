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
	"fmt"
)

// Sentinel errors for the asset package.
var (
	// ErrUnknownType is returned when a type string is not in the taxonomy.
	ErrUnknownType = errors.New("unknown asset type")

	// ErrInvalidHierarchy is returned when a child's type rank is not
	// strictly below its parent's type rank.
	ErrInvalidHierarchy = errors.New("invalid type hierarchy")

	// ErrInvalidStatus is returned when a status value is not one of
	// active, inactive, or deprecated.
	ErrInvalidStatus = errors.New("invalid asset status")
)

// HierarchyViolationError reports an incompatible parent/child type pair.
type HierarchyViolationError struct {
	Parent Type
	Child  Type
}

// Error returns the violation description.
func (e *HierarchyViolationError) Error() string {
	return fmt.Sprintf("invalid type hierarchy: %q (rank %d) cannot be a child of %q (rank %d)",
		e.Child, e.Child.Rank(), e.Parent, e.Parent.Rank())
}

// Unwrap returns ErrInvalidHierarchy so callers can use errors.Is.
func (e *HierarchyViolationError) Unwrap() error {
	return ErrInvalidHierarchy
}
