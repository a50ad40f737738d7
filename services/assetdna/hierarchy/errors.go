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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the hierarchy package.
var (
	// ErrOrphanAsset is returned for records whose declared parent is
	// neither pre-existing nor part of the batch.
	ErrOrphanAsset = errors.New("orphan asset: parent not found")

	// ErrCyclicHierarchy is returned when parent references within a batch
	// form a cycle. This failure is batch-fatal.
	ErrCyclicHierarchy = errors.New("cyclic hierarchy in batch")

	// ErrEmptyName is returned for records without a name.
	ErrEmptyName = errors.New("record has no name")
)

// OrphanError names the parent that could not be resolved.
type OrphanError struct {
	Name   string
	Parent string
}

// Error returns the orphan description.
func (e *OrphanError) Error() string {
	return fmt.Sprintf("orphan asset %q: parent %q not found", e.Name, e.Parent)
}

// Unwrap returns ErrOrphanAsset so callers can use errors.Is.
func (e *OrphanError) Unwrap() error {
	return ErrOrphanAsset
}

// CycleError provides the record names along a detected parent cycle.
type CycleError struct {
	Path []string
}

// Error returns the cycle description.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic hierarchy in batch: %s", strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCyclicHierarchy so callers can use errors.Is.
func (e *CycleError) Unwrap() error {
	return ErrCyclicHierarchy
}
