// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transfer decodes and encodes asset inventories for exchange with
// external systems.
//
// # Description
//
// Three serializations share one record shape: CSV, JSON, and XML all map
// to ordered asset.RawRecord sequences on the way in and flat asset rows
// on the way out. The decoder makes no ordering guarantees beyond document
// order; the hierarchy builder resolves parents regardless of record order.
//
// BOM documents are handled separately (see ParseBOM): the uploaded JSON is
// sniffed for CycloneDX or SPDX markers and falls back to a custom layout.
package transfer

import (
	"errors"
	"fmt"
)

// Format identifies a transfer serialization.
type Format string

const (
	// FormatCSV is comma-separated values with a header row.
	FormatCSV Format = "csv"

	// FormatJSON is a JSON array of records.
	FormatJSON Format = "json"

	// FormatXML is an <assets> document of <asset> elements.
	FormatXML Format = "xml"
)

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// ParseFormat validates a raw format string.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatCSV, FormatJSON, FormatXML:
		return Format(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

var (
	// ErrUnknownFormat indicates a format string outside csv/json/xml.
	ErrUnknownFormat = errors.New("unknown transfer format")

	// ErrMissingColumns indicates a CSV header without the required
	// name, asset_type, and parent_name columns.
	ErrMissingColumns = errors.New("missing required columns")
)

// RowError wraps a decode failure with the 1-based data row it occurred on.
type RowError struct {
	Row int
	Err error
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *RowError) Unwrap() error {
	return e.Err
}
