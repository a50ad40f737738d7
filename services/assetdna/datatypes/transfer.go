// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/hierarchy"
)

// ImportError describes one failed record of an import batch.
type ImportError struct {
	Name       string `json:"name"`
	ParentName string `json:"parent_name,omitempty"`
	Error      string `json:"error"`
}

// ImportResult is the body returned by the import endpoints.
//
// Success means every record landed; a partially applied batch reports
// Success=false with per-record errors while created and updated records
// stay persisted. Batch-fatal failures (cyclic batches) return an error
// status instead of this shape.
type ImportResult struct {
	Success      bool          `json:"success"`
	TotalRecords int           `json:"total_records"`
	Imported     int           `json:"imported"`
	Updated      int           `json:"updated"`
	Failed       int           `json:"failed"`
	Errors       []ImportError `json:"errors,omitempty"`
	Duration     string        `json:"duration,omitempty"`
}

// NewImportResult converts an ingestion report to its wire shape.
func NewImportResult(total int, report *hierarchy.Report) ImportResult {
	result := ImportResult{
		Success:      len(report.Failed) == 0,
		TotalRecords: total,
		Imported:     len(report.Created),
		Updated:      len(report.Updated),
		Failed:       len(report.Failed),
		Duration:     report.Duration.Round(time.Millisecond).String(),
	}
	for _, f := range report.Failed {
		result.Errors = append(result.Errors, ImportError{
			Name:       f.Name,
			ParentName: f.ParentName,
			Error:      f.Reason,
		})
	}
	return result
}
