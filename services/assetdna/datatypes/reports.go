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

import "time"

// Window bounds for change reports, in 30-day months.
const (
	MinReportMonths     = 1
	MaxReportMonths     = 24
	DefaultReportMonths = 6
)

// SystemSummaryResponse is the body for GET /v1/reports/summary.
type SystemSummaryResponse struct {
	TotalAssets     int       `json:"total_assets"`
	TotalSnapshots  int       `json:"total_snapshots"`
	RecentSnapshots int       `json:"recent_snapshots"`
	RecentSince     time.Time `json:"recent_since"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// SystemInfoResponse is the body for GET /v1/system/info.
type SystemInfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Backend string `json:"backend"`
}
