// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func runBOMUpload(cmd *cobra.Command, args []string) {
	assetID := args[0]
	filename := args[1]

	data, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", filename, err)
	}
	var document map[string]any
	if err := json.Unmarshal(data, &document); err != nil {
		log.Fatalf("%s is not a JSON object: %v", filename, err)
	}

	payload := map[string]any{
		"document": document,
		"backfill": bomBackfill,
	}
	if bomVersion != "" {
		payload["bom_version"] = bomVersion
	}
	if bomSource != "" {
		payload["source"] = bomSource
	}
	if bomTakenAt != "" {
		ts, err := time.Parse(time.RFC3339, bomTakenAt)
		if err != nil {
			log.Fatalf("Invalid --taken-at value %q, expected RFC3339: %v", bomTakenAt, err)
		}
		payload["taken_at"] = ts
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Failed to encode upload request: %v", err)
	}

	uploadURL := fmt.Sprintf("%s/v1/assets/%s/bom", getServerBaseURL(), url.PathEscape(assetID))
	resp, err := apiClient().Post(uploadURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("Failed to send BOM upload: %v", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		log.Fatalf("BOM upload failed: %v", err)
	}

	var result struct {
		SnapshotID   string    `json:"snapshot_id"`
		TakenAt      time.Time `json:"taken_at"`
		BOMFormat    string    `json:"bom_format"`
		TotalItems   int       `json:"total_items"`
		ImportMethod string    `json:"import_method"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatalf("Failed to parse upload response: %v", err)
	}

	if outputJSON {
		printRawJSON(result)
		return
	}
	fmt.Printf("Snapshot %s recorded (%s, %d items, taken %s)\n",
		result.SnapshotID, result.BOMFormat, result.TotalItems,
		result.TakenAt.Format(time.RFC3339))
}

func runBOMHistory(cmd *cobra.Command, args []string) {
	path := fmt.Sprintf("/v1/assets/%s/bom/history", url.PathEscape(args[0]))
	if historyLimit > 0 {
		path += "?limit=" + strconv.Itoa(historyLimit)
	}

	var result struct {
		Total     int `json:"total"`
		Snapshots []struct {
			ID         string    `json:"id"`
			TakenAt    time.Time `json:"taken_at"`
			Version    string    `json:"bom_version,omitempty"`
			Format     string    `json:"bom_format,omitempty"`
			TotalItems int       `json:"total_items"`
		} `json:"snapshots"`
	}
	if err := getJSON(path, &result); err != nil {
		log.Fatalf("Failed to fetch BOM history: %v", err)
	}

	if outputJSON {
		printRawJSON(result)
		return
	}
	if result.Total == 0 {
		fmt.Println("No snapshots recorded for this asset.")
		return
	}
	fmt.Printf("Snapshots (%d, newest first):\n", result.Total)
	fmt.Println("------------------------------------------------------------------")
	for _, s := range result.Snapshots {
		fmt.Printf("%-36s  %s  %-10s  %4d items\n",
			s.ID, s.TakenAt.Format(time.RFC3339), s.Version, s.TotalItems)
	}
}

func runChangesReport(cmd *cobra.Command, args []string) {
	path := fmt.Sprintf("/v1/assets/%s/changes?months=%d", url.PathEscape(args[0]), reportMonths)
	if includeUnchanged {
		path += "&include_unchanged=true"
	}

	var report struct {
		AssetName string `json:"asset_name"`
		Window    struct {
			From time.Time `json:"from"`
			To   time.Time `json:"to"`
		} `json:"window"`
		Changes []struct {
			Key            string `json:"key"`
			ComponentName  string `json:"component_name,omitempty"`
			Classification string `json:"classification"`
		} `json:"changes"`
		Summary struct {
			Added     int `json:"added"`
			Removed   int `json:"removed"`
			Modified  int `json:"modified"`
			Unchanged int `json:"unchanged"`
		} `json:"summary"`
	}
	if err := getJSON(path, &report); err != nil {
		log.Fatalf("Failed to generate change report: %v", err)
	}

	if outputJSON {
		printRawJSON(report)
		return
	}
	fmt.Printf("Change report for %s (%s to %s):\n", report.AssetName,
		report.Window.From.Format("2006-01-02"), report.Window.To.Format("2006-01-02"))
	fmt.Printf("  added=%d removed=%d modified=%d unchanged=%d\n",
		report.Summary.Added, report.Summary.Removed,
		report.Summary.Modified, report.Summary.Unchanged)
	for _, ch := range report.Changes {
		name := ch.ComponentName
		if name == "" {
			name = ch.Key
		}
		fmt.Printf("  %-9s %s\n", ch.Classification, name)
	}
}

func runSummaryReport(cmd *cobra.Command, args []string) {
	var summary struct {
		TotalAssets     int       `json:"total_assets"`
		TotalSnapshots  int       `json:"total_snapshots"`
		RecentSnapshots int       `json:"recent_snapshots"`
		RecentSince     time.Time `json:"recent_since"`
	}
	if err := getJSON("/v1/reports/summary", &summary); err != nil {
		log.Fatalf("Failed to fetch system summary: %v", err)
	}

	if outputJSON {
		printRawJSON(summary)
		return
	}
	fmt.Printf("Assets:    %d\n", summary.TotalAssets)
	fmt.Printf("Snapshots: %d (%d since %s)\n", summary.TotalSnapshots,
		summary.RecentSnapshots, summary.RecentSince.Format("2006-01-02"))
}
