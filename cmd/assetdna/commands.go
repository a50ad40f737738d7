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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	assetTypeFilter  string
	statusFilter     string
	parentFilter     string
	searchFilter     string
	listLimit        int
	outputJSON       bool
	transferFormat   string
	bomTakenAt       string
	bomVersion       string
	bomSource        string
	bomBackfill      bool
	historyLimit     int
	reportMonths     int
	includeUnchanged bool

	rootCmd = &cobra.Command{
		Use:   "assetdna",
		Short: "A cli to manage an AssetDNA infrastructure inventory",
		Long: `AssetDNA tracks infrastructure asset hierarchies and their
				bill-of-materials history. This cli talks to a running
				AssetDNA service.`,
	}

	// --- Assets ---
	assetCmd = &cobra.Command{
		Use:   "asset",
		Short: "Inspect and manage assets in the hierarchy",
	}
	listAssetsCmd = &cobra.Command{
		Use:   "list",
		Short: "List assets, optionally filtered by type, status, or parent",
		Run:   runListAssets, // Defined in cmd_assets.go
	}
	getAssetCmd = &cobra.Command{
		Use:   "get [asset_id]",
		Short: "Show a single asset by ID",
		Args:  cobra.ExactArgs(1),
		Run:   runGetAsset, // Defined in cmd_assets.go
	}
	assetPathCmd = &cobra.Command{
		Use:   "path [asset_id]",
		Short: "Show the ancestor chain of an asset, root first",
		Args:  cobra.ExactArgs(1),
		Run:   runAssetPath, // Defined in cmd_assets.go
	}
	assetTreeCmd = &cobra.Command{
		Use:   "tree",
		Short: "Print the full asset hierarchy as a tree",
		Run:   runAssetTree, // Defined in cmd_assets.go
	}
	assetTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "List the asset type taxonomy",
		Run:   runAssetTypes, // Defined in cmd_assets.go
	}
	deleteAssetCmd = &cobra.Command{
		Use:   "delete [asset_id]",
		Short: "Delete a leaf asset (assets with children cannot be deleted)",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteAsset, // Defined in cmd_assets.go
	}

	// --- Bulk Transfer ---
	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Bulk import assets from a CSV, JSON, or XML file",
		Args:  cobra.ExactArgs(1),
		Run:   runImport, // Defined in cmd_transfer.go
	}
	exportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Export all assets to a CSV, JSON, or XML file",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExport, // Defined in cmd_transfer.go
	}

	// --- BOM Snapshots ---
	bomCmd = &cobra.Command{
		Use:   "bom",
		Short: "Manage bill-of-materials snapshots",
	}
	bomUploadCmd = &cobra.Command{
		Use:   "upload [asset_id] [file]",
		Short: "Upload a BOM document (CycloneDX, SPDX, or custom JSON) for an asset",
		Args:  cobra.ExactArgs(2),
		Run:   runBOMUpload, // Defined in cmd_bom.go
	}
	bomHistoryCmd = &cobra.Command{
		Use:   "history [asset_id]",
		Short: "List BOM snapshots for an asset, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   runBOMHistory, // Defined in cmd_bom.go
	}

	// --- Reports ---
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Generate change and summary reports",
	}
	changesReportCmd = &cobra.Command{
		Use:   "changes [asset_id]",
		Short: "Report component changes for an asset over a time window",
		Args:  cobra.ExactArgs(1),
		Run:   runChangesReport, // Defined in cmd_bom.go
	}
	summaryReportCmd = &cobra.Command{
		Use:   "summary",
		Short: "Show system-wide asset and snapshot counts",
		Run:   runSummaryReport, // Defined in cmd_bom.go
	}

	// --- Service ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Check the health of the AssetDNA service",
		Run:   runStatus, // Defined in cmd_status.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false,
		"Print raw JSON responses instead of tables")

	rootCmd.AddCommand(assetCmd)
	assetCmd.AddCommand(listAssetsCmd)
	listAssetsCmd.Flags().StringVar(&assetTypeFilter, "type", "", "Filter by asset type (e.g. router, line_card)")
	listAssetsCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (active, inactive, decommissioned, planned)")
	listAssetsCmd.Flags().StringVar(&parentFilter, "parent", "", "Filter by parent asset ID, or 'root' for top-level assets")
	listAssetsCmd.Flags().StringVar(&searchFilter, "search", "", "Substring match on asset name")
	listAssetsCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of results (0 = unlimited)")
	assetCmd.AddCommand(getAssetCmd)
	assetCmd.AddCommand(assetPathCmd)
	assetCmd.AddCommand(assetTreeCmd)
	assetCmd.AddCommand(assetTypesCmd)
	assetCmd.AddCommand(deleteAssetCmd)

	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&transferFormat, "format", "", "File format: csv, json, or xml (default: inferred from extension)")
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&transferFormat, "format", "", "File format: csv, json, or xml (default: inferred from extension)")

	rootCmd.AddCommand(bomCmd)
	bomCmd.AddCommand(bomUploadCmd)
	bomUploadCmd.Flags().StringVar(&bomTakenAt, "taken-at", "", "Observation timestamp (RFC3339, default: now)")
	bomUploadCmd.Flags().StringVar(&bomVersion, "version", "", "Version label for this snapshot")
	bomUploadCmd.Flags().StringVar(&bomSource, "source", "", "Source system that produced the BOM")
	bomUploadCmd.Flags().BoolVar(&bomBackfill, "backfill", false, "Insert a historical snapshot older than the latest one")
	bomCmd.AddCommand(bomHistoryCmd)
	bomHistoryCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum number of snapshots (0 = unlimited)")

	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(changesReportCmd)
	changesReportCmd.Flags().IntVar(&reportMonths, "months", 6, "Window length in months (1-24)")
	changesReportCmd.Flags().BoolVar(&includeUnchanged, "include-unchanged", false, "Include components that did not change")
	reportCmd.AddCommand(summaryReportCmd)

	rootCmd.AddCommand(statusCmd)
}
