// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AssetDNA/services/assetdna/changes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/datatypes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/observability"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// ChangeReport computes the net BOM change over a trailing window.
//
// Query parameters: months (1-24, default 6), include_unchanged.
func ChangeReport(engine *changes.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		months := datatypes.DefaultReportMonths
		if raw := c.Query("months"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				badRequest(c, fmt.Sprintf("invalid months %q", raw))
				return
			}
			months = n
		}
		if months < datatypes.MinReportMonths || months > datatypes.MaxReportMonths {
			badRequest(c, fmt.Sprintf("months must be between %d and %d, got %d",
				datatypes.MinReportMonths, datatypes.MaxReportMonths, months))
			return
		}

		opts := changes.Options{
			IncludeUnchanged: c.Query("include_unchanged") == "true",
		}
		report, err := engine.Report(c.Request.Context(), id, months, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		if m := observability.Default; m != nil {
			m.RecordReport()
		}
		c.JSON(http.StatusOK, report)
	}
}

// SystemSummary reports inventory-wide counts for dashboards.
func SystemSummary(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := time.Now().UTC()
		since := now.AddDate(0, 0, -30)

		totalAssets, err := store.CountAssets(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		totalSnapshots, err := store.CountSnapshots(ctx, time.Time{})
		if err != nil {
			respondError(c, err)
			return
		}
		recent, err := store.CountSnapshots(ctx, since)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, datatypes.SystemSummaryResponse{
			TotalAssets:     totalAssets,
			TotalSnapshots:  totalSnapshots,
			RecentSnapshots: recent,
			RecentSince:     since,
			GeneratedAt:     now,
		})
	}
}
