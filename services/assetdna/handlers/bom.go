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
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/bom"
	"github.com/AleutianAI/AssetDNA/services/assetdna/datatypes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/observability"
	"github.com/AleutianAI/AssetDNA/services/assetdna/transfer"
)

// UploadBOM appends a BOM snapshot for an asset.
//
// # Description
//
// Accepts either a raw BOM document (sniffed for CycloneDX/SPDX/custom)
// or pre-normalized items. The snapshot timestamp defaults to now; a
// timestamp at or before the asset's latest snapshot is rejected unless
// the request sets backfill.
func UploadBOM(svc *bom.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req datatypes.UploadBOMRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Document == nil && len(req.Items) == 0 {
			badRequest(c, "either document or items is required")
			return
		}
		if req.Document != nil && len(req.Items) > 0 {
			badRequest(c, "document and items are mutually exclusive")
			return
		}

		meta := bom.Meta{
			Version:      req.Version,
			Source:       req.Source,
			ImportMethod: "api",
		}
		if req.Backfill {
			meta.ImportMethod = "backfill"
		}

		var items []asset.BOMItem
		if req.Document != nil {
			format, parsed, err := transfer.ParseBOM(req.Document)
			if err != nil {
				respondError(c, err)
				return
			}
			meta.Format = format
			items = parsed
			if meta.Version == "" {
				if v, ok := req.Document["version"].(string); ok {
					meta.Version = v
				}
			}
		} else {
			if len(req.Items) > datatypes.MaxItemsPerBOM {
				badRequest(c, fmt.Sprintf("too many items: %d (max %d)",
					len(req.Items), datatypes.MaxItemsPerBOM))
				return
			}
			meta.Format = "custom"
			items = make([]asset.BOMItem, 0, len(req.Items))
			for _, in := range req.Items {
				items = append(items, in.ToItem())
			}
		}

		ts := time.Now().UTC()
		if req.TakenAt != nil {
			ts = req.TakenAt.UTC()
		}

		ctx := c.Request.Context()
		var snapshotID uuid.UUID
		var err error
		if req.Backfill {
			snapshotID, err = svc.Backfill(ctx, id, ts, items, meta)
		} else {
			snapshotID, err = svc.Append(ctx, id, ts, items, meta)
		}
		if err != nil {
			respondError(c, err)
			return
		}

		if m := observability.Default; m != nil {
			m.RecordSnapshot(meta.ImportMethod)
		}
		slog.Info("BOM snapshot appended", "asset_id", id,
			"snapshot_id", snapshotID, "format", meta.Format, "items", len(items))
		c.JSON(http.StatusCreated, gin.H{
			"snapshot_id":   snapshotID,
			"asset_id":      id,
			"taken_at":      ts,
			"bom_format":    meta.Format,
			"total_items":   len(items),
			"import_method": meta.ImportMethod,
		})
	}
}

// BOMHistory lists an asset's snapshots newest first. Item payloads are
// omitted; fetch a single snapshot for its items.
func BOMHistory(svc *bom.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				badRequest(c, fmt.Sprintf("invalid limit %q", raw))
				return
			}
			limit = n
		}

		snapshots, err := svc.History(c.Request.Context(), id, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := datatypes.SnapshotListResponse{
			AssetID:   id,
			Total:     len(snapshots),
			Snapshots: make([]datatypes.SnapshotResponse, 0, len(snapshots)),
		}
		for _, sn := range snapshots {
			resp.Snapshots = append(resp.Snapshots, datatypes.NewSnapshotResponse(sn, false))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetBOMSnapshot returns one snapshot with its full item list.
func GetBOMSnapshot(svc *bom.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		snapshotID, err := uuid.Parse(c.Param("snapshotId"))
		if err != nil {
			badRequest(c, fmt.Sprintf("invalid snapshot id %q", c.Param("snapshotId")))
			return
		}

		sn, err := svc.Get(c.Request.Context(), id, snapshotID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.NewSnapshotResponse(sn, true))
	}
}
