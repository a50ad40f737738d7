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
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AssetDNA/services/assetdna/datatypes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/hierarchy"
	"github.com/AleutianAI/AssetDNA/services/assetdna/observability"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/AleutianAI/AssetDNA/services/assetdna/transfer"
)

// ImportAssets ingests a CSV, JSON, or XML inventory document.
//
// # Description
//
// The :format path parameter selects the decoder. Records may arrive in
// any order; the hierarchy builder resolves forward parent references
// within the batch. Decode failures reject the whole document; a cyclic
// batch rejects with 422 before anything is written; per-record failures
// (unknown type, missing parent, rank violation) leave the rest of the
// batch applied and are itemized in the result.
func ImportAssets(builder *hierarchy.Builder) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := transfer.ParseFormat(c.Param("format"))
		if err != nil {
			respondError(c, err)
			return
		}

		body := c.Request.Body
		defer body.Close()
		records, err := transfer.DecodeRecords(format, body)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		if len(records) == 0 {
			badRequest(c, "no records in document")
			return
		}
		if len(records) > datatypes.MaxRecordsPerImport {
			badRequest(c, fmt.Sprintf("too many records: %d (max %d)",
				len(records), datatypes.MaxRecordsPerImport))
			return
		}

		report, err := builder.Ingest(c.Request.Context(), records)
		if err != nil {
			respondError(c, err)
			return
		}

		result := datatypes.NewImportResult(len(records), report)
		if m := observability.Default; m != nil {
			m.RecordImport(result.Imported, result.Updated, result.Failed,
				report.Duration.Seconds())
		}
		slog.Info("import finished", "format", format, "total", result.TotalRecords,
			"imported", result.Imported, "updated", result.Updated, "failed", result.Failed)

		status := http.StatusOK
		if result.Failed > 0 {
			// Partial success keeps what landed.
			status = http.StatusMultiStatus
		}
		c.JSON(status, result)
	}
}

// ExportAssets streams the full inventory in the requested serialization.
func ExportAssets(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := transfer.ParseFormat(c.Param("format"))
		if err != nil {
			respondError(c, err)
			return
		}

		ctx := c.Request.Context()
		assets, err := store.ListAssets(ctx, storage.AssetFilter{})
		if err != nil {
			respondError(c, err)
			return
		}

		// Parent names resolve from the same listing; every parent of a
		// stored asset is itself stored.
		names := make(map[string]string, len(assets))
		for _, a := range assets {
			names[a.ID.String()] = a.Name
		}
		rows := make([]transfer.ExportRow, 0, len(assets))
		for _, a := range assets {
			parentName := ""
			if a.ParentID != nil {
				parentName = names[a.ParentID.String()]
			}
			rows = append(rows, transfer.NewExportRow(a, parentName))
		}

		var buf bytes.Buffer
		if err := transfer.EncodeRows(format, &buf, rows); err != nil {
			respondError(c, err)
			return
		}

		c.Header("Content-Disposition",
			fmt.Sprintf("attachment; filename=assets.%s", format))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}
