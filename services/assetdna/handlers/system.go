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

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/datatypes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// ServiceVersion is the reported service version.
const ServiceVersion = "1.0.0"

// HealthCheck reports liveness plus backend reachability.
func HealthCheck(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable,
				gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// SystemInfo identifies the service and its active storage backend.
func SystemInfo(backend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.SystemInfoResponse{
			Name:    "AssetDNA",
			Version: ServiceVersion,
			Status:  "operational",
			Backend: backend,
		})
	}
}

// ListAuditEvents returns the audit trail, newest first.
//
// Query parameters: entity_id (optional), limit (default 100).
func ListAuditEvents(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := uuid.Nil
		if raw := c.Query("entity_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				badRequest(c, fmt.Sprintf("invalid entity_id %q", raw))
				return
			}
			entityID = id
		}
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				badRequest(c, fmt.Sprintf("invalid limit %q", raw))
				return
			}
			limit = n
		}

		events, err := store.ListEvents(c.Request.Context(), entityID, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": len(events), "events": events})
	}
}
