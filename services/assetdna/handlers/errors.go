// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP handlers for the AssetDNA service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/bom"
	"github.com/AleutianAI/AssetDNA/services/assetdna/hierarchy"
	"github.com/AleutianAI/AssetDNA/services/assetdna/identity"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/AleutianAI/AssetDNA/services/assetdna/transfer"
)

// respondError maps domain errors to HTTP status codes and writes the
// standard error body.
//
// Cyclic batches carry their path in the payload so callers can see which
// records form the loop.
func respondError(c *gin.Context, err error) {
	var cycle *hierarchy.CycleError
	if errors.As(err, &cycle) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": cycle.Error(),
			"path":  cycle.Path,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, bom.ErrNonMonotonic),
		errors.Is(err, bom.ErrNotLeaf),
		errors.Is(err, bom.ErrNoBOMCapability),
		errors.Is(err, identity.ErrAmbiguousParent),
		errors.Is(err, identity.ErrTypeMismatch):
		status = http.StatusConflict
	case errors.Is(err, asset.ErrUnknownType),
		errors.Is(err, asset.ErrInvalidHierarchy),
		errors.Is(err, asset.ErrInvalidStatus),
		errors.Is(err, bom.ErrDuplicateItem),
		errors.Is(err, bom.ErrInvalidQuantity),
		errors.Is(err, hierarchy.ErrOrphanAsset),
		errors.Is(err, hierarchy.ErrEmptyName),
		errors.Is(err, transfer.ErrUnknownFormat),
		errors.Is(err, transfer.ErrMissingColumns),
		errors.Is(err, transfer.ErrNoComponents):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest writes a 400 with a plain message.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
