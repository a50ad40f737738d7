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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/audit"
	"github.com/AleutianAI/AssetDNA/services/assetdna/datatypes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/identity"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// pathID parses the :id path parameter. Writes the 400 itself on failure.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid asset id %q", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

// ListTypes returns the fixed asset taxonomy in rank order.
func ListTypes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"types": datatypes.AllTypeInfos()})
	}
}

// ListAssets returns assets matching the query filters.
//
// Query parameters: asset_type, status, parent_id ("root" for roots),
// search (name substring), limit.
func ListAssets(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f storage.AssetFilter

		if raw := c.Query("asset_type"); raw != "" {
			typ, err := asset.ParseType(raw)
			if err != nil {
				respondError(c, err)
				return
			}
			f.Type = typ
		}
		if raw := c.Query("status"); raw != "" {
			st := asset.Status(raw)
			if !st.IsValid() {
				badRequest(c, fmt.Sprintf("invalid status %q", raw))
				return
			}
			f.Status = st
		}
		if raw := c.Query("parent_id"); raw != "" {
			f.HasParentFilter = true
			if raw != "root" {
				pid, err := uuid.Parse(raw)
				if err != nil {
					badRequest(c, fmt.Sprintf("invalid parent_id %q", raw))
					return
				}
				f.ParentID = &pid
			}
		}
		f.NameContains = c.Query("search")
		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				badRequest(c, fmt.Sprintf("invalid limit %q", raw))
				return
			}
			f.Limit = limit
		}

		assets, err := store.ListAssets(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]datatypes.AssetResponse, 0, len(assets))
		for _, a := range assets {
			out = append(out, datatypes.NewAssetResponse(a))
		}
		c.JSON(http.StatusOK, gin.H{"total": len(out), "assets": out})
	}
}

// GetAsset returns one asset by ID.
func GetAsset(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		a, err := store.GetAsset(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.NewAssetResponse(a))
	}
}

// GetAssetPath returns the asset's ancestor chain, root first.
func GetAssetPath(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		a, err := store.GetAsset(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		chain, err := ancestorChain(ctx, store, a)
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]datatypes.AssetResponse, 0, len(chain))
		for _, node := range chain {
			out = append(out, datatypes.NewAssetResponse(node))
		}
		c.JSON(http.StatusOK, gin.H{"path": out})
	}
}

// CreateAsset creates a single asset through the same identity derivation
// the batch ingest uses.
func CreateAsset(store storage.Store, resolver *identity.Resolver, recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		typ, err := asset.ParseType(req.Type)
		if err != nil {
			respondError(c, err)
			return
		}

		var parent *asset.Asset
		if req.ParentID != nil {
			parent, err = store.GetAsset(ctx, *req.ParentID)
			if err != nil {
				respondError(c, err)
				return
			}
			if err := asset.ValidateHierarchy(parent.Type, typ); err != nil {
				respondError(c, err)
				return
			}
		}

		rec := asset.RawRecord{
			Name:           req.Name,
			Type:           req.Type,
			Description:    req.Description,
			Status:         req.Status,
			LifecycleStage: req.LifecycleStage,
			ExternalID:     req.ExternalID,
			ExternalSystem: req.ExternalSystem,
			Version:        req.Version,
			Properties:     req.Properties,
			Tags:           req.Tags,
		}
		res, err := resolver.Resolve(ctx, rec, typ, parent)
		if err != nil {
			respondError(c, err)
			return
		}
		if !res.Created {
			c.JSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("asset %q already exists under this parent", req.Name),
			})
			return
		}

		if err := store.CreateAsset(ctx, res.Asset); err != nil {
			respondError(c, err)
			return
		}
		recorder.Record(ctx, "asset", res.Asset.ID, asset.AuditCreate, nil,
			map[string]any{"name": res.Asset.Name, "urn": res.Asset.URN},
			fmt.Sprintf("created %s", res.Asset.URN))

		slog.Info("asset created", "id", res.Asset.ID, "urn", res.Asset.URN)
		c.JSON(http.StatusCreated, datatypes.NewAssetResponse(res.Asset))
	}
}

// UpdateAsset applies a partial update. Type, parent, and URN are immutable
// here; use the move operation to re-parent.
func UpdateAsset(store storage.Store, recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req datatypes.UpdateAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		a, err := store.GetAsset(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		old := map[string]any{"name": a.Name, "status": a.Status.String()}
		if req.Name != nil {
			a.Name = *req.Name
		}
		if req.Description != nil {
			a.Description = *req.Description
		}
		if req.Status != nil {
			st := asset.Status(*req.Status)
			if !st.IsValid() {
				respondError(c, fmt.Errorf("%w: %q", asset.ErrInvalidStatus, *req.Status))
				return
			}
			a.Status = st
		}
		if req.LifecycleStage != nil {
			a.LifecycleStage = *req.LifecycleStage
		}
		if req.ExternalID != nil {
			a.ExternalID = *req.ExternalID
		}
		if req.ExternalSystem != nil {
			a.ExternalSystem = *req.ExternalSystem
		}
		if req.Version != nil {
			a.Version = *req.Version
		}
		if req.Properties != nil {
			a.Properties = req.Properties
		}
		if req.Tags != nil {
			a.Tags = req.Tags
		}
		a.UpdatedAt = time.Now().UTC()

		if err := store.UpdateAsset(ctx, a); err != nil {
			respondError(c, err)
			return
		}
		recorder.Record(ctx, "asset", a.ID, asset.AuditUpdate, old,
			map[string]any{"name": a.Name, "status": a.Status.String()},
			fmt.Sprintf("updated %s", a.URN))
		c.JSON(http.StatusOK, datatypes.NewAssetResponse(a))
	}
}

// DeleteAsset removes a leaf asset. Assets with children are refused.
func DeleteAsset(store storage.Store, recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		a, err := store.GetAsset(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		hasChildren, err := store.HasChildren(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if hasChildren {
			c.JSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("asset %q has children and cannot be deleted", a.Name),
			})
			return
		}
		if err := store.DeleteAsset(ctx, id); err != nil {
			respondError(c, err)
			return
		}
		recorder.Record(ctx, "asset", id, asset.AuditDelete,
			map[string]any{"name": a.Name, "urn": a.URN}, nil,
			fmt.Sprintf("deleted %s", a.URN))
		slog.Info("asset deleted", "id", id, "urn", a.URN)
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
	}
}

// GetTree returns the full hierarchy as nested nodes, roots first.
func GetTree(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, err := store.ListAssets(c.Request.Context(), storage.AssetFilter{})
		if err != nil {
			respondError(c, err)
			return
		}

		nodes := make(map[uuid.UUID]*datatypes.TreeNode, len(assets))
		for _, a := range assets {
			nodes[a.ID] = &datatypes.TreeNode{
				AssetResponse: datatypes.NewAssetResponse(a),
				Children:      []*datatypes.TreeNode{},
			}
		}
		var roots []*datatypes.TreeNode
		for _, a := range assets {
			node := nodes[a.ID]
			if a.ParentID == nil {
				roots = append(roots, node)
				continue
			}
			if parent, ok := nodes[*a.ParentID]; ok {
				parent.Children = append(parent.Children, node)
			} else {
				// Orphaned row; surface it at the root rather than
				// dropping it.
				roots = append(roots, node)
			}
		}
		if roots == nil {
			roots = []*datatypes.TreeNode{}
		}
		c.JSON(http.StatusOK, gin.H{"total": len(assets), "tree": roots})
	}
}

// ancestorChain walks parent links up from a, returning root..a inclusive.
func ancestorChain(ctx context.Context, store storage.AssetStore, a *asset.Asset) ([]*asset.Asset, error) {
	chain := []*asset.Asset{a}
	seen := map[uuid.UUID]bool{a.ID: true}
	for cur := a; cur.ParentID != nil; {
		parent, err := store.GetAsset(ctx, *cur.ParentID)
		if err != nil {
			return nil, fmt.Errorf("resolve ancestor of %s: %w", cur.Name, err)
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("ancestor cycle at %s", parent.Name)
		}
		seen[parent.ID] = true
		chain = append([]*asset.Asset{parent}, chain...)
		cur = parent
	}
	return chain, nil
}
