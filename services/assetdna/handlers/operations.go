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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/audit"
	"github.com/AleutianAI/AssetDNA/services/assetdna/datatypes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/identity"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// MoveAsset re-parents an asset and recomputes URNs for its subtree.
//
// # Description
//
// The move is refused when the target parent's type cannot contain the
// asset's type, when the target sits inside the asset's own subtree, or
// when the new sibling scope already has an asset of the same name. The
// re-parent and every URN rewrite commit in one transaction.
func MoveAsset(store storage.Store, resolver *identity.Resolver, recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req datatypes.MoveAssetRequest
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

		var newParent *asset.Asset
		if req.NewParentID != nil {
			if *req.NewParentID == id {
				c.JSON(http.StatusUnprocessableEntity,
					gin.H{"error": "asset cannot become its own parent"})
				return
			}
			newParent, err = store.GetAsset(ctx, *req.NewParentID)
			if err != nil {
				respondError(c, err)
				return
			}
			if err := asset.ValidateHierarchy(newParent.Type, a.Type); err != nil {
				respondError(c, err)
				return
			}
			inSubtree, err := isDescendant(ctx, store, id, newParent)
			if err != nil {
				respondError(c, err)
				return
			}
			if inSubtree {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error": fmt.Sprintf("cannot move %q under its own descendant %q",
						a.Name, newParent.Name),
				})
				return
			}
		}

		if _, err := store.FindByParentAndName(ctx, req.NewParentID, a.Name); err == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("an asset named %q already exists at the target", a.Name),
			})
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			respondError(c, err)
			return
		}

		oldURN := a.URN
		err = store.WithTx(ctx, func(tx storage.Store) error {
			a.ParentID = req.NewParentID
			a.URN = resolver.DeriveURN(a.Type, newParent, a.Name)
			a.UpdatedAt = time.Now().UTC()
			if err := tx.UpdateAsset(ctx, a); err != nil {
				return err
			}
			if err := rederiveSubtree(ctx, tx, resolver, a); err != nil {
				return err
			}
			recorder.RecordTo(ctx, tx, "asset", a.ID, asset.AuditMove,
				map[string]any{"urn": oldURN},
				map[string]any{"urn": a.URN, "parent_id": req.NewParentID},
				fmt.Sprintf("moved %s to %s", oldURN, a.URN))
			return nil
		})
		if err != nil {
			respondError(c, err)
			return
		}

		slog.Info("asset moved", "id", a.ID, "from", oldURN, "to", a.URN)
		c.JSON(http.StatusOK, datatypes.NewAssetResponse(a))
	}
}

// CopyAsset deep-copies an asset subtree under a target parent.
//
// Every copied node gets a fresh ID and a URN derived from its new path;
// the copy root is named "<name> (Copy)" unless the request overrides it.
func CopyAsset(store storage.Store, resolver *identity.Resolver, recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req datatypes.CopyAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		src, err := store.GetAsset(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		targetID := req.TargetParentID
		if targetID == nil {
			targetID = src.ParentID
		}
		var target *asset.Asset
		if targetID != nil {
			target, err = store.GetAsset(ctx, *targetID)
			if err != nil {
				respondError(c, err)
				return
			}
			if err := asset.ValidateHierarchy(target.Type, src.Type); err != nil {
				respondError(c, err)
				return
			}
		}

		name := req.NewName
		if name == "" {
			name = src.Name + " (Copy)"
		}
		if _, err := store.FindByParentAndName(ctx, targetID, name); err == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("an asset named %q already exists at the target", name),
			})
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			respondError(c, err)
			return
		}

		var copied *asset.Asset
		err = store.WithTx(ctx, func(tx storage.Store) error {
			var err error
			copied, err = copySubtree(ctx, tx, resolver, src, target, name)
			if err != nil {
				return err
			}
			recorder.RecordTo(ctx, tx, "asset", copied.ID, asset.AuditCopy,
				map[string]any{"source_id": src.ID, "source_urn": src.URN},
				map[string]any{"urn": copied.URN},
				fmt.Sprintf("copied %s to %s", src.URN, copied.URN))
			return nil
		})
		if err != nil {
			respondError(c, err)
			return
		}

		slog.Info("asset copied", "source", src.ID, "copy", copied.ID, "urn", copied.URN)
		c.JSON(http.StatusCreated, datatypes.NewAssetResponse(copied))
	}
}

// isDescendant reports whether candidate sits in the subtree rooted at id.
func isDescendant(ctx context.Context, store storage.AssetStore, id uuid.UUID, candidate *asset.Asset) (bool, error) {
	seen := map[uuid.UUID]bool{}
	for cur := candidate; cur != nil; {
		if cur.ID == id {
			return true, nil
		}
		if cur.ParentID == nil {
			return false, nil
		}
		if seen[cur.ID] {
			return false, fmt.Errorf("ancestor cycle at %s", cur.Name)
		}
		seen[cur.ID] = true
		parent, err := store.GetAsset(ctx, *cur.ParentID)
		if err != nil {
			return false, err
		}
		cur = parent
	}
	return false, nil
}

// rederiveSubtree rewrites URNs below a moved asset, depth first. The
// parent's URN must already reflect its new position.
func rederiveSubtree(ctx context.Context, tx storage.Store, resolver *identity.Resolver, parent *asset.Asset) error {
	children, err := tx.ListChildren(ctx, &parent.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		child.URN = resolver.DeriveURN(child.Type, parent, child.Name)
		child.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateAsset(ctx, child); err != nil {
			return err
		}
		if err := rederiveSubtree(ctx, tx, resolver, child); err != nil {
			return err
		}
	}
	return nil
}

// copySubtree clones src (renamed to name) under target and recurses into
// its children, preserving their names.
func copySubtree(ctx context.Context, tx storage.Store, resolver *identity.Resolver,
	src, target *asset.Asset, name string) (*asset.Asset, error) {

	now := time.Now().UTC()
	clone := *src
	clone.ID = uuid.New()
	clone.Name = name
	clone.ParentID = nil
	if target != nil {
		tid := target.ID
		clone.ParentID = &tid
	}
	clone.URN = resolver.DeriveURN(clone.Type, target, name)
	clone.CreatedAt = now
	clone.UpdatedAt = now
	if err := tx.CreateAsset(ctx, &clone); err != nil {
		return nil, err
	}

	children, err := tx.ListChildren(ctx, &src.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if _, err := copySubtree(ctx, tx, resolver, child, &clone, child.Name); err != nil {
			return nil, err
		}
	}
	return &clone, nil
}
