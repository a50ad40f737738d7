// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AssetDNA/services/assetdna/audit"
	"github.com/AleutianAI/AssetDNA/services/assetdna/bom"
	"github.com/AleutianAI/AssetDNA/services/assetdna/changes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/handlers"
	"github.com/AleutianAI/AssetDNA/services/assetdna/hierarchy"
	"github.com/AleutianAI/AssetDNA/services/assetdna/identity"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// Deps bundles the wired services SetupRoutes needs.
type Deps struct {
	Store    storage.Store
	Resolver *identity.Resolver
	Builder  *hierarchy.Builder
	BOM      *bom.Service
	Engine   *changes.Engine
	Recorder *audit.Recorder

	// Backend names the active storage backend for the info endpoint.
	Backend string
}

func SetupRoutes(router *gin.Engine, d Deps) {
	router.GET("/health", handlers.HealthCheck(d.Store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/system/info", handlers.SystemInfo(d.Backend))
		v1.GET("/audit", handlers.ListAuditEvents(d.Store))

		assets := v1.Group("/assets")
		{
			assets.GET("", handlers.ListAssets(d.Store))
			assets.POST("", handlers.CreateAsset(d.Store, d.Resolver, d.Recorder))
			assets.GET("/types", handlers.ListTypes())
			assets.GET("/tree", handlers.GetTree(d.Store))
			assets.GET("/:id", handlers.GetAsset(d.Store))
			assets.PUT("/:id", handlers.UpdateAsset(d.Store, d.Recorder))
			assets.DELETE("/:id", handlers.DeleteAsset(d.Store, d.Recorder))
			assets.GET("/:id/path", handlers.GetAssetPath(d.Store))
			assets.POST("/:id/move", handlers.MoveAsset(d.Store, d.Resolver, d.Recorder))
			assets.POST("/:id/copy", handlers.CopyAsset(d.Store, d.Resolver, d.Recorder))

			assets.POST("/:id/bom", handlers.UploadBOM(d.BOM))
			assets.GET("/:id/bom/history", handlers.BOMHistory(d.BOM))
			assets.GET("/:id/bom/history/:snapshotId", handlers.GetBOMSnapshot(d.BOM))
			assets.GET("/:id/changes", handlers.ChangeReport(d.Engine))
		}

		transfer := v1.Group("/transfer")
		{
			transfer.POST("/import/:format", handlers.ImportAssets(d.Builder))
			transfer.GET("/export/:format", handlers.ExportAssets(d.Store))
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/summary", handlers.SystemSummary(d.Store))
		}
	}
}
