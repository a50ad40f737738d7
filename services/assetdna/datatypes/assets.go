// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the AssetDNA
// service.
//
// This file contains asset CRUD and tree types. BOM types live in bom.go,
// change-report types in reports.go, and import/export types in transfer.go.
package datatypes

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxNameBytes is the maximum size of an asset name.
	MaxNameBytes = 512

	// MaxRecordsPerImport is the maximum number of records in one import
	// batch. Oversized batches must be split by the caller.
	MaxRecordsPerImport = 10000

	// MaxItemsPerBOM is the maximum number of items in one BOM snapshot.
	MaxItemsPerBOM = 5000
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// validate is the validator instance for AssetDNA datatypes.
// Initialized in init() with custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("assettype", validateAssetType)
	_ = validate.RegisterValidation("assetstatus", validateAssetStatus)

	// The same validators must exist on gin's binding engine, which runs
	// the binding tags during ShouldBindJSON.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("assettype", validateAssetType)
		_ = v.RegisterValidation("assetstatus", validateAssetStatus)
	}
}

// validateAssetType checks a string field against the fixed taxonomy.
func validateAssetType(fl validator.FieldLevel) bool {
	_, err := asset.ParseType(fl.Field().String())
	return err == nil
}

// validateAssetStatus checks a string field against the allowed statuses.
// Empty is allowed; the zero value defaults to active downstream.
func validateAssetStatus(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || asset.Status(v).IsValid()
}

// =============================================================================
// Asset Requests
// =============================================================================

// CreateAssetRequest is the body for POST /v1/assets.
//
// ParentID is optional; root assets omit it. The URN is derived by the
// service, never supplied by the caller.
type CreateAssetRequest struct {
	Name           string         `json:"name" binding:"required,min=1,max=512"`
	Type           string         `json:"asset_type" binding:"required,assettype"`
	ParentID       *uuid.UUID     `json:"parent_id,omitempty"`
	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status,omitempty" binding:"omitempty,assetstatus"`
	LifecycleStage string         `json:"lifecycle_stage,omitempty"`
	ExternalID     string         `json:"external_id,omitempty"`
	ExternalSystem string         `json:"external_system,omitempty"`
	Version        string         `json:"version,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}

// Validate runs struct validation beyond gin's binding tags.
func (r *CreateAssetRequest) Validate() error {
	return validate.Struct(r)
}

// UpdateAssetRequest is the body for PUT /v1/assets/:id.
//
// Pointer fields distinguish "leave unchanged" (nil) from "set to zero
// value". Type, parent, ID, and URN are immutable through this request;
// re-parenting goes through the move operation.
type UpdateAssetRequest struct {
	Name           *string        `json:"name,omitempty" binding:"omitempty,min=1,max=512"`
	Description    *string        `json:"description,omitempty"`
	Status         *string        `json:"status,omitempty" binding:"omitempty,assetstatus"`
	LifecycleStage *string        `json:"lifecycle_stage,omitempty"`
	ExternalID     *string        `json:"external_id,omitempty"`
	ExternalSystem *string        `json:"external_system,omitempty"`
	Version        *string        `json:"version,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}

// MoveAssetRequest is the body for POST /v1/assets/:id/move.
// A nil NewParentID moves the asset to the root level.
type MoveAssetRequest struct {
	NewParentID *uuid.UUID `json:"new_parent_id"`
}

// CopyAssetRequest is the body for POST /v1/assets/:id/copy.
type CopyAssetRequest struct {
	// TargetParentID is the parent for the copy. Nil copies to the
	// original's parent.
	TargetParentID *uuid.UUID `json:"target_parent_id,omitempty"`

	// NewName overrides the default "<name> (Copy)" naming.
	NewName string `json:"new_name,omitempty" binding:"omitempty,min=1,max=512"`
}

// =============================================================================
// Asset Responses
// =============================================================================

// AssetResponse is the canonical wire shape of one asset.
type AssetResponse struct {
	ID             uuid.UUID      `json:"id"`
	URN            string         `json:"urn"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Type           string         `json:"asset_type"`
	TypeRank       int            `json:"type_rank"`
	ParentID       *uuid.UUID     `json:"parent_id,omitempty"`
	Status         string         `json:"status"`
	LifecycleStage string         `json:"lifecycle_stage,omitempty"`
	ExternalID     string         `json:"external_id,omitempty"`
	ExternalSystem string         `json:"external_system,omitempty"`
	Version        string         `json:"version,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	CanHaveBOM     bool           `json:"can_have_bom"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewAssetResponse converts a domain asset to its wire shape.
func NewAssetResponse(a *asset.Asset) AssetResponse {
	return AssetResponse{
		ID:             a.ID,
		URN:            a.URN,
		Name:           a.Name,
		Description:    a.Description,
		Type:           a.Type.String(),
		TypeRank:       a.Type.Rank(),
		ParentID:       a.ParentID,
		Status:         a.Status.String(),
		LifecycleStage: a.LifecycleStage,
		ExternalID:     a.ExternalID,
		ExternalSystem: a.ExternalSystem,
		Version:        a.Version,
		Properties:     a.Properties,
		Tags:           a.Tags,
		CanHaveBOM:     a.Type.CanHaveBOM(),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// TreeNode is one node of the recursive tree view.
type TreeNode struct {
	AssetResponse
	Children []*TreeNode `json:"children"`
}

// TypeInfo describes one entry of the fixed taxonomy.
type TypeInfo struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	Rank       int    `json:"rank"`
	CanHaveBOM bool   `json:"can_have_bom"`
}

// AllTypeInfos returns the taxonomy in rank order for the types endpoint.
func AllTypeInfos() []TypeInfo {
	types := asset.AllTypes()
	out := make([]TypeInfo, 0, len(types))
	for _, t := range types {
		out = append(out, TypeInfo{
			Name:       t.String(),
			Code:       t.Code(),
			Rank:       t.Rank(),
			CanHaveBOM: t.CanHaveBOM(),
		})
	}
	return out
}
