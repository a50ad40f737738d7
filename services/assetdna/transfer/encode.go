// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transfer

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
)

// ExportRow is one asset flattened for export. ParentName replaces the
// internal parent ID so round-tripping through DecodeRecords resolves the
// same tree edges.
type ExportRow struct {
	ID             string         `json:"id"`
	URN            string         `json:"urn"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Type           string         `json:"asset_type"`
	ParentName     string         `json:"parent_name,omitempty"`
	Status         string         `json:"status"`
	LifecycleStage string         `json:"lifecycle_stage,omitempty"`
	ExternalID     string         `json:"external_id,omitempty"`
	ExternalSystem string         `json:"external_system,omitempty"`
	Version        string         `json:"version,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewExportRow flattens an asset. parentName may be empty for roots.
func NewExportRow(a *asset.Asset, parentName string) ExportRow {
	return ExportRow{
		ID:             a.ID.String(),
		URN:            a.URN,
		Name:           a.Name,
		Description:    a.Description,
		Type:           a.Type.String(),
		ParentName:     parentName,
		Status:         a.Status.String(),
		LifecycleStage: a.LifecycleStage,
		ExternalID:     a.ExternalID,
		ExternalSystem: a.ExternalSystem,
		Version:        a.Version,
		Properties:     a.Properties,
		Tags:           a.Tags,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// EncodeRows writes the inventory in the requested serialization.
//
// Column and element layout match what DecodeRecords accepts, so an export
// can be re-imported as-is.
func EncodeRows(format Format, w io.Writer, rows []ExportRow) error {
	switch format {
	case FormatCSV:
		return encodeCSV(w, rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []ExportRow{}
		}
		return enc.Encode(rows)
	case FormatXML:
		return encodeXML(w, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXML:
		return "application/xml"
	default:
		return "application/json"
	}
}

var exportHeader = []string{
	"id", "urn", "name", "description", "asset_type", "parent_name",
	"status", "lifecycle_stage", "external_id", "external_system",
	"version", "properties", "tags", "created_at", "updated_at",
}

func encodeCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		props := "{}"
		if r.Properties != nil {
			data, err := json.Marshal(r.Properties)
			if err != nil {
				return fmt.Errorf("encode properties for %s: %w", r.Name, err)
			}
			props = string(data)
		}
		record := []string{
			r.ID, r.URN, r.Name, r.Description, r.Type, r.ParentName,
			r.Status, r.LifecycleStage, r.ExternalID, r.ExternalSystem,
			r.Version, props, strings.Join(r.Tags, ","),
			r.CreatedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row for %s: %w", r.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeXML(w io.Writer, rows []ExportRow) error {
	doc := xmlAssetDoc{Assets: make([]xmlAsset, 0, len(rows))}
	for _, r := range rows {
		a := xmlAsset{
			ID:             r.ID,
			URN:            r.URN,
			Name:           r.Name,
			Description:    r.Description,
			Type:           r.Type,
			ParentName:     r.ParentName,
			Status:         r.Status,
			LifecycleStage: r.LifecycleStage,
			ExternalID:     r.ExternalID,
			ExternalSystem: r.ExternalSystem,
			Version:        r.Version,
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
			UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
		}
		for k, v := range r.Properties {
			a.Properties.Properties = append(a.Properties.Properties,
				xmlProperty{Key: k, Value: fmt.Sprint(v)})
		}
		a.Tags.Tags = r.Tags
		doc.Assets = append(doc.Assets, a)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return enc.Flush()
}
