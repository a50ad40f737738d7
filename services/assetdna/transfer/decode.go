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

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
)

// DecodeRecords reads an import document into ordered raw records.
//
// # Description
//
// Dispatches on format. Structural errors (bad CSV framing, malformed
// JSON/XML, a missing required column) fail the whole decode; a malformed
// cell within a row fails with a RowError naming the row. Semantic
// validation (taxonomy, parent existence) is the hierarchy builder's job,
// not the decoder's.
//
// # Inputs
//
//   - format - One of FormatCSV, FormatJSON, FormatXML.
//   - r - The document body.
//
// # Outputs
//
//   - []asset.RawRecord - Records in document order.
//   - error - Non-nil on structural or per-row decode failure.
func DecodeRecords(format Format, r io.Reader) ([]asset.RawRecord, error) {
	switch format {
	case FormatCSV:
		return decodeCSV(r)
	case FormatJSON:
		return decodeJSON(r)
	case FormatXML:
		return decodeXML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// requiredColumns must appear in a CSV header.
var requiredColumns = []string{"name", "asset_type", "parent_name"}

func decodeCSV(r io.Reader) ([]asset.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty document", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, name)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []asset.RawRecord
	for rowNum := 1; ; rowNum++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RowError{Row: rowNum, Err: err}
		}

		rec := asset.RawRecord{
			Name:           cell(row, "name"),
			Type:           cell(row, "asset_type"),
			ParentName:     cell(row, "parent_name"),
			Description:    cell(row, "description"),
			Status:         cell(row, "status"),
			LifecycleStage: cell(row, "lifecycle_stage"),
			ExternalID:     cell(row, "external_id"),
			ExternalSystem: cell(row, "external_system"),
			Version:        cell(row, "version"),
		}
		if raw := cell(row, "properties"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &rec.Properties); err != nil {
				return nil, &RowError{Row: rowNum, Err: fmt.Errorf("properties: %w", err)}
			}
		}
		if raw := cell(row, "tags"); raw != "" {
			rec.Tags = splitTags(raw)
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeJSON(r io.Reader) ([]asset.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	// A single object imports as a one-record batch.
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var rec asset.RawRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		return []asset.RawRecord{rec}, nil
	}

	var out []asset.RawRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}

// xmlAssetDoc mirrors the <assets> export document.
type xmlAssetDoc struct {
	XMLName xml.Name   `xml:"assets"`
	Assets  []xmlAsset `xml:"asset"`
}

type xmlAsset struct {
	ID             string        `xml:"id,attr,omitempty"`
	URN            string        `xml:"urn,attr,omitempty"`
	Name           string        `xml:"name"`
	Description    string        `xml:"description,omitempty"`
	Type           string        `xml:"asset_type"`
	ParentName     string        `xml:"parent_name,omitempty"`
	Status         string        `xml:"status,omitempty"`
	LifecycleStage string        `xml:"lifecycle_stage,omitempty"`
	ExternalID     string        `xml:"external_id,omitempty"`
	ExternalSystem string        `xml:"external_system,omitempty"`
	Version        string        `xml:"version,omitempty"`
	Properties     xmlProperties `xml:"properties"`
	Tags           xmlTags       `xml:"tags"`
	CreatedAt      string        `xml:"created_at,omitempty"`
	UpdatedAt      string        `xml:"updated_at,omitempty"`
}

type xmlProperties struct {
	Properties []xmlProperty `xml:"property"`
}

type xmlProperty struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlTags struct {
	Tags []string `xml:"tag"`
}

func decodeXML(r io.Reader) ([]asset.RawRecord, error) {
	var doc xmlAssetDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	out := make([]asset.RawRecord, 0, len(doc.Assets))
	for _, a := range doc.Assets {
		rec := asset.RawRecord{
			Name:           strings.TrimSpace(a.Name),
			Type:           strings.TrimSpace(a.Type),
			ParentName:     strings.TrimSpace(a.ParentName),
			Description:    a.Description,
			Status:         a.Status,
			LifecycleStage: a.LifecycleStage,
			ExternalID:     a.ExternalID,
			ExternalSystem: a.ExternalSystem,
			Version:        a.Version,
		}
		if len(a.Properties.Properties) > 0 {
			rec.Properties = make(map[string]any, len(a.Properties.Properties))
			for _, p := range a.Properties.Properties {
				rec.Properties[p.Key] = p.Value
			}
		}
		if len(a.Tags.Tags) > 0 {
			rec.Tags = append(rec.Tags, a.Tags.Tags...)
		}
		out = append(out, rec)
	}
	return out, nil
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
