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
	"errors"
	"fmt"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
)

// BOM document formats recognized by ParseBOM.
const (
	BOMFormatCycloneDX = "CycloneDX"
	BOMFormatSPDX      = "SPDX"
	BOMFormatCustom    = "custom"
)

// ErrNoComponents indicates a BOM document with no extractable entries.
var ErrNoComponents = errors.New("no components in BOM document")

// DetectBOMFormat sniffs a decoded BOM document.
//
// CycloneDX declares bomFormat and specVersion at the top level; SPDX
// declares spdxVersion. Anything else is treated as a custom layout.
func DetectBOMFormat(doc map[string]any) string {
	if _, ok := doc["bomFormat"]; ok {
		if _, ok := doc["specVersion"]; ok {
			return BOMFormatCycloneDX
		}
	}
	if _, ok := doc["spdxVersion"]; ok {
		return BOMFormatSPDX
	}
	return BOMFormatCustom
}

// ParseBOM extracts BOM items from a decoded JSON document.
//
// # Description
//
// Sniffs the format, then pulls the component list from the
// format-specific key: CycloneDX components, SPDX packages, and for
// custom layouts the first of components, packages, or items. Each
// component's full source map is preserved in the item's Properties so
// nothing is lost across the normalization.
//
// Quantity defaults to 1 when the source does not carry one; slot is
// honored only in custom layouts (CycloneDX and SPDX have no slot
// concept).
//
// # Outputs
//
//   - string - The detected format.
//   - []asset.BOMItem - Items in document order.
//   - error - ErrNoComponents when nothing extractable is present.
func ParseBOM(doc map[string]any) (string, []asset.BOMItem, error) {
	format := DetectBOMFormat(doc)

	var components []any
	switch format {
	case BOMFormatCycloneDX:
		components, _ = doc["components"].([]any)
	case BOMFormatSPDX:
		components, _ = doc["packages"].([]any)
	default:
		for _, key := range []string{"components", "packages", "items"} {
			if list, ok := doc[key].([]any); ok {
				components = list
				break
			}
		}
	}
	if len(components) == 0 {
		return format, nil, ErrNoComponents
	}

	items := make([]asset.BOMItem, 0, len(components))
	for i, raw := range components {
		comp, ok := raw.(map[string]any)
		if !ok {
			return format, nil, fmt.Errorf("component %d is not an object", i)
		}
		items = append(items, parseComponent(format, i, comp))
	}
	return format, items, nil
}

func parseComponent(format string, idx int, comp map[string]any) asset.BOMItem {
	item := asset.BOMItem{Quantity: 1, Properties: comp}

	switch format {
	case BOMFormatCycloneDX:
		item.ComponentID = stringField(comp, "bom-ref", "name")
		item.Name = stringField(comp, "name")
		item.Version = stringField(comp, "version")
	case BOMFormatSPDX:
		item.ComponentID = stringField(comp, "SPDXID", "name")
		item.Name = stringField(comp, "name")
		item.Version = stringField(comp, "versionInfo")
	default:
		item.ComponentID = stringField(comp, "id", "name")
		item.Name = stringField(comp, "name", "title")
		item.Version = stringField(comp, "version", "ver")
		item.Slot = stringField(comp, "slot")
		if qty, ok := comp["quantity"].(float64); ok && qty >= 1 {
			item.Quantity = int(qty)
		}
	}
	if item.ComponentID == "" {
		item.ComponentID = fmt.Sprintf("comp_%d", idx)
	}
	return item
}

// stringField returns the first non-empty string value among keys.
func stringField(comp map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := comp[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
