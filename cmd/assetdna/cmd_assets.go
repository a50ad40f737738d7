// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// assetInfo mirrors the service's asset response fields the cli displays.
type assetInfo struct {
	ID         string `json:"id"`
	URN        string `json:"urn"`
	Name       string `json:"name"`
	Type       string `json:"asset_type"`
	TypeRank   int    `json:"type_rank"`
	ParentID   string `json:"parent_id,omitempty"`
	Status     string `json:"status"`
	CanHaveBOM bool   `json:"can_have_bom"`
}

type treeNode struct {
	assetInfo
	Children []*treeNode `json:"children"`
}

func runListAssets(cmd *cobra.Command, args []string) {
	params := url.Values{}
	if assetTypeFilter != "" {
		params.Set("asset_type", assetTypeFilter)
	}
	if statusFilter != "" {
		params.Set("status", statusFilter)
	}
	if parentFilter != "" {
		params.Set("parent_id", parentFilter)
	}
	if searchFilter != "" {
		params.Set("search", searchFilter)
	}
	if listLimit > 0 {
		params.Set("limit", strconv.Itoa(listLimit))
	}
	path := "/v1/assets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var result struct {
		Total  int         `json:"total"`
		Assets []assetInfo `json:"assets"`
	}
	if err := getJSON(path, &result); err != nil {
		log.Fatalf("Failed to list assets: %v", err)
	}

	if outputJSON {
		printRawJSON(result)
		return
	}
	if result.Total == 0 {
		fmt.Println("No assets found.")
		return
	}
	fmt.Printf("Assets (%d):\n", result.Total)
	fmt.Println("------------------------------------------------------------------")
	for _, a := range result.Assets {
		fmt.Printf("%-36s  %-14s  %-10s  %s\n", a.ID, a.Type, a.Status, a.Name)
	}
}

func runGetAsset(cmd *cobra.Command, args []string) {
	var a map[string]any
	if err := getJSON("/v1/assets/"+url.PathEscape(args[0]), &a); err != nil {
		log.Fatalf("Failed to fetch asset: %v", err)
	}
	printRawJSON(a)
}

func runAssetPath(cmd *cobra.Command, args []string) {
	var result struct {
		Path []assetInfo `json:"path"`
	}
	if err := getJSON("/v1/assets/"+url.PathEscape(args[0])+"/path", &result); err != nil {
		log.Fatalf("Failed to fetch asset path: %v", err)
	}

	if outputJSON {
		printRawJSON(result)
		return
	}
	names := make([]string, 0, len(result.Path))
	for _, a := range result.Path {
		names = append(names, a.Name)
	}
	fmt.Println(strings.Join(names, " / "))
}

func runAssetTree(cmd *cobra.Command, args []string) {
	var result struct {
		Total int         `json:"total"`
		Tree  []*treeNode `json:"tree"`
	}
	if err := getJSON("/v1/assets/tree", &result); err != nil {
		log.Fatalf("Failed to fetch asset tree: %v", err)
	}

	if outputJSON {
		printRawJSON(result)
		return
	}
	if result.Total == 0 {
		fmt.Println("No assets found.")
		return
	}
	for _, root := range result.Tree {
		printTreeNode(root, 0)
	}
}

func printTreeNode(n *treeNode, depth int) {
	fmt.Printf("%s%s  [%s]\n", strings.Repeat("  ", depth), n.Name, n.Type)
	for _, child := range n.Children {
		printTreeNode(child, depth+1)
	}
}

func runAssetTypes(cmd *cobra.Command, args []string) {
	var result struct {
		Types []struct {
			Name       string `json:"name"`
			Code       string `json:"code"`
			Rank       int    `json:"rank"`
			CanHaveBOM bool   `json:"can_have_bom"`
		} `json:"types"`
	}
	if err := getJSON("/v1/assets/types", &result); err != nil {
		log.Fatalf("Failed to fetch asset types: %v", err)
	}

	if outputJSON {
		printRawJSON(result)
		return
	}
	fmt.Println("Asset Types:")
	fmt.Println("------------------------------------------------------------------")
	for _, t := range result.Types {
		bomNote := ""
		if t.CanHaveBOM {
			bomNote = "bom-capable"
		}
		fmt.Printf("%-16s  code=%-4s  rank=%d  %s\n", t.Name, t.Code, t.Rank, bomNote)
	}
}

func runDeleteAsset(cmd *cobra.Command, args []string) {
	assetURL := fmt.Sprintf("%s/v1/assets/%s", getServerBaseURL(), url.PathEscape(args[0]))

	req, err := http.NewRequest(http.MethodDelete, assetURL, nil)
	if err != nil {
		log.Fatalf("Failed to create delete request: %v", err)
	}
	resp, err := apiClient().Do(req)
	if err != nil {
		log.Fatalf("Failed to send delete request: %v", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Successfully deleted asset: %s\n", args[0])
}
