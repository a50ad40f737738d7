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
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var transferContentTypes = map[string]string{
	"csv":  "text/csv",
	"json": "application/json",
	"xml":  "application/xml",
}

func runImport(cmd *cobra.Command, args []string) {
	filename := args[0]
	format := inferFormat(transferFormat, filename)
	if format == "" {
		log.Fatalf("Cannot infer format of %q; pass --format csv|json|xml", filename)
	}
	contentType, ok := transferContentTypes[format]
	if !ok {
		log.Fatalf("Unsupported format %q; expected csv, json, or xml", format)
	}

	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", filename, err)
	}
	defer file.Close()

	importURL := fmt.Sprintf("%s/v1/transfer/import/%s", getServerBaseURL(), format)
	resp, err := apiClient().Post(importURL, contentType, file)
	if err != nil {
		log.Fatalf("Failed to send import request: %v", err)
	}
	defer resp.Body.Close()

	// 207 Multi-Status carries a result body with per-record errors,
	// so it is reported rather than treated as a hard failure.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		log.Fatalf("Import failed: %v", checkResponse(resp))
	}

	var result struct {
		Success      bool `json:"success"`
		TotalRecords int  `json:"total_records"`
		Imported     int  `json:"imported"`
		Updated      int  `json:"updated"`
		Failed       int  `json:"failed"`
		Errors       []struct {
			Name       string `json:"name"`
			ParentName string `json:"parent_name,omitempty"`
			Error      string `json:"error"`
		} `json:"errors,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatalf("Failed to parse import result: %v", err)
	}

	if outputJSON {
		printRawJSON(result)
		return
	}
	fmt.Printf("Import finished: %d records, %d imported, %d updated, %d failed\n",
		result.TotalRecords, result.Imported, result.Updated, result.Failed)
	for _, e := range result.Errors {
		fmt.Printf("  FAILED %s: %s\n", e.Name, e.Error)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func runExport(cmd *cobra.Command, args []string) {
	filename := ""
	if len(args) > 0 {
		filename = args[0]
	}
	format := inferFormat(transferFormat, filename)
	if format == "" {
		format = "csv"
	}
	if _, ok := transferContentTypes[format]; !ok {
		log.Fatalf("Unsupported format %q; expected csv, json, or xml", format)
	}

	exportURL := fmt.Sprintf("%s/v1/transfer/export/%s", getServerBaseURL(), format)
	resp, err := apiClient().Get(exportURL)
	if err != nil {
		log.Fatalf("Failed to send export request: %v", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	out := io.Writer(os.Stdout)
	if filename != "" {
		f, err := os.Create(filename)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}
		defer f.Close()
		out = f
	}
	n, err := io.Copy(out, resp.Body)
	if err != nil {
		log.Fatalf("Failed to write export data: %v", err)
	}
	if filename != "" {
		fmt.Printf("Exported %d bytes to %s\n", n, filename)
	}
}
