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
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/AssetDNA/cmd/assetdna/config"
)

// getServerBaseURL returns the address of the AssetDNA service.
func getServerBaseURL() string {
	// 1. Priority: Environment Variable (Used by Tests & Docker overrides)
	if url := os.Getenv("ASSETDNA_SERVER_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	// 2. Default: Host/Port from the config file
	return fmt.Sprintf("http://%s:%d", config.Global.Server.Host, config.Global.Server.Port)
}

// apiClient returns an HTTP client bounded by the configured timeout.
func apiClient() *http.Client {
	timeout := time.Duration(config.Global.Server.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET against the service and decodes the response
// body into out. Non-2xx responses are returned as errors carrying the
// service's error message when one is present.
func getJSON(path string, out any) error {
	resp, err := apiClient().Get(getServerBaseURL() + path)
	if err != nil {
		return fmt.Errorf("failed to connect to the AssetDNA service: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// checkResponse turns a non-2xx response into an error, preferring the
// "error" field of a JSON body over the bare HTTP status.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("service returned %s: %s", resp.Status, apiErr.Error)
	}
	return fmt.Errorf("service returned an error: %s", resp.Status)
}

// printRawJSON pretty-prints v for the --json output mode.
func printRawJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render JSON output: %v", err)
	}
	fmt.Println(string(data))
}

// inferFormat resolves the transfer format from the --format flag or,
// when the flag is empty, from the file extension.
func inferFormat(flagValue, filename string) string {
	if flagValue != "" {
		return strings.ToLower(flagValue)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".xml":
		return "xml"
	default:
		return ""
	}
}
