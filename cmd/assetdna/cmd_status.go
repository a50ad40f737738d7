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

	"github.com/spf13/cobra"
)

func runStatus(cmd *cobra.Command, args []string) {
	var health struct {
		Status string `json:"status"`
	}
	if err := getJSON("/health", &health); err != nil {
		log.Fatalf("Service is unreachable at %s: %v", getServerBaseURL(), err)
	}

	var info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Backend string `json:"backend"`
	}
	if err := getJSON("/v1/system/info", &info); err != nil {
		log.Fatalf("Failed to fetch system info: %v", err)
	}

	if outputJSON {
		printRawJSON(map[string]any{"health": health, "info": info})
		return
	}
	fmt.Printf("%s %s: %s (backend: %s) at %s\n",
		info.Name, info.Version, health.Status, info.Backend, getServerBaseURL())
}
