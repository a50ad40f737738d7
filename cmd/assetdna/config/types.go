// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

// AssetDNAConfig is the on-disk CLI configuration, stored at
// ~/.assetdna/assetdna.yaml.
type AssetDNAConfig struct {
	// Server: where the AssetDNA service is listening
	Server ServerConfig `yaml:"server"`

	// Output: display preferences for CLI results
	Output OutputConfig `yaml:"output"`
}

type ServerConfig struct {
	Host string `yaml:"host"` // e.g. localhost
	Port int    `yaml:"port"` // e.g. 10001
	// TimeoutSeconds bounds each API request. Imports of large
	// files may need a higher value.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type OutputConfig struct {
	// Format can be "table" or "json"
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() AssetDNAConfig {
	return AssetDNAConfig{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           10001,
			TimeoutSeconds: 60,
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}
