// Package config provides centralized configuration management for the
// makerspace usage pipeline. It loads settings from multiple sources,
// validates them, and resolves every artifact path from a single base
// directory.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. config.yaml in the base directory, or the file named by MAKER_CONFIG
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern MAKER_* for namespacing:
//
//	MAKER_BASE_DIR=/srv/makertrends
//	MAKER_LOGGING_LEVEL=debug
//	MAKER_STUDY_START=2015-01-01
//	MAKER_ANALYSIS_MOVING_AVERAGE_WEEKS=4
//	MAKER_ANALYSIS_EXCLUDE_CATEGORIES=Entry
//	MAKER_TERMS_API_APP_ID=...
//
// Closure periods, academic terms and the equipment catalog are structured
// lists and can only be set in config.yaml.
//
// # Path Management
//
//	base, _ := config.ResolveBaseDir("")
//	cfg, _ := config.Load(base)
//	paths := config.GetPaths(base, cfg.Paths)
//	paths.GetEquipmentCSVPath("category", "rank_table")
//
// # Testing
//
// Use Default() for a configuration that needs no environment or files.
package config
