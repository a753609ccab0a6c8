// Package confloader provides configuration loading mechanism.
//
// This package implements a flexible configuration loader that supports
// multiple sources using koanf as the underlying library.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables
//  3. Configuration file (YAML)
//  4. Default values already present in the target struct
//
// Environment variables use a double underscore between sections so that
// keys may contain single underscores:
//
//	REGMESH_STORAGE__DATA_DIR=/data  ->  storage.data_dir
//
// Watcher reports changes of the configuration file so that reloadable
// settings can be applied without a restart.
package confloader
