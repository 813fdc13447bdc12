// Package paths provides the standard per-user directory layout of the shell.
//
// # Directory Structure
//
//	<user config dir>/modshell/
//	  ├── extensions/      (one sub-directory per extension module)
//	  │   └── <module>/module.yaml
//	  └── data/            (profiles, journals)
//	<user cache dir>/modshell/
//	  └── composition.bin  (resolved composition graph cache)
//
// # Usage
//
//	layout, err := paths.Default()
//	cacheFile := layout.CacheFile()
//
// Explicit configuration always wins over these defaults; see
// infrastructure/config.
package paths
