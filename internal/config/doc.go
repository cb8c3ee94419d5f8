// Package config loads livetex configuration.
//
// Configuration is resolved in three steps, each overriding the previous:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension
//  3. LIVETEX_* environment variables
//
// The result is validated before it is returned. A missing file is not an
// error; defaults are used instead.
//
// Example livetex.toml:
//
//	[editor]
//	quiet_period = "900ms"
//
//	[compile]
//	url = "http://localhost:8000/compile"
//	engine = "pdflatex"
//	timeout = "30s"
//
//	[lint]
//	url = "http://localhost:8000/lint"
//
//	[artifact]
//	spill_dir = "/tmp/livetex"
package config
