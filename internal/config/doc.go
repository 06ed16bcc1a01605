// Package config loads the station configuration for pase.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/pase/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// Files ending in .yaml or .yml are parsed as YAML; everything else as TOML.
//
// # Default Values
//
//   - API url: http://127.0.0.1:3000/api/comanda
//   - NATS url: nats://127.0.0.1:4222
//   - Subject prefix: cocina
//   - Timezone: America/Lima
//   - Log file: ~/.local/share/pase/pase.log
//   - Report directory: ~/.local/share/pase/reportes
//
// # TOML Format
//
//	api_url = "http://192.168.1.20:3000"
//	nats_url = "nats://192.168.1.20:4222"
//	timezone = "America/Lima"
//	log_level = "debug"
//
// The api_url is normalized to end in /api/comanda, so a bare host works.
// Tilde expansion is performed for log_path and report_dir.
//
// # Business Day
//
// Orders are grouped by the calendar day in the configured timezone. A board
// left running past midnight rolls over to the new day; see BusinessDay.
//
// Missing config files are not an error, so a station works out of the box
// against a backend on localhost.
package config
