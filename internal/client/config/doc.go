// Package config loads runtime configuration for the TailorBook CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment, optionally seeded from a .env file. Variables already set
//     in the process environment win over the file.
//  3. Optional JSON file selected with -c or -config.
//  4. Command-line flags, which override everything else.
//
// The result is validated before it is returned.
//
// Supported flags
//
//	-d string     path of the local SQLite database
//	-doc string   name of the Google Sheets document
//	-tab string   name of the tab inside the document
//	-cid string   OAuth client id
//	-l string     log level (debug, info, warn, error)
//
// Environment
//
//	TAILORBOOK_CLIENT_ID, TAILORBOOK_CLIENT_SECRET,
//	TAILORBOOK_DATA_PATH, TAILORBOOK_LOG_LEVEL
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "30s" or integer
// nanoseconds:
//
//	{
//	  "data_path": "/home/me/.tailorbook/tailorbook.db",
//	  "document_name": "Tailor Measurements",
//	  "sheet_name": "Measurements",
//	  "client_id": "1234.apps.googleusercontent.com",
//	  "request_timeout": "30s",
//	  "requests_per_second": 5,
//	  "log_level": "info"
//	}
package config
