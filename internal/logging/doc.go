// Package logging builds the structured logger used across litedb.
//
// It wraps log/slog: JSON or text output, level filtering and default
// fields (service, version) on every entry. Configuration comes from the
// logging section of the config file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// Never log bound parameter values; they may hold user data.
package logging
