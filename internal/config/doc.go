// Package config loads litedb settings.
//
// Settings come from built-in defaults, then an optional YAML file, then
// LITEDB_* environment variables, and are finally checked against a CUE
// schema:
//
//	database:
//	  path: "/var/lib/app/app.db"  # empty: the per-user default database
//	  busy_timeout: "60s"
//	  step_policy: "stop"         # stop, continue
//	logging:
//	  level: "warn"               # debug, info, warn, error
//	  format: "text"              # text, json
//	  output: "stderr"            # stdout, stderr
package config
