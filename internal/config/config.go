package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvDatabasePath = "LITEDB_DATABASE_PATH"
	EnvBusyTimeout  = "LITEDB_BUSY_TIMEOUT"
	EnvStepPolicy   = "LITEDB_STEP_POLICY"
	EnvLogLevel     = "LITEDB_LOG_LEVEL"
	EnvLogFormat    = "LITEDB_LOG_FORMAT"
	EnvLogOutput    = "LITEDB_LOG_OUTPUT"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// DatabaseConfig contains connection settings.
type DatabaseConfig struct {
	Path        string        `yaml:"path" json:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`
	StepPolicy  string        `yaml:"step_policy" json:"step_policy"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// schema constrains a Config after it has been encoded to CUE. Durations
// encode as integer nanoseconds.
const schema = `
#Config: {
	database: {
		path:         string
		busy_timeout: int & >=0
		step_policy:  "" | "stop" | "continue"
	}
	logging: {
		level:  "" | "debug" | "info" | "warn" | "warning" | "error"
		format: "" | "text" | "json"
		output: "" | "stdout" | "stderr"
	}
}
`

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			BusyTimeout: 60 * time.Second,
			StepPolicy:  "stop",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from path, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvDatabasePath); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv(EnvBusyTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvBusyTimeout, err)
		}
		cfg.Database.BusyTimeout = d
	}
	if v := os.Getenv(EnvStepPolicy); v != "" {
		cfg.Database.StepPolicy = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvLogOutput); v != "" {
		cfg.Logging.Output = v
	}
	return nil
}

// Validate checks the configuration against the schema and reports every
// violation with its field path.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	v := def.Unify(ctx.Encode(normalize(*c)))
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range cueerrors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
}

// normalize lower-cases the enumerated settings so the schema accepts any
// spelling of them.
func normalize(c Config) Config {
	c.Database.StepPolicy = strings.ToLower(strings.TrimSpace(c.Database.StepPolicy))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	return c
}
