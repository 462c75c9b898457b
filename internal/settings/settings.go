// Package settings handles loading and validation of application
// settings. Settings are distinct from connection profiles: profiles
// describe remote hosts and are managed by the profile store, settings
// describe how this process behaves.
//
// Settings load in three layers, each overriding the last: built-in
// defaults, an optional sshdeck.yaml or sshdeck.toml file, and
// SSHDECK_* environment variables. String values in the file support
// ${VAR} and ${VAR:-default} interpolation.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings defaults.
const (
	DefaultListTimeout = 10 * time.Second
	DefaultBackend     = "exec"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultMetricsPort = 0
)

// Backend names for remote execution.
const (
	BackendExec   = "exec"
	BackendNative = "native"
)

// Settings holds application-wide runtime settings.
type Settings struct {
	// ConfigDir is where connection profiles are stored. Defaults to
	// "configurations" under the user config dir.
	ConfigDir string

	// ListTimeout bounds a single directory listing.
	ListTimeout time.Duration

	// Backend selects remote execution: "exec" shells out to the
	// OpenSSH client binaries, "native" uses the built-in SSH client.
	Backend string

	// Terminal names the linux terminal emulator for sessions. Empty
	// means the launcher's default.
	Terminal string

	// Logging configuration.
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// MetricsPort serves /health and /metrics when positive; 0
	// disables the server.
	MetricsPort int
}

// fileSettings mirrors Settings with file-friendly types. Both YAML
// and TOML files parse into it.
type fileSettings struct {
	ConfigDir   string `yaml:"config_dir,omitempty" toml:"config_dir"`
	ListTimeout string `yaml:"list_timeout,omitempty" toml:"list_timeout"`
	Backend     string `yaml:"backend,omitempty" toml:"backend"`
	Terminal    string `yaml:"terminal,omitempty" toml:"terminal"`
	Logging     struct {
		Level  string `yaml:"level,omitempty" toml:"level"`
		Format string `yaml:"format,omitempty" toml:"format"`
	} `yaml:"logging,omitempty" toml:"logging"`
	MetricsPort int `yaml:"metrics_port,omitempty" toml:"metrics_port"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable
// values. Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

func (f *fileSettings) interpolateEnvVars() {
	f.ConfigDir = InterpolateEnvVars(f.ConfigDir)
	f.ListTimeout = InterpolateEnvVars(f.ListTimeout)
	f.Backend = InterpolateEnvVars(f.Backend)
	f.Terminal = InterpolateEnvVars(f.Terminal)
	f.Logging.Level = InterpolateEnvVars(f.Logging.Level)
	f.Logging.Format = InterpolateEnvVars(f.Logging.Format)
}

// Load builds Settings from defaults, the optional settings file at
// path, and SSHDECK_* environment variables, in that order. An empty
// path skips the file layer entirely; a path that does not exist is an
// error.
func Load(path string) (*Settings, error) {
	s := defaults()

	if path != "" {
		f, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		s.applyFile(f)
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func defaults() *Settings {
	dir := "configurations"
	if base, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(base, "sshdeck", "configurations")
	}

	return &Settings{
		ConfigDir:   dir,
		ListTimeout: DefaultListTimeout,
		Backend:     DefaultBackend,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		MetricsPort: DefaultMetricsPort,
	}
}

// loadFile reads and parses a settings file. The extension picks the
// format: .toml parses as TOML, everything else as YAML.
func loadFile(path string) (*fileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var f fileSettings
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing TOML settings: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing YAML settings: %w", err)
		}
	}

	f.interpolateEnvVars()

	return &f, nil
}

func (s *Settings) applyFile(f *fileSettings) {
	if f.ConfigDir != "" {
		s.ConfigDir = f.ConfigDir
	}
	if f.ListTimeout != "" {
		if d, err := time.ParseDuration(f.ListTimeout); err == nil && d > 0 {
			s.ListTimeout = d
		}
	}
	if f.Backend != "" {
		s.Backend = strings.ToLower(f.Backend)
	}
	if f.Terminal != "" {
		s.Terminal = f.Terminal
	}
	if f.Logging.Level != "" {
		s.LogLevel = strings.ToLower(f.Logging.Level)
	}
	if f.Logging.Format != "" {
		s.LogFormat = strings.ToLower(f.Logging.Format)
	}
	if f.MetricsPort > 0 {
		s.MetricsPort = f.MetricsPort
	}
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("SSHDECK_CONFIG_DIR"); v != "" {
		s.ConfigDir = v
	}
	if v := os.Getenv("SSHDECK_LIST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.ListTimeout = d
		}
	}
	if v := os.Getenv("SSHDECK_BACKEND"); v != "" {
		s.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SSHDECK_TERMINAL"); v != "" {
		s.Terminal = v
	}
	if v := os.Getenv("SSHDECK_LOG_LEVEL"); v != "" {
		s.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SSHDECK_LOG_FORMAT"); v != "" {
		s.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("SSHDECK_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.MetricsPort = port
		}
	}
}

// Validate checks the settings and returns an error listing every
// problem found.
func (s *Settings) Validate() error {
	var errs []string

	if s.ConfigDir == "" {
		errs = append(errs, "config_dir must be set")
	}
	if s.ListTimeout <= 0 {
		errs = append(errs, "list_timeout must be positive")
	}

	switch s.Backend {
	case BackendExec, BackendNative:
	default:
		errs = append(errs, fmt.Sprintf("backend: invalid value %q (must be exec or native)", s.Backend))
	}

	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log level: invalid value %q (must be debug, info, warn, or error)", s.LogLevel))
	}

	switch s.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log format: invalid value %q (must be json or text)", s.LogFormat))
	}

	if s.MetricsPort < 0 || s.MetricsPort > 65535 {
		errs = append(errs, fmt.Sprintf("metrics port: invalid value %d", s.MetricsPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %s", strings.Join(errs, "; "))
	}
	return nil
}
