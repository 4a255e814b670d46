// Package settings loads the tool's own configuration: where the project
// state lives, logging, stderr capture and OOM signatures. Project memory
// values are not settings; they live in the store.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/psantana5/frc/internal/logging"
)

// EnvPrefix is prepended to every key for environment overrides (FRC_STATE_FILE)
const EnvPrefix = "FRC"

// Keys
const (
	KeyStateFile     = "state_file"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyLogFile       = "log_file"
	KeyStderrTailKB  = "stderr_tail_kb"
	KeyOOMSignatures = "oom_signatures"
	KeyNoColor       = "no_color"
)

// Settings is the decoded configuration
type Settings struct {
	StateFile     string   `mapstructure:"state_file" json:"state_file" yaml:"state_file"`
	LogLevel      string   `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogFormat     string   `mapstructure:"log_format" json:"log_format" yaml:"log_format"`
	LogFile       string   `mapstructure:"log_file" json:"log_file,omitempty" yaml:"log_file,omitempty"`
	StderrTailKB  int      `mapstructure:"stderr_tail_kb" json:"stderr_tail_kb" yaml:"stderr_tail_kb"`
	OOMSignatures []string `mapstructure:"oom_signatures" json:"oom_signatures,omitempty" yaml:"oom_signatures,omitempty"`
	NoColor       bool     `mapstructure:"no_color" json:"no_color" yaml:"no_color"`
}

// ConfigDir returns <UserConfigDir>/frc, falling back to ~/.config/frc
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "frc")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", "frc")
	}
	return ".frc"
}

// DefaultStateFile is the project state document path
func DefaultStateFile() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DefaultSettingsFile is where settings are looked up without --config
func DefaultSettingsFile() string {
	return filepath.Join(ConfigDir(), "settings.yaml")
}

// Defaults registers every key with its default value
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyStateFile, DefaultStateFile())
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyStderrTailKB, 64)
	v.SetDefault(KeyOOMSignatures, []string{})
	v.SetDefault(KeyNoColor, false)
}

// Configure prepares v with defaults, FRC_* environment overrides and the
// settings file location. An empty configFile selects DefaultSettingsFile.
func Configure(v *viper.Viper, configFile string) {
	Defaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("settings")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Read loads the settings file. A missing default file is not an error;
// a missing file named explicitly is.
func Read(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("read settings: %w", err)
}

// Load decodes and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks values that cannot be defaulted silently
func (s *Settings) Validate() error {
	if s.StateFile == "" {
		return fmt.Errorf("%s must not be empty", KeyStateFile)
	}
	if _, ok := logging.ParseLevel(s.LogLevel); !ok {
		return fmt.Errorf("invalid %s %q (use debug, info, warn or error)", KeyLogLevel, s.LogLevel)
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid %s %q (use text or json)", KeyLogFormat, s.LogFormat)
	}
	if s.StderrTailKB <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyStderrTailKB, s.StderrTailKB)
	}
	return nil
}

// Level returns the parsed log level
func (s *Settings) Level() logging.Level {
	level, _ := logging.ParseLevel(s.LogLevel)
	return level
}

// TailBytes returns the stderr capture limit in bytes
func (s *Settings) TailBytes() int {
	return s.StderrTailKB * 1024
}

// Signatures returns the configured extra OOM signatures, blanks removed
func (s *Settings) Signatures() []string {
	out := make([]string, 0, len(s.OOMSignatures))
	for _, sig := range s.OOMSignatures {
		if sig = strings.TrimSpace(sig); sig != "" {
			out = append(out, sig)
		}
	}
	return out
}
