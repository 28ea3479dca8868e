// Package config loads the CLI-wide settings that seed every run's
// defaults before a `.chor` file's own `settings { }` block overrides
// them: config.yaml under .chor/, read with spf13/viper, plus a .env
// file loaded with joho/godotenv before any env declaration is resolved.
// Grounded on the teacher's cmd/falcon/main.go initConfig/rootCmd wiring
// and pkg/core/init.go's Config struct shape, adapted from Falcon's
// LLM-provider settings to chor's scenario-engine settings (§6 table).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chorbdd/chor/pkg/loader"
)

// FolderName is the per-project directory holding config.yaml, mirroring
// the teacher's .falcon convention.
const FolderName = ".chor"

// Settings mirrors spec.md's §6 settings table, unmarshalled from viper.
// A `.chor` file's own settings block still wins when both are present;
// these are only the defaults applied before that override.
type Settings struct {
	TimeoutSeconds   float64 `mapstructure:"timeout_seconds"`
	StopOnFailure    bool    `mapstructure:"stop_on_failure"`
	ShellPath        string  `mapstructure:"shell_path"`
	ReportPath       string  `mapstructure:"report_path"`
	ExpectedFailures int     `mapstructure:"expected_failures"`
	OpenAPIRef       string  `mapstructure:"openapi_ref"`
}

// ToLoaderSettings converts a config.Settings into the loader.Settings a
// Plan is built with, so the CLI's viper-sourced defaults and the file's
// own `settings { }` block share one representation of the §6 table.
func (s Settings) ToLoaderSettings() loader.Settings {
	return loader.Settings{
		TimeoutSeconds:   s.TimeoutSeconds,
		StopOnFailure:    s.StopOnFailure,
		ShellPath:        s.ShellPath,
		ReportPath:       s.ReportPath,
		ExpectedFailures: s.ExpectedFailures,
		OpenAPIRef:       s.OpenAPIRef,
	}
}

// Defaults returns the documented defaults from spec.md's settings table,
// the same values loader.DefaultSettings applies to a bare file.
func Defaults() Settings {
	d := loader.DefaultSettings()
	return Settings{
		TimeoutSeconds:   d.TimeoutSeconds,
		StopOnFailure:    d.StopOnFailure,
		ShellPath:        d.ShellPath,
		ReportPath:       d.ReportPath,
		ExpectedFailures: d.ExpectedFailures,
		OpenAPIRef:       d.OpenAPIRef,
	}
}

// Load reads .env (if present) and then .chor/config.yaml (if present)
// through viper, overlaying the documented defaults. A missing config
// file is not an error: Defaults() alone is a valid configuration, same
// as the teacher tolerating a missing .falcon/config.yaml on first run.
func Load(cfgFile string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	v := viper.New()
	d := Defaults()
	v.SetDefault("timeout_seconds", d.TimeoutSeconds)
	v.SetDefault("stop_on_failure", d.StopOnFailure)
	v.SetDefault("shell_path", d.ShellPath)
	v.SetDefault("report_path", d.ReportPath)
	v.SetDefault("expected_failures", d.ExpectedFailures)
	v.SetDefault("openapi_ref", d.OpenAPIRef)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(FolderName)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Settings{}, fmt.Errorf("config: reading %s: %w", FolderName, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return s, nil
}

// Write renders s as YAML to .chor/config.yaml, creating the folder if
// needed. Used by `chor init` to persist the wizard's answers, the same
// role the teacher's createDefaultConfig plays for .falcon/config.yaml.
func Write(s Settings) error {
	if err := os.MkdirAll(FolderName, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", FolderName, err)
	}

	v := viper.New()
	v.Set("timeout_seconds", s.TimeoutSeconds)
	v.Set("stop_on_failure", s.StopOnFailure)
	v.Set("shell_path", s.ShellPath)
	v.Set("report_path", s.ReportPath)
	v.Set("expected_failures", s.ExpectedFailures)
	if s.OpenAPIRef != "" {
		v.Set("openapi_ref", s.OpenAPIRef)
	}

	path := filepath.Join(FolderName, "config.yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
