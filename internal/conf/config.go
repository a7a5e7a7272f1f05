// Package conf loads and validates application settings.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/CameronChurchwell/penn/internal/errors"
)

// MainSettings holds application-wide options.
type MainSettings struct {
	Name string      // Application name used in logs
	Log  LogSettings // Structured log file options
}

// LogSettings holds log file options.
type LogSettings struct {
	Enabled bool   // Write structured logs to a rotated file
	Path    string // Log file location
}

// ModelSettings holds pitch model options.
type ModelSettings struct {
	Path           string // Path to the TFLite model file
	Name           string // Model name used for cache keys and artifact naming
	Threads        int    // Interpreter thread count, 0 for all cores
	BatchSize      int    // Frames per inference call in batch mode
	AutoRegressive bool   // Use autoregressive decoding instead of batch inference
}

// DataSettings holds dataset locations.
type DataSettings struct {
	Dir string // Root directory holding one subdirectory per dataset
}

// EvalSettings holds evaluation run options.
type EvalSettings struct {
	Dir             string // Root directory for evaluation artifacts
	CachePath       string // Prediction cache database location
	Partition       string // Dataset partition to score
	SkipPredictions bool   // Reuse cached predictions instead of running inference
}

// Settings contains all application settings.
type Settings struct {
	Debug bool

	Main  MainSettings
	Model ModelSettings
	Data  DataSettings
	Eval  EvalSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with defaults and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := getDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file yet; write one holding the defaults.
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// getDefaultConfigPaths returns the directories searched for config.yaml.
func getDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "penn"))
	}
	return paths, nil
}

// createDefaultConfig writes the default settings to a new config file.
func createDefaultConfig(dir string) error {
	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return viper.ReadInConfig()
}

// ValidateSettings checks settings for values the engine cannot run with.
func ValidateSettings(settings *Settings) error {
	if settings.Model.BatchSize < 1 {
		return errors.Newf("model batch size must be at least 1, got %d", settings.Model.BatchSize).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings.Model.Threads < 0 {
		return errors.Newf("model thread count must not be negative, got %d", settings.Model.Threads).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings.Data.Dir == "" {
		return errors.Newf("data directory must be set").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings.Eval.Dir == "" {
		return errors.Newf("evaluation output directory must be set").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
