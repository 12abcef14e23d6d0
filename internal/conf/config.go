// Package conf loads and validates application configuration from YAML
// files and environment variables via viper.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Settings holds the full application configuration.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name string    // name of this node, identifies the source of records
		Log  LogConfig // logging configuration
	}

	Ingest struct {
		DataPath string // base path resolving relative image save paths
	}

	Search struct {
		DefaultPageSize    int // page size when the caller passes zero
		MaxPageSize        int // hard cap on page size
		DefaultWindowHours int // job-start-time window applied when unset
	}

	Stats struct {
		GroupByLimit    int // bucket cap for group-by aggregations
		CacheTTLSeconds int // TTL for cached dropdown choices and totals
	}

	WebServer struct {
		Debug   bool   // true to enable debug mode
		Enabled bool   // true to enable web server
		Port    string // port for web server
	}

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}

		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}
	}
}

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // Path to the log file
	Rotation RotationType // Type of log rotation
	MaxSize  int64        // Max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
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

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Defaults defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, run with defaults
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the locations searched for config.yaml,
// most specific first.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "promptkeep"),
		"/etc/promptkeep",
	}, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting is a shorthand for GetSettings kept for call-site brevity.
func Setting() *Settings {
	return GetSettings()
}
