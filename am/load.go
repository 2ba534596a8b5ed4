package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/annogen/errors"
)

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper
	viperErr      error

	// ConfigSources records which file supplied each key during the last
	// NewViper call. Keys not present came from defaults or the environment.
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the annogen configuration for the working directory using Viper.
// The result is cached until Reset.
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()
	if viperErr != nil {
		return nil, viperErr
	}
	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access.
// Commands bind their flags to it before calling Load.
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return initViper()
}

// LoadWithViper loads and validates configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of the
// defaults. The environment and other config files are ignored.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	viperErr = nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	viperInstance, viperErr = NewViper(dir)
	return viperInstance
}

// NewViper builds a Viper instance with every configuration source applied
// for a project rooted at (or below) dir. The instance is usable even when a
// config file fails to parse; the error names the file.
func NewViper(dir string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	ConfigSources = map[string]SourceInfo{}
	return v, mergeConfigFiles(v, dir)
}

// UserConfigPath returns ~/.annogen/annogen.toml, or "" without a home directory.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, ConfigFileName)
}

// FindProjectConfig searches for annogen.toml by walking up the directory tree
// from dir. Returns the path to the first file found, or empty string if none found.
func FindProjectConfig(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop searching
			break
		}
		dir = parent
	}
	return ""
}

// mergeConfigFiles merges configuration files in precedence order:
// user < project. They are merged as config maps, so environment variables
// and bound flags still win over both.
func mergeConfigFiles(v *viper.Viper, dir string) error {
	layers := []struct {
		path   string
		source ConfigSource
	}{
		{UserConfigPath(), SourceUser},
		{FindProjectConfig(dir), SourceProject},
	}

	for _, layer := range layers {
		if layer.path == "" {
			continue
		}
		// The user and project files are the same when the project lives in ~/.annogen.
		if layer.source == SourceProject && layer.path == layers[0].path {
			continue
		}
		if _, err := os.Stat(layer.path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(layer.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			return errors.Mark(errors.Wrapf(err, "failed to read config file %s", layer.path), errors.ErrInvalidConfig)
		}

		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			return errors.Wrapf(err, "failed to merge config file %s", layer.path)
		}
		for _, key := range tempViper.AllKeys() {
			ConfigSources[key] = SourceInfo{Source: layer.source, Path: layer.path}
		}
	}
	return nil
}
