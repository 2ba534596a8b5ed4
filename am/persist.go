package am

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
)

// Output formats understood by Encode
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

const defaultFileHeader = `# annogen configuration
#
# Precedence (lowest to highest): built-in defaults, ~/.annogen/annogen.toml,
# this file, ANNOGEN_* environment variables, command line flags.
# Environment names follow the keys: generation.output_dir -> ANNOGEN_GENERATION_OUTPUT_DIR

`

// DefaultSettings returns the built-in defaults as a nested settings map.
func DefaultSettings() map[string]interface{} {
	v := viper.New()
	SetDefaults(v)
	return v.AllSettings()
}

// Encode renders a nested settings map in the given format.
func Encode(settings map[string]interface{}, format string) ([]byte, error) {
	switch format {
	case FormatTOML, "":
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(settings); err != nil {
			return nil, errors.Wrap(err, "failed to encode toml")
		}
		return buf.Bytes(), nil
	case FormatYAML:
		out, err := yaml.Marshal(settings)
		return out, errors.Wrap(err, "failed to encode yaml")
	case FormatJSON:
		out, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode json")
		}
		return append(out, '\n'), nil
	default:
		return nil, errors.WithHint(errors.Newf("unknown format %q", format), "use toml, yaml or json")
	}
}

// WriteDefault writes a commented default configuration file to path.
// An existing file is only replaced with force, after a rotating backup.
func WriteDefault(path string, force bool, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)

	if _, err := os.Stat(path); err == nil {
		if !force {
			return errors.WithHint(errors.Newf("%s already exists", path), "use --force to overwrite it")
		}
		if err := createBackup(path, log); err != nil {
			return err
		}
	}

	body, err := Encode(DefaultSettings(), FormatTOML)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, append([]byte(defaultFileHeader), body...), DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	log.Infow("Wrote default configuration", logger.FieldFile, path)
	return nil
}

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string, log *zap.SugaredLogger) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Not fatal: the rotation below overwrites it
		log.Warnw("Failed to delete old backup", logger.FieldFile, back3, logger.FieldError, err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
