package am

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/teranos/annogen/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance without user or project config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, ",", cfg.Parsing.PropertySeparator)
	assert.Equal(t, "[", cfg.Parsing.ArgumentOpen)
	assert.Equal(t, "]", cfg.Parsing.ArgumentClose)
	assert.Equal(t, "GENERATED_BODY", cfg.Parsing.BodyMacro)
	assert.Equal(t, "DClass", cfg.Parsing.Macros.Class)
	assert.Equal(t, "DEnumVal", cfg.Parsing.Macros.EnumValue)
	assert.Equal(t, "##FILENAME##.generated.hpp", cfg.Generation.HeaderPattern)
	assert.Equal(t, "##FILENAME##.sgenerated.hpp", cfg.Generation.SourcePattern)
	assert.Equal(t, "##CLASSFULLNAME##_GENERATED", cfg.Generation.ClassFooterMacroPattern)
	assert.Equal(t, "File_##FILENAME##_GENERATED", cfg.Generation.HeaderFooterMacroPattern)
	assert.Equal(t, "__CodeGenIdentifier__", cfg.Generation.MarkerName)
	assert.True(t, cfg.Generation.StructMarkerExempt)
	assert.Equal(t, []string{".hpp"}, cfg.Process.Extensions)
	assert.Equal(t, []string{"Libs", "Generated"}, cfg.Process.IgnoredDirectories)
	assert.Equal(t, 1, cfg.Process.Iterations)
	assert.Equal(t, 0, cfg.Workers())
	assert.Equal(t, 300, cfg.Process.DebounceMS)
}

func TestMacroNames(t *testing.T) {
	assert.Equal(t,
		[]string{"DNamespace", "DClass", "DStruct", "DField", "DMethod", "DFunction", "DEnum", "DEnumVal"},
		Default().MacroNames())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"zero workers is valid (GOMAXPROCS)", func(c *Config) { c.Process.Workers = 0 }, ""},
		{"multi character separator", func(c *Config) { c.Parsing.PropertySeparator = ";;" }, "single character"},
		{"empty bracket", func(c *Config) { c.Parsing.ArgumentClose = "" }, "single character"},
		{"same brackets", func(c *Config) { c.Parsing.ArgumentClose = "[" }, "must differ"},
		{"separator is a bracket", func(c *Config) { c.Parsing.PropertySeparator = "[" }, "collides"},
		{"body macro not an identifier", func(c *Config) { c.Parsing.BodyMacro = "GENERATED BODY" }, "body_macro"},
		{"duplicate macro", func(c *Config) { c.Parsing.Macros.Struct = "DClass" }, "used twice"},
		{"macro equals body macro", func(c *Config) { c.Parsing.Macros.Field = "GENERATED_BODY" }, "used twice"},
		{"header pattern without placeholder", func(c *Config) { c.Generation.HeaderPattern = "out.hpp" }, "header_pattern"},
		{"empty source pattern", func(c *Config) { c.Generation.SourcePattern = "" }, "source_pattern"},
		{"identical patterns", func(c *Config) { c.Generation.SourcePattern = c.Generation.HeaderPattern }, "both"},
		{"class footer without placeholder", func(c *Config) { c.Generation.ClassFooterMacroPattern = "GEN" }, "CLASSFULLNAME"},
		{"empty marker", func(c *Config) { c.Generation.MarkerName = "" }, "marker_name"},
		{"negative threshold", func(c *Config) { c.Generation.SmallValueThreshold = -1 }, "small_value_threshold"},
		{"zero iterations", func(c *Config) { c.Process.Iterations = 0 }, "iterations"},
		{"negative workers", func(c *Config) { c.Process.Workers = -1 }, "workers"},
		{"extension without dot", func(c *Config) { c.Process.Extensions = []string{"hpp"} }, "must start with"},
		{"no extensions", func(c *Config) { c.Process.Extensions = nil }, "extensions"},
		{"negative verbosity", func(c *Config) { c.Log.Verbosity = -2 }, "verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	writeFile(t, path, `
[generation]
output_dir = "Out"

[process]
iterations = 2
extensions = [".h", ".hpp"]
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Out", cfg.Generation.OutputDir)
	assert.Equal(t, 2, cfg.Process.Iterations)
	assert.Equal(t, []string{".h", ".hpp"}, cfg.Process.Extensions)
	// Untouched keys keep their defaults
	assert.Equal(t, "GENERATED_BODY", cfg.Parsing.BodyMacro)
}

func TestLoadFromFileRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	writeFile(t, path, "[process]\nworkers = -3\n")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), "")
	nested := filepath.Join(root, "Engine", "Source", "Render")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found := FindProjectConfig(nested)
	want, err := filepath.Abs(filepath.Join(root, ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, want, found)

	// A directory named like the config file does not count
	other := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(other, ConfigFileName), 0755))
	assert.NotEqual(t, filepath.Join(other, ConfigFileName), FindProjectConfig(other))
}

func TestNewViperPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, UserConfigDir, ConfigFileName), `
[generation]
output_dir = "UserOut"
marker_name = "__UserMarker__"

[process]
iterations = 4
`)

	project := t.TempDir()
	projectFile := filepath.Join(project, ConfigFileName)
	writeFile(t, projectFile, `
[generation]
output_dir = "ProjectOut"
`)
	t.Setenv("ANNOGEN_PROCESS_ITERATIONS", "3")

	v, err := NewViper(filepath.Join(project, "src"))
	require.NoError(t, err)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "ProjectOut", cfg.Generation.OutputDir, "project beats user")
	assert.Equal(t, "__UserMarker__", cfg.Generation.MarkerName, "user beats defaults")
	assert.Equal(t, 3, cfg.Process.Iterations, "environment beats files")

	assert.Equal(t, SourceProject, ConfigSources["generation.output_dir"].Source)
	assert.Equal(t, SourceUser, ConfigSources["generation.marker_name"].Source)
}

func TestNewViperRejectsMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ConfigFileName), "[generation\noutput_dir = ")

	_, err := NewViper(project)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	assert.Contains(t, err.Error(), ConfigFileName)
}

func TestIntrospect(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ConfigFileName), "[generation]\noutput_dir = \"Gen\"\n")
	t.Setenv("ANNOGEN_LOG_VERBOSITY", "2")

	v, err := NewViper(project)
	require.NoError(t, err)
	v.Set("process.force", true)

	settings := Introspect(v, map[string]string{"process.force": "force"})
	byKey := map[string]SettingInfo{}
	for _, s := range settings {
		byKey[s.Key] = s
	}

	assert.Equal(t, SourceProject, byKey["generation.output_dir"].Source)
	assert.Equal(t, "Gen", byKey["generation.output_dir"].Value)
	assert.Equal(t, SourceEnvironment, byKey["log.verbosity"].Source)
	assert.Equal(t, "ANNOGEN_LOG_VERBOSITY", byKey["log.verbosity"].SourcePath)
	assert.Equal(t, SourceFlag, byKey["process.force"].Source)
	assert.Equal(t, "--force", byKey["process.force"].SourcePath)
	assert.Equal(t, SourceDefault, byKey["parsing.body_macro"].Source)

	// Nested keys are flattened and sorted
	assert.Contains(t, byKey, "parsing.macros.class")
	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1].Key, settings[i].Key)
	}
}

func TestEnvVarName(t *testing.T) {
	assert.Equal(t, "ANNOGEN_GENERATION_OUTPUT_DIR", EnvVarName("generation.output_dir"))
	assert.Equal(t, "ANNOGEN_PARSING_MACROS_ENUM_VALUE", EnvVarName("parsing.macros.enum_value"))
}

func TestWriteDefault(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	path := filepath.Join(t.TempDir(), "project", ConfigFileName)

	require.NoError(t, WriteDefault(path, false, log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# annogen configuration")
	assert.Contains(t, string(content), "##FILENAME##.generated.hpp")

	// The written file loads back to the defaults
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Parsing, cfg.Parsing)
	assert.Equal(t, def.Generation, cfg.Generation)
	assert.Equal(t, def.Process.Extensions, cfg.Process.Extensions)
	assert.Equal(t, def.Process.IgnoredDirectories, cfg.Process.IgnoredDirectories)

	// Existing files are kept without force
	err = WriteDefault(path, false, log)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "--force")

	// With force the previous file is rotated into .back1
	writeFile(t, path, "# edited\n")
	require.NoError(t, WriteDefault(path, true, log))
	backup, err := os.ReadFile(path + ".back1")
	require.NoError(t, err)
	assert.Equal(t, "# edited\n", string(backup))
}

func TestCreateBackupRotation(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	path := filepath.Join(t.TempDir(), ConfigFileName)

	for _, content := range []string{"one", "two", "three", "four"} {
		writeFile(t, path, content)
		require.NoError(t, createBackup(path, log))
	}

	for suffix, want := range map[string]string{".back1": "four", ".back2": "three", ".back3": "two"} {
		got, err := os.ReadFile(path + suffix)
		require.NoError(t, err)
		assert.Equal(t, want, string(got), suffix)
	}
}

func TestEncode(t *testing.T) {
	settings := DefaultSettings()

	out, err := Encode(settings, FormatYAML)
	require.NoError(t, err)
	var fromYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &fromYAML))
	assert.Contains(t, fromYAML, "generation")

	out, err = Encode(settings, FormatJSON)
	require.NoError(t, err)
	var fromJSON map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &fromJSON))
	assert.Equal(t, "GENERATED_BODY", fromJSON["parsing"]["body_macro"])

	out, err = Encode(settings, FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[parsing.macros]")

	_, err = Encode(settings, "xml")
	assert.Error(t, err)
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/p/annogen.toml.back1"))
	assert.True(t, isBackupFile("annogen.toml.back3"))
	assert.False(t, isBackupFile("annogen.toml"))
	assert.False(t, isBackupFile("annogen.toml.backup"))
}

func TestConfigWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	writeFile(t, path, "[generation]\noutput_dir = \"First\"\n")

	cw, err := NewConfigWatcher(path, func() (*Config, error) {
		return LoadFromFile(path)
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	cw.debouncePeriod = 10 * time.Millisecond

	var latest atomic.Value
	cw.OnReload(func(cfg *Config) error {
		latest.Store(cfg.Generation.OutputDir)
		return nil
	})
	cw.OnReload(func(*Config) error {
		return errors.New("callback failures do not stop other callbacks")
	})
	cw.Start()
	defer cw.Stop()

	// Writes to sibling files are ignored
	writeFile(t, filepath.Join(filepath.Dir(path), "other.toml"), "x = 1\n")
	writeFile(t, path, "[generation]\noutput_dir = \"Second\"\n")

	assert.Eventually(t, func() bool {
		v, _ := latest.Load().(string)
		return v == "Second"
	}, 5*time.Second, 10*time.Millisecond)
}
