package commands

import (
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teranos/annogen/am"
	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/codegen/rules"
	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
	"github.com/teranos/annogen/manager"
	"github.com/teranos/annogen/parser/cpp"
)

// flagKeys maps command line flags to the configuration keys they override.
var flagKeys = map[string]string{
	"dir":        "process.directories",
	"file":       "process.files",
	"output":     "generation.output_dir",
	"iterations": "process.iterations",
	"workers":    "process.workers",
	"force":      "process.force",
	"debounce":   "process.debounce_ms",
	"verbose":    "log.verbosity",
	"log-json":   "log.json",
}

// addProcessFlags adds the flags selecting and configuring a run.
func addProcessFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceP("dir", "d", nil, "Directory to scan for annotated headers (repeatable)")
	f.StringSliceP("file", "f", nil, "Header to process whatever its extension (repeatable)")
	f.StringP("output", "o", "", "Output directory for generated artifacts")
	f.IntP("iterations", "n", 1, "Generation passes per file")
	f.IntP("workers", "j", 0, "Worker goroutines, 0 uses GOMAXPROCS")
	f.Bool("json", false, "Print progress and results as JSON events")
}

// bindFlags binds every known flag of cmd to v. Flags only override the
// configuration when they are set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return errors.Wrap(err, "failed to bind flags")
}

// changedFlags returns the configuration keys overridden on the command line.
func changedFlags(cmd *cobra.Command) map[string]string {
	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			changed[key] = f.Name
		}
	})
	return changed
}

// loadConfig loads the configuration with the flags of cmd applied and
// reinitializes the global logger from it. The returned value is a copy the
// caller may modify.
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	if err := bindFlags(cmd, am.GetViper()); err != nil {
		return nil, err
	}
	cfg, err := am.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(cfg.Log.Verbosity, cfg.Log.JSON); err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}

	c := *cfg
	c.Process.Directories = slices.Clone(cfg.Process.Directories)
	c.Process.Files = slices.Clone(cfg.Process.Files)
	return &c, nil
}

// withPaths adds positional arguments to the configured inputs: directories
// are scanned, anything else is processed as an explicit file. Without any
// input the working directory is scanned.
func withPaths(cfg *am.Config, args []string) error {
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return errors.WithHint(errors.Wrapf(err, "cannot read %s", arg), "pass an existing header or directory")
		}
		if info.IsDir() {
			cfg.Process.Directories = append(cfg.Process.Directories, arg)
		} else {
			cfg.Process.Files = append(cfg.Process.Files, arg)
		}
	}
	if len(cfg.Process.Directories) == 0 && len(cfg.Process.Files) == 0 {
		cfg.Process.Directories = []string{"."}
	}
	return nil
}

// frontendOptions maps the configured macro names to entity kinds.
func frontendOptions(cfg *am.Config) cpp.Options {
	m := cfg.Parsing.Macros
	return cpp.Options{
		Macros: map[string]entity.Kind{
			m.Namespace: entity.KindNamespace,
			m.Class:     entity.KindClass,
			m.Struct:    entity.KindStruct,
			m.Field:     entity.KindField,
			m.Method:    entity.KindMethod,
			m.Function:  entity.KindFunction,
			m.Enum:      entity.KindEnum,
			m.EnumValue: entity.KindEnumValue,
		},
		BodyMacro:  cfg.Parsing.BodyMacro,
		MarkerName: cfg.Generation.MarkerName,
	}
}

// newManager builds a manager running the built-in rules through the C++ frontend.
func newManager(cfg *am.Config) (*manager.Manager, error) {
	fe, err := cpp.New(frontendOptions(cfg), logger.Logger)
	if err != nil {
		return nil, err
	}
	return manager.New(fe, codegen.NewGroup(rules.Module()), manager.OptionsFromConfig(cfg), logger.Logger)
}
