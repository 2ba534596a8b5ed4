package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Annotation grammar: DField(Get[const, &], Set)
	v.SetDefault("parsing.property_separator", ",")
	v.SetDefault("parsing.argument_open", "[")
	v.SetDefault("parsing.argument_close", "]")
	v.SetDefault("parsing.argument_separator", ",")
	v.SetDefault("parsing.parse_all_namespaces", true)
	v.SetDefault("parsing.body_macro", "GENERATED_BODY")

	v.SetDefault("parsing.macros.namespace", "DNamespace")
	v.SetDefault("parsing.macros.class", "DClass")
	v.SetDefault("parsing.macros.struct", "DStruct")
	v.SetDefault("parsing.macros.field", "DField")
	v.SetDefault("parsing.macros.method", "DMethod")
	v.SetDefault("parsing.macros.function", "DFunction")
	v.SetDefault("parsing.macros.enum", "DEnum")
	v.SetDefault("parsing.macros.enum_value", "DEnumVal")

	// Generation defaults
	v.SetDefault("generation.output_dir", "Generated")
	v.SetDefault("generation.header_pattern", "##FILENAME##.generated.hpp")
	v.SetDefault("generation.source_pattern", "##FILENAME##.sgenerated.hpp")
	v.SetDefault("generation.class_footer_macro_pattern", "##CLASSFULLNAME##_GENERATED")
	v.SetDefault("generation.header_footer_macro_pattern", "File_##FILENAME##_GENERATED")
	v.SetDefault("generation.entity_macros_file", "EntityMacros.h")
	v.SetDefault("generation.marker_name", "__CodeGenIdentifier__")
	v.SetDefault("generation.struct_marker_exempt", true)
	v.SetDefault("generation.small_value_threshold", 2)
	v.SetDefault("generation.resource_ref_type", "ResourceRef")

	// Process defaults
	v.SetDefault("process.directories", []string{})
	v.SetDefault("process.files", []string{})
	v.SetDefault("process.extensions", []string{".hpp"})
	v.SetDefault("process.ignored_directories", []string{"Libs", "Generated"})
	v.SetDefault("process.ignored_files", []string{})
	v.SetDefault("process.recursive", true)
	v.SetDefault("process.iterations", 1)
	v.SetDefault("process.workers", 0)
	v.SetDefault("process.force", false)
	v.SetDefault("process.debounce_ms", 300)

	v.SetDefault("log.verbosity", 0)
	v.SetDefault("log.json", false)
}

// Default returns the configuration made of defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults always unmarshal and validate.
		panic(err)
	}
	return cfg
}

// MacroNames returns every configured annotation macro name.
func (c *Config) MacroNames() []string {
	m := c.Parsing.Macros
	return []string{m.Namespace, m.Class, m.Struct, m.Field, m.Method, m.Function, m.Enum, m.EnumValue}
}

// Workers returns the configured worker count, or 0 for GOMAXPROCS.
func (c *Config) Workers() int {
	if c.Process.Workers < 0 {
		return 0
	}
	return c.Process.Workers
}
