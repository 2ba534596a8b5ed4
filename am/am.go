// Package am loads the annogen configuration.
//
// Sources are merged in precedence order: built-in defaults, the user file
// ~/.annogen/annogen.toml, the project annogen.toml found by walking up from
// the working directory, ANNOGEN_* environment variables and finally command
// line flags bound by the caller.
package am

// Config is the complete annogen configuration.
type Config struct {
	Parsing    ParsingConfig    `mapstructure:"parsing"`
	Generation GenerationConfig `mapstructure:"generation"`
	Process    ProcessConfig    `mapstructure:"process"`
	Log        LogConfig        `mapstructure:"log"`
}

// ParsingConfig configures the annotation grammar and the macros recognized
// in source files.
type ParsingConfig struct {
	PropertySeparator  string       `mapstructure:"property_separator"` // between properties: DField(Get, Set)
	ArgumentOpen       string       `mapstructure:"argument_open"`      // opens an argument list: Get[const]
	ArgumentClose      string       `mapstructure:"argument_close"`
	ArgumentSeparator  string       `mapstructure:"argument_separator"`
	ParseAllNamespaces bool         `mapstructure:"parse_all_namespaces"` // keep namespaces without annotated content
	BodyMacro          string       `mapstructure:"body_macro"`
	Macros             MacrosConfig `mapstructure:"macros"`
}

// MacrosConfig names the annotation macro of every entity kind.
type MacrosConfig struct {
	Namespace string `mapstructure:"namespace"`
	Class     string `mapstructure:"class"`
	Struct    string `mapstructure:"struct"`
	Field     string `mapstructure:"field"`
	Method    string `mapstructure:"method"`
	Function  string `mapstructure:"function"`
	Enum      string `mapstructure:"enum"`
	EnumValue string `mapstructure:"enum_value"`
}

// GenerationConfig configures artifact naming and the built-in rules.
type GenerationConfig struct {
	OutputDir                string `mapstructure:"output_dir"`
	HeaderPattern            string `mapstructure:"header_pattern"` // ##FILENAME## is the source stem
	SourcePattern            string `mapstructure:"source_pattern"`
	ClassFooterMacroPattern  string `mapstructure:"class_footer_macro_pattern"` // ##CLASSFULLNAME## is the qualified class name
	HeaderFooterMacroPattern string `mapstructure:"header_footer_macro_pattern"`
	EntityMacrosFile         string `mapstructure:"entity_macros_file"` // written into output_dir; empty disables it
	MarkerName               string `mapstructure:"marker_name"`
	StructMarkerExempt       bool   `mapstructure:"struct_marker_exempt"`
	SmallValueThreshold      int    `mapstructure:"small_value_threshold"` // bytes
	ResourceRefType          string `mapstructure:"resource_ref_type"`
}

// ProcessConfig selects the files to process and how.
type ProcessConfig struct {
	Directories        []string `mapstructure:"directories"`
	Files              []string `mapstructure:"files"`
	Extensions         []string `mapstructure:"extensions"`
	IgnoredDirectories []string `mapstructure:"ignored_directories"`
	IgnoredFiles       []string `mapstructure:"ignored_files"`
	Recursive          bool     `mapstructure:"recursive"`
	Iterations         int      `mapstructure:"iterations"` // parse/generate passes per file
	Workers            int      `mapstructure:"workers"`    // 0 = GOMAXPROCS
	Force              bool     `mapstructure:"force"`      // regenerate up-to-date files
	DebounceMS         int      `mapstructure:"debounce_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int  `mapstructure:"verbosity"`
	JSON      bool `mapstructure:"json"`
}

// File names
const (
	ConfigFileName = "annogen.toml"
	UserConfigDir  = ".annogen"
	EnvPrefix      = "ANNOGEN"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
