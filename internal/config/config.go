// =============================================================================
// Income Statement Generator - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and department-specific
// configurations.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Department Configs (configs/*.yaml): Cost centers, statement choice
//      and ledger layout per department
//   3. Environment: STMTGEN_* variables override the main config, and an
//      optional .env file is loaded first
//
// ARCHITECTURE:
//   The main config is read through viper so every key can be overridden
//   from the environment (STMTGEN_OUTPUT_DIR, STMTGEN_LOG_LEVEL, ...).
//   Department configs are plain YAML documents, one per department, so a
//   new department can be added without code changes.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

// EnvPrefix is the prefix of environment variables that override the main
// configuration.
const EnvPrefix = "STMTGEN"

// ErrUnknownDepartment is returned when a department code is not configured.
var ErrUnknownDepartment = errors.New("unknown department")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file and the environment.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory where ledger exports are placed.
	// The application will scan this directory for .xlsx, .xls and .csv files.
	// Default: "./input"
	InputDir string `mapstructure:"input_dir" yaml:"input_dir"`

	// OutputDir is the directory where generated statements are placed.
	// Default: "./output"
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// InputArchiveDir is the directory where processed ledger files are moved.
	// Files are only moved here after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `mapstructure:"input_archive_dir" yaml:"input_archive_dir"`

	// OutputArchiveDir is the directory where generated statements are archived.
	// Default: "./output_archive"
	OutputArchiveDir string `mapstructure:"output_archive_dir" yaml:"output_archive_dir"`

	// DefinitionsDir holds custom statement definitions (*.yaml). A file
	// named like a built-in definition replaces it.
	// Default: "./definitions"
	DefinitionsDir string `mapstructure:"definitions_dir" yaml:"definitions_dir"`

	// ConfigsDir is the directory containing department configurations.
	// Default: "./configs"
	ConfigsDir string `mapstructure:"configs_dir" yaml:"configs_dir"`

	// DatabasePath is the SQLite ledger store. Leave empty to skip
	// persistence during processing.
	// Default: "./data/ledger.db"
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file. Empty logs to
	// stderr only.
	// Default: "./logs/stmtgen.log"
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// LogFormat selects the log encoding: "text", "logfmt" or "json".
	// Default: "text"
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormats lists the report formats written per statement.
	// Valid values: "xlsx", "csv", "json"
	// Default: ["xlsx"]
	OutputFormats []string `mapstructure:"output_formats" yaml:"output_formats"`

	// UUIDFormat defines the format for output file names, without extension.
	// Placeholders:
	//   {dept}      - Department code
	//   {month}     - Statement month (YYYY-MM)
	//   {statement} - Statement definition name
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//
	// Default: "{dept}_{month}_{statement}"
	UUIDFormat string `mapstructure:"uuid_format" yaml:"uuid_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files to process concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency"`

	// ContinueOnError determines whether to continue processing other files
	// if one file fails.
	// Default: true
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error"`

	// ArchiveInputs moves processed ledger files to InputArchiveDir.
	// Default: true
	ArchiveInputs bool `mapstructure:"archive_inputs" yaml:"archive_inputs"`

	// ArchiveByDate files archived inputs and reports under YYYY/MM/DD
	// subdirectories.
	// Default: false
	ArchiveByDate bool `mapstructure:"archive_by_date" yaml:"archive_by_date"`

	// ArchiveRetentionDays removes archived files older than this many days
	// at the end of a processing run. Zero keeps archives forever.
	// Default: 0
	ArchiveRetentionDays int `mapstructure:"archive_retention_days" yaml:"archive_retention_days"`

	// StrictPrefixMatch makes total prefixes match whole path segments only.
	// Default: false (raw prefix matching)
	StrictPrefixMatch bool `mapstructure:"strict_prefix_match" yaml:"strict_prefix_match"`

	// =========================================================================
	// PUBLISHING SETTINGS
	// =========================================================================

	// Publish configures uploading of generated statements.
	Publish PublishConfig `mapstructure:"publish" yaml:"publish"`
}

// PublishConfig configures the Cloud Storage publisher. An empty bucket
// disables publishing.
type PublishConfig struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// =============================================================================
// DEPARTMENT CONFIGURATION STRUCTURE
// =============================================================================

// DepartmentConfig holds the configuration for a specific department.
type DepartmentConfig struct {
	// =========================================================================
	// DEPARTMENT IDENTIFICATION
	// =========================================================================

	// DepartmentName is the human-readable name of the department.
	// It is used as the statement title and in logs.
	DepartmentName string `yaml:"department_name"`

	// DepartmentCode is a short code for the department.
	// It is used in output file names and on the command line.
	DepartmentCode string `yaml:"department_code"`

	// CostCenters lists the cost center IDs rolled up into this department.
	// An empty list includes every cost center.
	//
	// Example:
	//   cost_centers: [CC_71300, CC_71200, CC_71400]
	CostCenters []string `yaml:"cost_centers"`

	// Statement names the statement definition, built-in or from
	// definitions_dir.
	// Default: "department"
	Statement string `yaml:"statement"`

	// =========================================================================
	// FILE MATCHING RULES
	// =========================================================================

	// FileMatchingPatterns is a list of glob patterns to match input files.
	// If a file name matches any of these patterns, this configuration is used.
	//
	// Examples:
	//   - "imaging_*.xlsx"
	//   - "*_gl_*.csv"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// =========================================================================
	// LEDGER LAYOUT
	// =========================================================================

	// LedgerColumns maps ledger fields to column headers.
	// Unset entries use the Workday export headers.
	LedgerColumns ledger.Columns `yaml:"ledger_columns"`

	// Sheet is the worksheet read from .xlsx files. Empty reads the first
	// sheet.
	Sheet string `yaml:"sheet"`

	// DefaultMonth (YYYY-MM) is used when the export carries no month column.
	DefaultMonth string `yaml:"default_month"`

	// CSVSettings contains settings for parsing .csv exports.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// TRANSFORMATION RULES
	// =========================================================================

	// TransformationRules defines field-level transformation rules applied to
	// each ledger line before the statement is generated.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// DataStartRow is the row number of the header row. Rows before it
	// are report banners and are skipped. Row numbering starts at 1.
	// Default: 1
	DataStartRow int `yaml:"data_start_row"`

	// Comment, when set, marks lines to ignore.
	Comment string `yaml:"comment"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines a transformation to apply to a ledger field.
type TransformationRule struct {
	// Field is the ledger field to transform.
	// Valid values: "account", "cost_center", "spend_category",
	// "revenue_category", "month"
	Field string `yaml:"field"`

	// Actions is a list of transformations to apply to this field.
	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim"           : Remove leading and trailing whitespace
	//   - "uppercase"      : Convert to uppercase
	//   - "lowercase"      : Convert to lowercase
	//   - "replace"        : Replace Find with Value
	//   - "prepend_string" : Add Value to the beginning
	//   - "append_string"  : Add Value to the end
	//   - "pad_left"       : Left-pad with Find (default "0") to length Value
	//   - "lookup"         : Replace using LookupTable
	//   - "default"        : Use Value when the field is empty
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is used for "replace" and as the pad character for "pad_left".
	Find string `yaml:"find,omitempty"`

	// LookupTable is used for "lookup" transformations.
	//
	// Example (merging a retired account into its successor):
	//   lookup_table:
	//     "60610:Contract Services": "60600:Purchased Services"
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// setMainDefaults registers the default of every main configuration key.
func setMainDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "./input")
	v.SetDefault("output_dir", "./output")
	v.SetDefault("input_archive_dir", "./input_archive")
	v.SetDefault("output_archive_dir", "./output_archive")
	v.SetDefault("definitions_dir", "./definitions")
	v.SetDefault("configs_dir", "./configs")
	v.SetDefault("database_path", "./data/ledger.db")
	v.SetDefault("log_file", "./logs/stmtgen.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("output_formats", []string{"xlsx"})
	v.SetDefault("uuid_format", "{dept}_{month}_{statement}")
	v.SetDefault("max_concurrency", 4)
	v.SetDefault("continue_on_error", true)
	v.SetDefault("archive_inputs", true)
	v.SetDefault("archive_by_date", false)
	v.SetDefault("archive_retention_days", 0)
	v.SetDefault("strict_prefix_match", false)
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
}

// NewViper returns a viper instance with defaults and environment overrides
// registered, reading configPath when it is set.
func NewViper(configPath string) *viper.Viper {
	v := viper.New()
	setMainDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// LoadMainConfig loads the main configuration.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. Empty searches
//     the working directory for config.yaml and falls back to defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := NewViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decodeMainConfig(v)
}

func decodeMainConfig(v *viper.Viper) (*MainConfig, error) {
	var config MainConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults fixes values that viper cannot default, such as
// explicit zeros and comma-separated lists from the environment.
func applyMainConfigDefaults(config *MainConfig) {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.ArchiveRetentionDays < 0 {
		config.ArchiveRetentionDays = 0
	}

	var formats []string
	for _, f := range config.OutputFormats {
		for _, part := range strings.Split(f, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				formats = append(formats, part)
			}
		}
	}
	if len(formats) == 0 {
		formats = []string{"xlsx"}
	}
	config.OutputFormats = formats
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", config.LogLevel)
	}

	for _, f := range config.OutputFormats {
		switch f {
		case "xlsx", "csv", "json":
		default:
			return fmt.Errorf("invalid output format %q", f)
		}
	}

	return nil
}

// EnsureDirectories creates the working directories of the configuration.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{
		c.InputDir,
		c.OutputDir,
		c.InputArchiveDir,
		c.OutputArchiveDir,
		c.ConfigsDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadDepartmentConfigs loads all department configurations from a directory.
//
// PARAMETERS:
//   - configsDir: The path to the directory containing department configuration files.
//
// RETURNS:
//   - A map of department configurations, keyed by department code.
//   - An error if the directory cannot be read or any file cannot be parsed.
func LoadDepartmentConfigs(configsDir string) (map[string]*DepartmentConfig, error) {
	configs := make(map[string]*DepartmentConfig)

	// Find all YAML files in the configs directory.
	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}

	// Also check for .yml extension.
	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	for _, file := range files {
		config, err := LoadDepartmentConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		// Use department code as the key.
		// If no code is specified, use the file name.
		key := config.DepartmentCode
		if key == "" {
			key = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}

		if _, dup := configs[key]; dup {
			return nil, fmt.Errorf("duplicate department code %q in %s", key, file)
		}
		configs[key] = config
	}

	return configs, nil
}

// LoadDepartmentConfig loads a single department configuration file.
func LoadDepartmentConfig(filePath string) (*DepartmentConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config DepartmentConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyDepartmentConfigDefaults(&config)

	return &config, nil
}

// NewDepartmentConfig returns a department with every default applied. It
// reads the standard export layout and includes all cost centers.
func NewDepartmentConfig(code string) *DepartmentConfig {
	config := &DepartmentConfig{DepartmentCode: code}
	applyDepartmentConfigDefaults(config)
	return config
}

// applyDepartmentConfigDefaults sets default values for department configuration.
func applyDepartmentConfigDefaults(config *DepartmentConfig) {
	if config.DepartmentName == "" {
		config.DepartmentName = config.DepartmentCode
	}
	if config.Statement == "" {
		config.Statement = "department"
	}

	config.LedgerColumns = config.LedgerColumns.WithDefaults()

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = 1
	}
}

// FindDepartment returns the department with the given code.
func FindDepartment(depts map[string]*DepartmentConfig, code string) (*DepartmentConfig, error) {
	if dept, ok := depts[code]; ok {
		return dept, nil
	}
	for key, dept := range depts {
		if strings.EqualFold(key, code) {
			return dept, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDepartment, code)
}

// MatchDepartment returns the department whose file_matching_patterns match
// the base name of filePath. Departments are tried in code order.
func MatchDepartment(depts map[string]*DepartmentConfig, filePath string) (*DepartmentConfig, bool) {
	codes := make([]string, 0, len(depts))
	for code := range depts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	name := filepath.Base(filePath)
	for _, code := range codes {
		for _, pattern := range depts[code].FileMatchingPatterns {
			if matched, err := filepath.Match(pattern, name); err == nil && matched {
				return depts[code], true
			}
		}
	}
	return nil, false
}
