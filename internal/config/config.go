package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Warehouse holds connection and target settings for the warehouse.
type Warehouse struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	DSN       string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Account   string `mapstructure:"account" yaml:"account"`
	User      string `mapstructure:"user" yaml:"user"`
	Password  string `mapstructure:"password" yaml:"password,omitempty"`
	Database  string `mapstructure:"database" yaml:"database"`
	Schema    string `mapstructure:"schema" yaml:"schema"`
	Warehouse string `mapstructure:"warehouse" yaml:"warehouse"`
	Role      string `mapstructure:"role" yaml:"role,omitempty"`
	// Table is read by analyze when source is warehouse.
	Table string `mapstructure:"table" yaml:"table"`
	// UploadTable receives the split files.
	UploadTable string `mapstructure:"upload_table" yaml:"upload_table"`
	Stage       string `mapstructure:"stage" yaml:"stage"`
	FileFormat  string `mapstructure:"file_format" yaml:"file_format"`
}

// Global configuration structure.
type Global struct {
	DataPath      string `mapstructure:"data_path" yaml:"data_path"`
	DataURL       string `mapstructure:"data_url" yaml:"data_url,omitempty"`
	Source        string `mapstructure:"source" yaml:"source"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	TopN          int    `mapstructure:"top_n" yaml:"top_n"`
	DashboardTopN int    `mapstructure:"dashboard_top_n" yaml:"dashboard_top_n"`
	MaxRows       int    `mapstructure:"max_rows" yaml:"max_rows"`
	StrictDates   bool   `mapstructure:"strict_dates" yaml:"strict_dates"`
	MetricsFile   string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`

	// HTTP/Retry configuration for dataset downloads
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Split/staging
	SplitDir     string `mapstructure:"split_dir" yaml:"split_dir"`
	SplitPattern string `mapstructure:"split_pattern" yaml:"split_pattern"`
	SplitRows    int    `mapstructure:"split_rows" yaml:"split_rows"`
	MaxFileMB    int    `mapstructure:"max_file_mb" yaml:"max_file_mb"`

	Warehouse Warehouse `mapstructure:"warehouse" yaml:"warehouse"`
}

// warehouseEnv lists the conventional variables each warehouse key also
// reads, after the CRIMELENS_WAREHOUSE_* name.
var warehouseEnv = map[string]string{
	"account":   "SNOWFLAKE_ACCOUNT",
	"user":      "SNOWFLAKE_USER",
	"password":  "SNOWFLAKE_PASSWORD",
	"database":  "SNOWFLAKE_DATABASE",
	"schema":    "SNOWFLAKE_SCHEMA",
	"warehouse": "SNOWFLAKE_WAREHOUSE",
	"role":      "SNOWFLAKE_ROLE",
	"dsn":       "DATABASE_URL",
}

// Dir returns ~/.crimelens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".crimelens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.crimelens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// may hold a warehouse password
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first.
func Load(cfgFile string) (*Global, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return load(cfgFile, true)
}

// LoadFile loads the config file over the defaults, ignoring the
// environment. config set edits this layer so values that only live in the
// environment are never written to disk.
func LoadFile(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

func load(cfgFile string, withEnv bool) (*Global, error) {
	v := viper.New()
	setDefaults(v)
	if withEnv {
		v.SetEnvPrefix("CRIMELENS")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		for key, env := range warehouseEnv {
			k := "warehouse." + key
			if err := v.BindEnv(k, "CRIMELENS_WAREHOUSE_"+strings.ToUpper(key), env); err != nil {
				return nil, fmt.Errorf("bind env %s: %w", k, err)
			}
		}
	}

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_path", filepath.Join("data", "chicago_crime.csv"))
	v.SetDefault("data_url", "")
	v.SetDefault("source", "file")
	v.SetDefault("output_dir", "results")
	v.SetDefault("top_n", 5)
	v.SetDefault("dashboard_top_n", 10)
	v.SetDefault("max_rows", 0)
	v.SetDefault("strict_dates", false)
	v.SetDefault("metrics_file", "")
	v.SetDefault("http_timeout_sec", 300)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("split_dir", filepath.Join("data", "split_files"))
	v.SetDefault("split_pattern", "chicago_crime_part_*.csv")
	v.SetDefault("split_rows", 100000)
	v.SetDefault("max_file_mb", 50)
	// Warehouse defaults
	v.SetDefault("warehouse.driver", "snowflake")
	v.SetDefault("warehouse.dsn", "")
	v.SetDefault("warehouse.account", "")
	v.SetDefault("warehouse.user", "")
	v.SetDefault("warehouse.password", "")
	v.SetDefault("warehouse.database", "CHICAGO_CRIME")
	v.SetDefault("warehouse.schema", "STATISTICS")
	v.SetDefault("warehouse.warehouse", "")
	v.SetDefault("warehouse.role", "")
	v.SetDefault("warehouse.table", "CHICAGO_CRIME_COPY")
	v.SetDefault("warehouse.upload_table", "CHICAGO_CRIME")
	v.SetDefault("warehouse.stage", "@~/staged")
	v.SetDefault("warehouse.file_format", "csv_format")
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Global) Validate() error {
	switch c.Source {
	case "file", "warehouse":
	default:
		return fmt.Errorf("invalid source %q (use file or warehouse)", c.Source)
	}
	if c.TopN <= 0 || c.DashboardTopN <= 0 {
		return errors.New("top_n and dashboard_top_n must be positive")
	}
	if c.MaxRows < 0 {
		return errors.New("max_rows must not be negative")
	}
	if c.MaxFileMB <= 0 {
		return errors.New("max_file_mb must be positive")
	}
	return nil
}
