package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vitebski/library-seeder/internal/schema"
)

// EnvPrefix is prepended to every environment variable read by the seeder
const EnvPrefix = "SEEDER"

// Config holds the settings of one seeding run
type Config struct {
	OutputDir             string  `mapstructure:"out-dir"`
	Driver                string  `mapstructure:"driver"`
	DBPath                string  `mapstructure:"db"`
	DSN                   string  `mapstructure:"dsn"`
	Books                 int     `mapstructure:"books"`
	BorrowingRecords      int     `mapstructure:"borrowing-records"`
	Members               int     `mapstructure:"members"`
	Seed                  int64   `mapstructure:"seed"`
	NullRate              float64 `mapstructure:"null-rate"`
	DuplicatePostcodeRate float64 `mapstructure:"duplicate-postcode-rate"`
	GenerateOnly          bool    `mapstructure:"generate-only"`
	LoadOnly              bool    `mapstructure:"load-only"`
	Verify                bool    `mapstructure:"verify"`
	AnalyzeOnly           bool    `mapstructure:"analyze-only"`
	LogLevel              string  `mapstructure:"log-level"`
}

// NewViper returns a viper instance with defaults and SEEDER_* environment
// lookups. Keys use the flag names, so SEEDER_OUT_DIR sets "out-dir".
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out-dir", ".")
	v.SetDefault("driver", schema.SQLite)
	v.SetDefault("db", "library.db")
	v.SetDefault("dsn", "")
	v.SetDefault("books", 1000)
	v.SetDefault("borrowing-records", 1000)
	v.SetDefault("members", 1000)
	v.SetDefault("seed", 0)
	v.SetDefault("null-rate", 0.0)
	v.SetDefault("duplicate-postcode-rate", 0.1)
	v.SetDefault("generate-only", false)
	v.SetDefault("load-only", false)
	v.SetDefault("verify", false)
	v.SetDefault("analyze-only", false)
	v.SetDefault("log-level", "")
	return v
}

// Load reads an optional config file and unmarshals every setting
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Driver = strings.ToLower(cfg.Driver)
	if cfg.Driver == "sqlite" {
		cfg.Driver = schema.SQLite
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &cfg, nil
}

// Destination returns the data source handed to the store driver
func (c *Config) Destination() string {
	if c.Driver == schema.MySQL {
		return c.DSN
	}
	return c.DBPath
}

// Validate checks the settings for consistency
func (c *Config) Validate() error {
	if c.Books < 0 || c.BorrowingRecords < 0 || c.Members < 0 {
		return fmt.Errorf("record counts must not be negative")
	}
	if c.BorrowingRecords > 0 && c.Books == 0 && !c.LoadOnly {
		return fmt.Errorf("borrowing records need at least one book")
	}
	if c.NullRate < 0 || c.NullRate > 1 {
		return fmt.Errorf("null-rate must be between 0 and 1, got %v", c.NullRate)
	}
	if c.DuplicatePostcodeRate < 0 || c.DuplicatePostcodeRate > 1 {
		return fmt.Errorf("duplicate-postcode-rate must be between 0 and 1, got %v", c.DuplicatePostcodeRate)
	}
	if c.GenerateOnly && c.LoadOnly {
		return fmt.Errorf("generate-only and load-only are mutually exclusive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("out-dir is required")
	}

	switch c.Driver {
	case schema.SQLite:
		if c.DBPath == "" && !c.GenerateOnly {
			return fmt.Errorf("db path is required for sqlite3")
		}
	case schema.MySQL:
		if c.DSN == "" && !c.GenerateOnly {
			return fmt.Errorf("dsn is required for mysql")
		}
	default:
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	}
	return nil
}
