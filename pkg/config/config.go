package config

import (
	"fmt"
	"regexp"
	"time"
)

const (
	InsertModeBatch  = "batch"
	InsertModePerRow = "per_row"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	DateLayout = "2006-01-02"
)

// Config is the full run configuration passed to the pipeline.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type InputConfig struct {
	Path        string `mapstructure:"path"`
	IndexColumn string `mapstructure:"index_column"`
}

type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig holds the connection parameters of the score table.
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Driver         string        `mapstructure:"driver"`
	DSN            string        `mapstructure:"dsn"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	Charset        string        `mapstructure:"charset"`
	Table          string        `mapstructure:"table"`
	InsertMode     string        `mapstructure:"insert_mode"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type ScoringConfig struct {
	ReferenceDate string `mapstructure:"reference_date"` // YYYY-MM-DD
	MinDistinct   int    `mapstructure:"min_distinct"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Reference parses the scoring reference date (UTC midnight).
func (s ScoringConfig) Reference() (time.Time, error) {
	t, err := time.Parse(DateLayout, s.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("scoring.reference_date %q: %w", s.ReferenceDate, err)
	}
	return t, nil
}

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidIdentifier reports whether s can be spliced into SQL as a table or charset name.
func ValidIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Input.IndexColumn == "" {
		cfg.Input.IndexColumn = "USERID"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverMySQL
	}
	if cfg.Database.Port == 0 {
		if cfg.Database.Driver == DriverPostgres {
			cfg.Database.Port = 5432
		} else {
			cfg.Database.Port = 3306
		}
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "sales_rfm_score"
	}
	if cfg.Database.InsertMode == "" {
		cfg.Database.InsertMode = InsertModeBatch
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 5 * time.Second
	}
	if cfg.Scoring.ReferenceDate == "" {
		cfg.Scoring.ReferenceDate = "2017-01-01"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate checks the fields the pipeline depends on.
func (cfg *Config) Validate() error {
	if cfg.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	if cfg.Input.IndexColumn == "" {
		return fmt.Errorf("input.index_column is required")
	}
	if _, err := cfg.Scoring.Reference(); err != nil {
		return err
	}
	if cfg.Scoring.MinDistinct < 0 {
		return fmt.Errorf("scoring.min_distinct must be >= 0")
	}
	if cfg.Output.Path == "" && !cfg.Database.Enabled {
		return fmt.Errorf("no destination: set output.path or database.enabled")
	}
	if !cfg.Database.Enabled {
		return nil
	}

	db := cfg.Database
	switch db.Driver {
	case DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("database.driver %q is not supported", db.Driver)
	}
	switch db.InsertMode {
	case InsertModeBatch, InsertModePerRow:
	default:
		return fmt.Errorf("database.insert_mode %q is not supported", db.InsertMode)
	}
	if !ValidIdentifier(db.Table) {
		return fmt.Errorf("database.table %q is not a valid identifier", db.Table)
	}
	if !ValidIdentifier(db.Charset) {
		return fmt.Errorf("database.charset %q is not a valid identifier", db.Charset)
	}
	if db.DSN == "" {
		if db.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if db.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if db.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	return nil
}
