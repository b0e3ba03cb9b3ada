package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSourceURL    = "https://web.archive.org/web/20230908091635/https://en.wikipedia.org/wiki/List_of_largest_banks"
	DefaultRatesPath    = "exchange_rate.csv"
	DefaultCSVPath      = "Largest_banks_data.csv"
	DefaultDBPath       = "Banks.db"
	DefaultTable        = "Largest_banks"
	DefaultProgressFile = "code_log.txt"
	DefaultColumnFormat = "MC_%s_Billion"
)

type SourceConfig struct {
	URL       string        `yaml:"url"`
	Columns   []string      `yaml:"columns"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type RedisCache struct {
	Addr string        `yaml:"addr"`
	DB   int           `yaml:"db"`
	TTL  time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	Redis RedisCache `yaml:"redis"`
}

type RatesConfig struct {
	Path         string   `yaml:"path"`
	Currencies   []string `yaml:"currencies"`
	ColumnFormat string   `yaml:"column_format"`
	// Precision is nil until set; an explicit 0 rounds to whole units.
	Precision    *int32   `yaml:"precision"`
}

// DefaultPrecision is the number of decimal places derived columns keep
// when rates.precision is absent.
const DefaultPrecision int32 = 2

// Places returns the configured rounding precision.
func (r RatesConfig) Places() int32 {
	if r.Precision == nil {
		return DefaultPrecision
	}
	return *r.Precision
}

type OutputConfig struct {
	CSVPath string `yaml:"csv_path"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite3, sqlite, duckdb, pgx, mysql
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level        string `yaml:"level"`
	ProgressFile string `yaml:"progress_file"`
}

type Config struct {
	Source  SourceConfig `yaml:"source"`
	Cache   CacheConfig  `yaml:"cache"`
	Rates   RatesConfig  `yaml:"rates"`
	Output  OutputConfig `yaml:"output"`
	Store   StoreConfig  `yaml:"store"`
	Queries []string     `yaml:"queries"`
	Kafka   KafkaConfig  `yaml:"kafka"`
	Log     LogConfig    `yaml:"log"`
}

// KafkaEnabled reports whether transformed rows should also be published.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// CacheEnabled reports whether fetched pages go through redis.
func (c Config) CacheEnabled() bool {
	return c.Cache.Redis.Addr != ""
}

// Default returns the configuration of the stock run: the archived
// largest-banks page, a local SQLite file and the three report queries.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// LoadFromEnv reads the YAML file named by CONFIG_PATH. Without it the
// defaults are used as-is.
func LoadFromEnv() (Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Source.URL == "" {
		c.Source.URL = DefaultSourceURL
	}
	if len(c.Source.Columns) == 0 {
		c.Source.Columns = []string{"Name", "MC_USD_Billion"}
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = "banketl/1.0"
	}
	if c.Source.Timeout <= 0 {
		c.Source.Timeout = 60 * time.Second
	}
	if c.Cache.Redis.TTL <= 0 {
		c.Cache.Redis.TTL = 24 * time.Hour
	}
	if c.Rates.Path == "" {
		c.Rates.Path = DefaultRatesPath
	}
	if len(c.Rates.Currencies) == 0 {
		c.Rates.Currencies = []string{"GBP", "EUR", "INR"}
	}
	if c.Rates.ColumnFormat == "" {
		c.Rates.ColumnFormat = DefaultColumnFormat
	}
	if c.Rates.Precision == nil {
		p := DefaultPrecision
		c.Rates.Precision = &p
	}
	if c.Output.CSVPath == "" {
		c.Output.CSVPath = DefaultCSVPath
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite3"
	}
	if c.Store.DSN == "" && (c.Store.Driver == "sqlite3" || c.Store.Driver == "sqlite") {
		c.Store.DSN = DefaultDBPath
	}
	if c.Store.Table == "" {
		c.Store.Table = DefaultTable
	}
	if len(c.Queries) == 0 {
		c.Queries = []string{
			"SELECT * FROM " + c.Store.Table,
			"SELECT AVG(" + fmt.Sprintf(c.Rates.ColumnFormat, c.Rates.Currencies[0]) + ") FROM " + c.Store.Table,
			"SELECT " + c.Source.Columns[0] + " FROM " + c.Store.Table + " LIMIT 5",
		}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "largest-banks"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.ProgressFile == "" {
		c.Log.ProgressFile = DefaultProgressFile
	}
}

var knownDrivers = map[string]bool{
	"sqlite3": true,
	"sqlite":  true,
	"duckdb":  true,
	"pgx":     true,
	"mysql":   true,
}

func (c Config) Validate() error {
	var errs []error
	if c.Source.URL == "" {
		errs = append(errs, errors.New("source.url is empty"))
	}
	if len(c.Source.Columns) < 2 {
		errs = append(errs, fmt.Errorf("source.columns needs a name and a metric column, got %d", len(c.Source.Columns)))
	}
	if len(c.Rates.Currencies) == 0 {
		errs = append(errs, errors.New("rates.currencies is empty"))
	}
	if c.Rates.Places() < 0 {
		errs = append(errs, fmt.Errorf("rates.precision must not be negative, got %d", c.Rates.Places()))
	}
	if !strings.Contains(c.Rates.ColumnFormat, "%s") {
		errs = append(errs, fmt.Errorf("rates.column_format %q has no %%s verb", c.Rates.ColumnFormat))
	}
	if !knownDrivers[c.Store.Driver] {
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is empty"))
	}
	if c.Store.Table == "" {
		errs = append(errs, errors.New("store.table is empty"))
	}
	return errors.Join(errs...)
}
