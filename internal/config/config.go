// Package config defines the scanner configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields come from Defaults, then an
// optional TOML or YAML file, then ARBSCAN_* environment variables, then
// command-line flags.
type Config struct {
	Scan       ScanConfig        `toml:"scan" yaml:"scan"`
	RPC        RPCConfig         `toml:"rpc" yaml:"rpc"`
	Postgres   PostgresConfig    `toml:"postgres" yaml:"postgres"`
	ClickHouse ClickHouseConfig  `toml:"clickhouse" yaml:"clickhouse"`
	Redis      RedisConfig       `toml:"redis" yaml:"redis"`
	NATS       NATSConfig        `toml:"nats" yaml:"nats"`
	S3         S3Config          `toml:"s3" yaml:"s3"`
	Output     OutputConfig      `toml:"output" yaml:"output"`
	Prices     map[string]string `toml:"prices" yaml:"prices"` // mint -> "usd[:decimals]"
}

// ScanConfig holds the slot range and detection options.
type ScanConfig struct {
	BeginSlot           uint64 `toml:"begin_slot" yaml:"begin_slot"`
	EndSlot             uint64 `toml:"end_slot" yaml:"end_slot"`
	TopN                int    `toml:"top_n" yaml:"top_n"`
	RankBy              string `toml:"rank_by" yaml:"rank_by"`
	FetchConcurrency    int    `toml:"fetch_concurrency" yaml:"fetch_concurrency"`
	ExcludeProgramOwned bool   `toml:"exclude_program_owned" yaml:"exclude_program_owned"`
	WaitFinalized       bool   `toml:"wait_finalized" yaml:"wait_finalized"`
}

// RPCConfig holds Solana RPC endpoints and retry policy.
type RPCConfig struct {
	Endpoint   string   `toml:"endpoint" yaml:"endpoint"`
	WSEndpoint string   `toml:"ws_endpoint" yaml:"ws_endpoint"`
	Backend    string   `toml:"backend" yaml:"backend"` // "http" or "sdk"
	Timeout    Duration `toml:"timeout" yaml:"timeout"`
	MaxRetries int      `toml:"max_retries" yaml:"max_retries"`
	RetryDelay Duration `toml:"retry_delay" yaml:"retry_delay"`
	MaxDelay   Duration `toml:"max_delay" yaml:"max_delay"`
}

// PostgresConfig enables the record and run stores when DSN is set.
type PostgresConfig struct {
	DSN           string `toml:"dsn" yaml:"dsn"`
	RunMigrations bool   `toml:"run_migrations" yaml:"run_migrations"`
}

// ClickHouseConfig enables the trader stats store when DSN is set.
type ClickHouseConfig struct {
	DSN string `toml:"dsn" yaml:"dsn"`
}

// RedisConfig enables the slot cache when Addr is set.
type RedisConfig struct {
	Addr     string   `toml:"addr" yaml:"addr"`
	Password string   `toml:"password" yaml:"password"`
	DB       int      `toml:"db" yaml:"db"`
	TTL      Duration `toml:"ttl" yaml:"ttl"`
}

// NATSConfig enables record publishing when URL is set.
type NATSConfig struct {
	URL           string `toml:"url" yaml:"url"`
	SubjectPrefix string `toml:"subject_prefix" yaml:"subject_prefix"`
}

// S3Config enables report upload when Bucket is set.
type S3Config struct {
	Endpoint       string `toml:"endpoint" yaml:"endpoint"`
	Region         string `toml:"region" yaml:"region"`
	Bucket         string `toml:"bucket" yaml:"bucket"`
	Prefix         string `toml:"prefix" yaml:"prefix"`
	AccessKey      string `toml:"access_key" yaml:"access_key"`
	SecretKey      string `toml:"secret_key" yaml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style" yaml:"force_path_style"`
}

// OutputConfig holds local output destinations.
type OutputConfig struct {
	DataFile    string `toml:"data_file" yaml:"data_file"`
	LogFile     string `toml:"log_file" yaml:"log_file"`
	LogLevel    string `toml:"log_level" yaml:"log_level"`
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`
}

// Duration wraps time.Duration for "5s"-style text decoding.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default values.
const (
	DefaultBeginSlot        = 308803801
	DefaultEndSlot          = 308803900
	DefaultTopN             = 10
	DefaultFetchConcurrency = 4
	DefaultEndpoint         = "https://api.mainnet-beta.solana.com"
	DefaultWSEndpoint       = "wss://api.mainnet-beta.solana.com"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Scan: ScanConfig{
			BeginSlot:           DefaultBeginSlot,
			EndSlot:             DefaultEndSlot,
			TopN:                DefaultTopN,
			RankBy:              "profit",
			FetchConcurrency:    DefaultFetchConcurrency,
			ExcludeProgramOwned: true,
		},
		RPC: RPCConfig{
			Endpoint:   DefaultEndpoint,
			WSEndpoint: DefaultWSEndpoint,
			Backend:    "http",
			Timeout:    Duration{30 * time.Second},
			MaxRetries: 5,
			RetryDelay: Duration{time.Second},
			MaxDelay:   Duration{10 * time.Second},
		},
		Redis: RedisConfig{
			TTL: Duration{24 * time.Hour},
		},
		NATS: NATSConfig{
			SubjectPrefix: "arbitrage.detected",
		},
		S3: S3Config{
			Region: "us-east-1",
			Prefix: "arbscan",
		},
		Output: OutputConfig{
			DataFile: "arbitrage.csv",
			LogFile:  "arbscan.log",
			LogLevel: "info",
		},
	}
}

var validBackends = map[string]bool{"http": true, "sdk": true}
var validRankKeys = map[string]bool{"profit": true, "value": true}
var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if err := ValidateRange(c.Scan.BeginSlot, c.Scan.EndSlot, c.Scan.TopN); err != nil {
		problems = append(problems, err.(*ConfigurationError).Problems...)
	}
	if !validRankKeys[strings.ToLower(c.Scan.RankBy)] {
		problems = append(problems, fmt.Sprintf("scan: unknown rank_by %q (valid: profit, value)", c.Scan.RankBy))
	}
	if c.Scan.FetchConcurrency < 1 {
		problems = append(problems, "scan: fetch_concurrency must be at least 1")
	}

	if c.RPC.Endpoint == "" {
		problems = append(problems, "rpc: endpoint must not be empty")
	}
	if !validBackends[strings.ToLower(c.RPC.Backend)] {
		problems = append(problems, fmt.Sprintf("rpc: unknown backend %q (valid: http, sdk)", c.RPC.Backend))
	}
	if c.RPC.MaxRetries < 0 {
		problems = append(problems, "rpc: max_retries must not be negative")
	}
	if c.RPC.Timeout.Duration <= 0 {
		problems = append(problems, "rpc: timeout must be positive")
	}
	if c.RPC.MaxDelay.Duration < c.RPC.RetryDelay.Duration {
		problems = append(problems, "rpc: max_delay must be >= retry_delay")
	}
	if c.Scan.WaitFinalized && c.RPC.WSEndpoint == "" {
		problems = append(problems, "rpc: ws_endpoint is required when scan.wait_finalized is set")
	}

	if c.S3.Bucket != "" && c.S3.Region == "" {
		problems = append(problems, "s3: region is required when bucket is set")
	}
	if !validLogLevels[strings.ToLower(c.Output.LogLevel)] {
		problems = append(problems, fmt.Sprintf("output: unknown log_level %q (valid: debug, info, warn, error)", c.Output.LogLevel))
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
