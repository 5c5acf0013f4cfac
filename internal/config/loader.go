package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARBSCAN_"

// Load merges the file at path (TOML or YAML by extension) over Defaults and
// applies ARBSCAN_* environment overrides. An empty path skips the file.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return &ConfigurationError{Problems: []string{fmt.Sprintf("unsupported config format %q", filepath.Ext(path))}}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// scan
	setUint64(&cfg.Scan.BeginSlot, "SCAN_BEGIN_SLOT")
	setUint64(&cfg.Scan.EndSlot, "SCAN_END_SLOT")
	setInt(&cfg.Scan.TopN, "SCAN_TOP_N")
	setStr(&cfg.Scan.RankBy, "SCAN_RANK_BY")
	setInt(&cfg.Scan.FetchConcurrency, "SCAN_FETCH_CONCURRENCY")
	setBool(&cfg.Scan.ExcludeProgramOwned, "SCAN_EXCLUDE_PROGRAM_OWNED")
	setBool(&cfg.Scan.WaitFinalized, "SCAN_WAIT_FINALIZED")

	// rpc
	setStr(&cfg.RPC.Endpoint, "RPC_ENDPOINT")
	setStr(&cfg.RPC.WSEndpoint, "RPC_WS_ENDPOINT")
	setStr(&cfg.RPC.Backend, "RPC_BACKEND")
	setDuration(&cfg.RPC.Timeout, "RPC_TIMEOUT")
	setInt(&cfg.RPC.MaxRetries, "RPC_MAX_RETRIES")
	setDuration(&cfg.RPC.RetryDelay, "RPC_RETRY_DELAY")
	setDuration(&cfg.RPC.MaxDelay, "RPC_MAX_DELAY")

	// stores and sinks
	setStr(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setBool(&cfg.Postgres.RunMigrations, "POSTGRES_RUN_MIGRATIONS")
	setStr(&cfg.ClickHouse.DSN, "CLICKHOUSE_DSN")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setDuration(&cfg.Redis.TTL, "REDIS_TTL")
	setStr(&cfg.NATS.URL, "NATS_URL")
	setStr(&cfg.NATS.SubjectPrefix, "NATS_SUBJECT_PREFIX")
	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.Prefix, "S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")

	// output
	setStr(&cfg.Output.DataFile, "DATA_FILE")
	setStr(&cfg.Output.LogFile, "LOG_FILE")
	setStr(&cfg.Output.LogLevel, "LOG_LEVEL")
	setStr(&cfg.Output.MetricsAddr, "METRICS_ADDR")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
