package main

import (
	"github.com/urfave/cli/v2"

	"solana-atomic-arb/internal/config"
)

// loadConfig layers explicitly set command-line flags over the config file
// and ARBSCAN_* environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	str := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	integer := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	slot := func(name string, dst *uint64) {
		if c.IsSet(name) {
			*dst = c.Uint64(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}

	// global
	str("log-level", &cfg.Output.LogLevel)
	str("log-file", &cfg.Output.LogFile)
	str("postgres-dsn", &cfg.Postgres.DSN)
	str("clickhouse-dsn", &cfg.ClickHouse.DSN)

	// scan
	slot("begin-slot", &cfg.Scan.BeginSlot)
	slot("end-slot", &cfg.Scan.EndSlot)
	integer("top", &cfg.Scan.TopN)
	str("rank-by", &cfg.Scan.RankBy)
	integer("fetch-concurrency", &cfg.Scan.FetchConcurrency)
	boolean("exclude-program-owned", &cfg.Scan.ExcludeProgramOwned)
	boolean("wait-finalized", &cfg.Scan.WaitFinalized)
	str("rpc-endpoint", &cfg.RPC.Endpoint)
	str("ws-endpoint", &cfg.RPC.WSEndpoint)
	str("rpc-backend", &cfg.RPC.Backend)
	integer("max-retries", &cfg.RPC.MaxRetries)
	str("redis-addr", &cfg.Redis.Addr)
	str("nats-url", &cfg.NATS.URL)
	str("s3-bucket", &cfg.S3.Bucket)
	str("data-file", &cfg.Output.DataFile)
	str("metrics-addr", &cfg.Output.MetricsAddr)
	boolean("migrate", &cfg.Postgres.RunMigrations)
}
