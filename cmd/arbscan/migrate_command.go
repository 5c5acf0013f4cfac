package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"solana-atomic-arb/internal/storage/migrations"
	pgstore "solana-atomic-arb/internal/storage/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply PostgreSQL and ClickHouse schema migrations",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" && cfg.ClickHouse.DSN == "" {
				return fmt.Errorf("--postgres-dsn or --clickhouse-dsn is required")
			}
			ctx := c.Context

			if cfg.Postgres.DSN != "" {
				pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
				if err != nil {
					return err
				}
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				pool.Close()
				if err != nil {
					return fmt.Errorf("postgres migrations: %w", err)
				}
				if len(applied) == 0 {
					fmt.Fprintln(c.App.Writer, "postgres: up to date")
				}
				for _, name := range applied {
					fmt.Fprintf(c.App.Writer, "postgres: applied %s\n", name)
				}
			}

			if cfg.ClickHouse.DSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
				if err != nil {
					return fmt.Errorf("clickhouse migrations: %w", err)
				}
				conn.Close()
				fmt.Fprintln(c.App.Writer, "clickhouse: migrations applied")
			}
			return nil
		},
	}
}
