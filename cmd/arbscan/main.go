package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "arbscan",
		Usage: "Find atomic arbitrage in a range of finalized Solana slots",
		Description: `Scans every block in [begin-slot, end-slot], detects traders whose swaps
inside one transaction start and end in the same token with a profit, and
reports the records and a leaderboard.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Commands: []*cli.Command{
			scanCommand(),
			recordsCommand(),
			runsCommand(),
			migrateCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML or YAML configuration file",
				EnvVars: []string{"ARBSCAN_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "JSON log file (empty to disable)",
			},
			&cli.StringFlag{
				Name:  "postgres-dsn",
				Usage: "PostgreSQL connection string for records and runs",
			},
			&cli.StringFlag{
				Name:  "clickhouse-dsn",
				Usage: "ClickHouse DSN for leaderboard snapshots",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
