package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"solana-atomic-arb/internal/domain"
	pgstore "solana-atomic-arb/internal/storage/postgres"
)

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent scan runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "maximum runs to show"},
			&cli.StringFlag{Name: "id", Usage: "show a single run"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("--postgres-dsn is required")
			}

			ctx := c.Context
			pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			store := pgstore.NewRunStore(pool)

			var runs []*domain.Run
			if id := c.String("id"); id != "" {
				run, err := store.GetByID(ctx, id)
				if err != nil {
					return fmt.Errorf("get run %s: %w", id, err)
				}
				runs = []*domain.Run{run}
			} else {
				runs, err = store.List(ctx, c.Int("limit"))
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			writeRunTable(c.App.Writer, runs)
			return nil
		},
	}
}

func writeRunTable(w io.Writer, runs []*domain.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSLOTS\tSTATUS\tPROCESSED\tABSENT\tSKIPPED TX\tARBS\tSTARTED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d-%d\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.RunID, r.BeginSlot, r.EndSlot, r.Status,
			r.SlotsProcessed, r.SlotsAbsent, r.TransactionsSkipped, r.ArbitrageCount,
			time.UnixMilli(r.StartedAt).UTC().Format(time.RFC3339), runDuration(r))
	}
	tw.Flush()
}

func runDuration(r *domain.Run) string {
	if r.FinishedAt == 0 {
		return "-"
	}
	return (time.Duration(r.FinishedAt-r.StartedAt) * time.Millisecond).String()
}
