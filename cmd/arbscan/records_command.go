package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"solana-atomic-arb/internal/domain"
	pgstore "solana-atomic-arb/internal/storage/postgres"
)

// recordJSON is the JSON form of a stored record, also the jq input.
type recordJSON struct {
	RecordID       string   `json:"record_id"`
	Slot           uint64   `json:"slot"`
	BlockTime      *int64   `json:"block_time,omitempty"`
	Signature      string   `json:"signature"`
	Trader         string   `json:"trader"`
	Token          string   `json:"token"`
	Profit         string   `json:"profit"`
	ScaledProfit   string   `json:"scaled_profit"`
	Decimals       uint8    `json:"decimals"`
	PathLength     int      `json:"path_length"`
	InvolvedTokens []string `json:"involved_tokens"`
}

func toRecordJSON(r domain.ArbitrageRecord) recordJSON {
	return recordJSON{
		RecordID:       r.RecordID,
		Slot:           r.Slot,
		BlockTime:      r.BlockTime,
		Signature:      r.TransactionID,
		Trader:         r.Trader,
		Token:          r.Token,
		Profit:         r.Profit.String(),
		ScaledProfit:   r.ScaledProfit().String(),
		Decimals:       r.Decimals,
		PathLength:     r.PathLength,
		InvolvedTokens: r.InvolvedTokens,
	}
}

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:    "records",
		Usage:   "Query stored arbitrage records",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "begin-slot", Aliases: []string{"b"}, Usage: "first slot, inclusive"},
			&cli.Uint64Flag{Name: "end-slot", Aliases: []string{"e"}, Usage: "last slot, inclusive"},
			&cli.StringFlag{Name: "trader", Aliases: []string{"t"}, Usage: "only records of this trader"},
			&cli.StringSliceFlag{Name: "jq", Usage: "jq filter a record must satisfy (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("--postgres-dsn is required")
			}
			filters, err := compileFilters(c.StringSlice("jq"))
			if err != nil {
				return err
			}

			ctx := c.Context
			pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			records, err := queryRecords(ctx, pgstore.NewRecordStore(pool), c)
			if err != nil {
				return err
			}

			matched, err := filterRecords(records, filters)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return writeJSONLines(c.App.Writer, matched)
			}
			writeRecordTable(c.App.Writer, matched)
			fmt.Fprintf(c.App.ErrWriter, "\nTotal: %d records\n", len(matched))
			return nil
		},
	}
}

type recordQuerier interface {
	GetBySlotRange(ctx context.Context, begin, end uint64) ([]domain.ArbitrageRecord, error)
	GetByTrader(ctx context.Context, trader string) ([]domain.ArbitrageRecord, error)
}

func queryRecords(ctx context.Context, store recordQuerier, c *cli.Context) ([]domain.ArbitrageRecord, error) {
	if trader := c.String("trader"); trader != "" {
		records, err := store.GetByTrader(ctx, trader)
		if err != nil {
			return nil, fmt.Errorf("query trader %s: %w", trader, err)
		}
		return records, nil
	}
	if !c.IsSet("begin-slot") || !c.IsSet("end-slot") {
		return nil, fmt.Errorf("either --trader or both --begin-slot and --end-slot are required")
	}
	begin, end := c.Uint64("begin-slot"), c.Uint64("end-slot")
	if begin > end {
		return nil, fmt.Errorf("begin slot %d is after end slot %d", begin, end)
	}
	records, err := store.GetBySlotRange(ctx, begin, end)
	if err != nil {
		return nil, fmt.Errorf("query slots %d-%d: %w", begin, end, err)
	}
	return records, nil
}

func compileFilters(exprs []string) ([]*gojq.Code, error) {
	codes := make([]*gojq.Code, 0, len(exprs))
	for _, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("parse jq filter %q: %w", expr, err)
		}
		code, err := gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("compile jq filter %q: %w", expr, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// filterRecords keeps records for which every filter yields a truthy first
// value. A filter runtime error drops the record.
func filterRecords(records []domain.ArbitrageRecord, filters []*gojq.Code) ([]recordJSON, error) {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		rj := toRecordJSON(r)
		if len(filters) == 0 {
			out = append(out, rj)
			continue
		}

		input, err := jqInput(rj)
		if err != nil {
			return nil, err
		}
		keep := true
		for _, code := range filters {
			v, ok := code.Run(input).Next()
			if !ok {
				keep = false
				break
			}
			if _, isErr := v.(error); isErr || !isTruthy(v) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rj)
		}
	}
	return out, nil
}

// jqInput converts v to the plain map/slice form gojq operates on.
func jqInput(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}

func writeJSONLines(w io.Writer, records []recordJSON) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func writeRecordTable(w io.Writer, records []recordJSON) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tTIME\tSIGNATURE\tTRADER\tTOKEN\tPROFIT\tHOPS")
	for _, r := range records {
		when := "-"
		if r.BlockTime != nil {
			when = time.Unix(*r.BlockTime, 0).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.Slot, when, r.Signature, r.Trader, r.Token, r.Profit, r.PathLength)
	}
	tw.Flush()
}
