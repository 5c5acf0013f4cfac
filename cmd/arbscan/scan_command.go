package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	s3blob "solana-atomic-arb/internal/blob/s3"
	"solana-atomic-arb/internal/config"
	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/metrics"
	"solana-atomic-arb/internal/observability"
	natspub "solana-atomic-arb/internal/publish/nats"
	"solana-atomic-arb/internal/reporting"
	"solana-atomic-arb/internal/scan"
	chstore "solana-atomic-arb/internal/storage/clickhouse"
	"solana-atomic-arb/internal/storage/migrations"
	pgstore "solana-atomic-arb/internal/storage/postgres"
)

// checkpointEvery is how many slots pass between run row updates.
const checkpointEvery = 25

// finalizeTimeout bounds the work done after the scan loop ends.
const finalizeTimeout = 2 * time.Minute

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan a slot range for atomic arbitrage",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "begin-slot", Aliases: []string{"b"}, Usage: "first slot, inclusive"},
			&cli.Uint64Flag{Name: "end-slot", Aliases: []string{"e"}, Usage: "last slot, inclusive"},
			&cli.IntFlag{Name: "top", Aliases: []string{"n"}, Usage: "leaderboard size"},
			&cli.StringFlag{Name: "rank-by", Usage: "profit or value"},
			&cli.IntFlag{Name: "fetch-concurrency", Usage: "slots fetched ahead in parallel"},
			&cli.BoolFlag{Name: "exclude-program-owned", Usage: "ignore transfers whose owner is a program derived address"},
			&cli.BoolFlag{Name: "wait-finalized", Usage: "wait until end-slot is finalized before scanning"},
			&cli.StringFlag{Name: "rpc-endpoint", Usage: "Solana JSON-RPC endpoint"},
			&cli.StringFlag{Name: "ws-endpoint", Usage: "Solana websocket endpoint"},
			&cli.StringFlag{Name: "rpc-backend", Usage: "http or sdk"},
			&cli.IntFlag{Name: "max-retries", Usage: "RPC retries per request"},
			&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for the slot cache"},
			&cli.StringFlag{Name: "nats-url", Usage: "NATS URL for publishing records"},
			&cli.StringFlag{Name: "s3-bucket", Usage: "bucket receiving the CSV and summary"},
			&cli.StringFlag{Name: "data-file", Aliases: []string{"o"}, Usage: "CSV output file"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Prometheus listen address (empty to disable)"},
			&cli.BoolFlag{Name: "migrate", Usage: "apply database migrations before scanning"},
		},
		Action: runScan,
	}
}

func runScan(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	prices, err := metrics.ParsePrices(cfg.Prices)
	if err != nil {
		return &config.ConfigurationError{Problems: []string{err.Error()}}
	}
	rankBy, err := metrics.ParseRankBy(strings.ToLower(cfg.Scan.RankBy))
	if err != nil {
		return &config.ConfigurationError{Problems: []string{err.Error()}}
	}

	logger, cleanup, err := newLogger(cfg.Output.LogLevel, cfg.Output.LogFile)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Output.MetricsAddr != "" {
		defer startMetricsServer(cfg.Output.MetricsAddr, logger)()
	}

	rpc := newRPCClient(cfg.RPC)
	if cfg.Scan.WaitFinalized {
		if err := waitFinalized(ctx, rpc, cfg.RPC.WSEndpoint, cfg.Scan.EndSlot, logger); err != nil {
			return err
		}
	}

	provider, lister, closeProvider, err := openSlotProvider(ctx, cfg, rpc, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	out, err := openOutputs(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer out.close()

	run := &domain.Run{
		RunID:     uuid.NewString(),
		BeginSlot: cfg.Scan.BeginSlot,
		EndSlot:   cfg.Scan.EndSlot,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UnixMilli(),
	}
	if out.runs != nil {
		if err := out.runs.Insert(ctx, run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	logger = logger.With(zap.String("run_id", run.RunID))

	agg := metrics.NewAggregatorState(prices)
	processor := scan.NewProcessor(scan.Options{
		Provider:         provider,
		Lister:           lister,
		Sink:             out.sinks,
		Aggregator:       agg,
		TopN:             cfg.Scan.TopN,
		FetchConcurrency: cfg.Scan.FetchConcurrency,
		Logger:           logger,
		OnSlot: func(counters scan.Counters) {
			if out.runs == nil || (counters.SlotsProcessed+counters.SlotsAbsent)%checkpointEvery != 0 {
				return
			}
			applyCounters(run, counters)
			if err := out.runs.Update(ctx, run); err != nil {
				logger.Warn("run checkpoint failed", zap.Error(err))
			}
		},
	})

	started := time.Now()
	res, runErr := processor.Run(ctx, cfg.Scan.BeginSlot, cfg.Scan.EndSlot)
	if err := out.csv.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("finish %s: %w", cfg.Output.DataFile, err)
	}

	// The scan context may be canceled by now.
	fctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	status := runStatus(runErr)
	observability.RecordRun(status, time.Since(started).Seconds())
	if res != nil {
		applyCounters(run, res.Counters)
	}
	run.Status = status
	run.FinishedAt = time.Now().UnixMilli()
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if out.runs != nil {
		if err := out.runs.Update(fctx, run); err != nil {
			logger.Warn("run update failed", zap.Error(err))
		}
	}

	if status == domain.RunStatusFailed {
		var fatal *scan.FatalFetchError
		if errors.As(runErr, &fatal) {
			logger.Error("scan aborted", zap.Uint64("slot", fatal.Slot), zap.Error(fatal.Err))
		}
		return runErr
	}

	report, err := reporting.NewGenerator(agg, prices, cfg.Scan.TopN, rankBy).Generate(res)
	if err != nil {
		return err
	}
	if err := printReport(c, report); err != nil {
		return err
	}

	if status == domain.RunStatusCanceled {
		return cli.Exit("scan canceled", 130)
	}
	return out.publish(fctx, cfg, run.RunID, agg, rankBy, report, logger)
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return domain.RunStatusCompleted
	case errors.Is(err, context.Canceled):
		return domain.RunStatusCanceled
	default:
		return domain.RunStatusFailed
	}
}

func applyCounters(run *domain.Run, c scan.Counters) {
	run.SlotsProcessed = c.SlotsProcessed
	run.SlotsAbsent = c.SlotsAbsent
	run.TransactionsAnalyzed = c.TransactionsAnalyzed
	run.TransactionsSkipped = c.TransactionsSkipped
	run.ArbitrageCount = c.ArbitrageCount
	run.LastSlot = c.LastSlot
}

func printReport(c *cli.Context, report *reporting.Report) error {
	w := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintln(w, reporting.RenderSummary(report))
	return nil
}

// outputs holds every destination a scan writes to.
type outputs struct {
	csvFile   *os.File
	csv       *reporting.CSVWriter
	sinks     scan.MultiSink
	runs      *pgstore.RunStore
	pool      *pgstore.Pool
	publisher *natspub.Publisher
}

func openOutputs(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *outputs, err error) {
	out := &outputs{}
	defer func() {
		if err != nil {
			out.close()
		}
	}()

	out.csvFile, err = os.Create(cfg.Output.DataFile)
	if err != nil {
		return nil, fmt.Errorf("create data file: %w", err)
	}
	out.csv = reporting.NewCSVWriter(out.csvFile)
	out.sinks = append(out.sinks, out.csv)

	if cfg.Postgres.DSN != "" {
		out.pool, err = pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			applied, err := migrations.RunPostgresMigrations(ctx, out.pool)
			if err != nil {
				return nil, err
			}
			logger.Info("postgres migrations applied", zap.Strings("applied", applied))
		}

		records := pgstore.NewRecordStore(out.pool)
		deleted, err := records.DeleteBySlotRange(ctx, cfg.Scan.BeginSlot, cfg.Scan.EndSlot)
		if err != nil {
			return nil, fmt.Errorf("clear previous records: %w", err)
		}
		if deleted > 0 {
			logger.Info("previous records replaced", zap.Int64("deleted", deleted))
		}
		out.runs = pgstore.NewRunStore(out.pool)
		out.sinks = append(out.sinks, scan.NewStoreSink(records))
	}

	if cfg.NATS.URL != "" {
		out.publisher, err = natspub.NewPublisher(ctx, cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return nil, err
		}
		out.sinks = append(out.sinks, out.publisher)
	}

	return out, nil
}

func (o *outputs) close() {
	if o.publisher != nil {
		_ = o.publisher.Close()
	}
	if o.pool != nil {
		o.pool.Close()
	}
	if o.csvFile != nil {
		_ = o.csvFile.Close()
	}
}

// publish writes the markdown summary next to the CSV, stores the
// leaderboard in ClickHouse and uploads both files to S3, each when
// configured.
func (o *outputs) publish(ctx context.Context, cfg *config.Config, runID string, agg *metrics.AggregatorState, rankBy metrics.RankBy, report *reporting.Report, logger *zap.Logger) error {
	md := reporting.RenderMarkdown(report)
	mdPath := strings.TrimSuffix(cfg.Output.DataFile, filepath.Ext(cfg.Output.DataFile)) + ".md"
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if cfg.ClickHouse.DSN != "" {
		if err := storeLeaderboard(ctx, cfg, runID, agg, rankBy); err != nil {
			return err
		}
		logger.Info("leaderboard stored", zap.String("database", "clickhouse"))
	}

	if cfg.S3.Bucket != "" {
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return err
		}
		up := s3blob.NewUploader(client, cfg.S3.Prefix, logger)
		if _, err := up.UploadFile(ctx, runID, cfg.Output.DataFile, "text/csv"); err != nil {
			return err
		}
		if _, err := up.Put(ctx, runID, "summary.md", []byte(md), "text/markdown"); err != nil {
			return err
		}
	}
	return nil
}

func storeLeaderboard(ctx context.Context, cfg *config.Config, runID string, agg *metrics.AggregatorState, rankBy metrics.RankBy) error {
	var (
		conn *chstore.Conn
		err  error
	)
	if cfg.Postgres.RunMigrations {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	ranked, err := agg.Ranking(cfg.Scan.TopN, rankBy)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		return nil
	}
	return chstore.NewTraderStatsStore(conn).InsertBulk(ctx, runID, ranked)
}
