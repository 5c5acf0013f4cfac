package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	cacheredis "solana-atomic-arb/internal/cache/redis"
	"solana-atomic-arb/internal/config"
	"solana-atomic-arb/internal/ingestion"
	"solana-atomic-arb/internal/observability"
	"solana-atomic-arb/internal/solana"
)

// newRPCClient builds the configured RPC backend.
func newRPCClient(cfg config.RPCConfig) solana.RPCClient {
	if strings.EqualFold(cfg.Backend, "sdk") {
		return solana.NewSDKClient(cfg.Endpoint, solana.RetryConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay.Duration,
			MaxDelay:   cfg.MaxDelay.Duration,
		})
	}
	return solana.NewHTTPClient(cfg.Endpoint,
		solana.WithTimeout(cfg.Timeout.Duration),
		solana.WithMaxRetries(cfg.MaxRetries),
		solana.WithRetryDelay(cfg.RetryDelay.Duration),
		solana.WithMaxDelay(cfg.MaxDelay.Duration),
	)
}

// waitFinalized blocks until endSlot is finalized. The websocket root stream
// is preferred; polling is the fallback when it cannot be opened.
func waitFinalized(ctx context.Context, rpc solana.RPCClient, wsEndpoint string, endSlot uint64, logger *zap.Logger) error {
	var roots <-chan uint64
	if wsEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, wsEndpoint, nil, logger)
		if err != nil {
			logger.Warn("root subscription unavailable, polling instead", zap.Error(err))
		} else {
			defer ws.Close()
			if roots, err = ws.SubscribeRoots(ctx); err != nil {
				logger.Warn("root subscription failed, polling instead", zap.Error(err))
				roots = nil
			}
		}
	}

	logger.Info("waiting for end slot to finalize", zap.Uint64("end_slot", endSlot))
	finalized, err := solana.WaitFinalized(ctx, rpc, roots, endSlot, solana.DefaultFinalityPoll)
	if err != nil {
		return fmt.Errorf("wait for slot %d to finalize: %w", endSlot, err)
	}
	logger.Info("end slot finalized", zap.Uint64("finalized", finalized))
	return nil
}

// openSlotProvider returns the provider chain and a cleanup function. The
// RPC provider is always returned as the lister.
func openSlotProvider(ctx context.Context, cfg *config.Config, rpc solana.RPCClient, logger *zap.Logger) (ingestion.SlotProvider, ingestion.SlotLister, func(), error) {
	provider := ingestion.NewRPCProvider(ingestion.ProviderOptions{
		RPC:                 rpc,
		ExcludeProgramOwned: cfg.Scan.ExcludeProgramOwned,
		Logger:              logger,
	})
	if cfg.Redis.Addr == "" {
		return provider, provider, func() {}, nil
	}

	client, err := cacheredis.New(ctx, cacheredis.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	scope := "all"
	if cfg.Scan.ExcludeProgramOwned {
		scope = "wallets"
	}
	cache := cacheredis.NewSlotCache(client, provider, cacheredis.SlotCacheOptions{
		TTL:    cfg.Redis.TTL.Duration,
		Prefix: fmt.Sprintf("arbscan:slot:%s:", scope),
		Logger: logger,
	})
	logger.Info("slot cache enabled", zap.String("addr", cfg.Redis.Addr))
	return cache, provider, func() { _ = client.Close() }, nil
}

// startMetricsServer serves /metrics and /health until the returned function
// is called.
func startMetricsServer(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
