package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tc.com/crypto-intel/pkg/aggregator"
	"tc.com/crypto-intel/pkg/config"
	"tc.com/crypto-intel/pkg/logging"
	"tc.com/crypto-intel/pkg/metrics"
	"tc.com/crypto-intel/pkg/server/api"
	tradesignal "tc.com/crypto-intel/pkg/signal"
	"tc.com/crypto-intel/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	symbol     = flag.String("symbol", "", "Fetch one symbol, print the merged record, and exit")
	rationale  = flag.String("rationale", "", "Optional commentary to classify alongside -symbol")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("crypto-intel version %s\n", version.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting crypto-intel", "version", version.Version)

	agg, err := aggregator.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create aggregator", "error", err.Error())
	}
	defer func() {
		if err := agg.Close(); err != nil {
			logger.Error("Failed to close aggregator", "error", err.Error())
		}
	}()

	// One-shot mode: fetch, optionally classify, print, exit.
	if *symbol != "" {
		runOnce(agg, logger, *symbol, *rationale)
		return
	}

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server failed", "error", err.Error())
			}
		}()
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	server := api.NewServer(cfg.Server.Addr, agg, logger)
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			logger.Error("Server failed", "error", err.Error())
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down gracefully...")
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err.Error())
	}
	logger.Info("Shutdown complete")
}

func runOnce(agg *aggregator.Aggregator, logger *logging.Logger, symbol, rationale string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	record, err := agg.FetchCryptoData(ctx, symbol)
	if err != nil {
		logger.Fatal("Fetch failed", "symbol", symbol, "error", err.Error())
	}
	if record == nil {
		logger.Fatal("No data available", "symbol", symbol)
	}

	var out interface{} = record
	if rationale != "" {
		out = tradesignal.Classify(record, rationale)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		logger.Fatal("Failed to encode output", "error", err.Error())
	}
}
