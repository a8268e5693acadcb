package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"nftescrow/config"
	"nftescrow/core"
	"nftescrow/core/events"
	"nftescrow/indexer"
	"nftescrow/observability"
	"nftescrow/observability/logging"
	telemetry "nftescrow/observability/otel"
	"nftescrow/rpc"
	"nftescrow/storage"
)

const serviceName = "marketd"

func main() {
	configFile := flag.String("config", "./market.toml", "Path to the configuration file (TOML or YAML)")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides GenesisFile)")
	flag.Parse()

	if err := run(*configFile, *genesisFlag); err != nil {
		slog.Error("marketd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configFile, genesisOverride string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if override := strings.TrimSpace(genesisOverride); override != "" {
		cfg.GenesisFile = override
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := logging.SetupWithOptions(logging.Options{
		Service:   serviceName,
		Env:       cfg.Environment,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Level:     level,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Headers:     telemetry.ParseHeaders(cfg.OTLPHeaders),
		Traces:      strings.TrimSpace(cfg.OTLPEndpoint) != "",
		Metrics:     strings.TrimSpace(cfg.OTLPEndpoint) != "",
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	db, err := storage.Open(cfg.DBBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	owner, marketAddr, err := cfg.Identities()
	if err != nil {
		db.Close()
		return err
	}
	node, err := core.NewNode(db, core.Config{Address: marketAddr, Owner: owner})
	if err != nil {
		db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()
	node.SetLogger(logger)

	stream := events.NewBroadcaster()
	sinks := events.Multi{stream, observability.Events()}
	var history *indexer.EventStore
	if dsn := strings.TrimSpace(cfg.EventsDSN); dsn != "" {
		history, err = indexer.Open(dsn)
		if err != nil {
			return fmt.Errorf("open event history: %w", err)
		}
		defer history.Close()
		sinks = append(sinks, history)
	}
	node.SetEmitter(sinks)

	spec, err := cfg.Genesis()
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	applied, err := node.EnsureGenesis(ctx, spec)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info("marketplace ready",
		slog.String("market", marketAddr.Hex()),
		slog.String("owner", owner.Hex()),
		slog.Bool("genesisApplied", applied),
		slog.String("backend", cfg.DBBackend))

	server, err := rpc.NewServer(node, history, stream, rpc.ServerConfig{
		AuthToken:          cfg.RPCToken,
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: float64(cfg.RateLimitPerMinute),
		RateLimitBurst:     cfg.RateLimitBurst,
		ReadTimeout:        cfg.ReadTimeout.Duration,
		WriteTimeout:       cfg.WriteTimeout.Duration,
	})
	if err != nil {
		return err
	}
	if err := server.Start(ctx, cfg.ListenAddress); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("marketd stopped")
	return nil
}
