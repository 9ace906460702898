// Command chordsim builds a small in-process Chord ring from a
// configuration file, inserts a handful of nodes, runs a put/get against
// it, and prints a health-check snapshot. It exists to exercise the
// ambient stack (config, logging, tracing) end to end; it is not a
// general-purpose DHT client.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"chorddht/internal/bootstrap"
	"chorddht/internal/codec"
	"chorddht/internal/config"
	"chorddht/internal/domain"
	"chorddht/internal/logger"
	zapfactory "chorddht/internal/logger/zap"
	"chorddht/internal/network"
	"chorddht/internal/telemetry"
)

var defaultConfigPath = "config/chordsim/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	nodeCount := flag.Int("nodes", 5, "number of nodes to insert into the ring")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger = &logger.NopLogger{}
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	}
	cfg.LogConfig(lgr)

	runID := uuid.New().String()
	lgr = lgr.With(logger.F("run_id", runID))

	space, err := domain.NewSpace(cfg.DHT.IDBits)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err.Error()))
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, "chordsim", space.Zero())
	if err != nil {
		lgr.Error("failed to initialize tracing", logger.F("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	var pc codec.Codec = codec.Identity{}
	if cfg.DHT.Codec.Kind == "chacha20poly1305" {
		key, err := hex.DecodeString(cfg.DHT.Codec.Key)
		if err != nil {
			lgr.Error("invalid codec key", logger.F("err", err.Error()))
			os.Exit(1)
		}
		aead, err := codec.NewAEAD(key)
		if err != nil {
			lgr.Error("failed to initialize codec", logger.F("err", err.Error()))
			os.Exit(1)
		}
		pc = aead
	}

	netOpts := []network.Option{
		network.WithLogger(lgr),
		network.WithCodec(pc),
		network.WithCacheCapacity(cfg.DHT.Cache.Capacity),
		network.WithMaintenance(
			cfg.DHT.Maintenance.StabilizeInterval,
			cfg.DHT.Maintenance.FixFingersInterval,
			cfg.DHT.Maintenance.BackupInterval,
			cfg.DHT.Maintenance.FailureTimeout,
		),
	}
	if cfg.DHT.Bootstrap.Mode == "static" {
		netOpts = append(netOpts, network.WithBootstrap(bootstrap.NewStatic(cfg.DHT.Bootstrap.Peers)))
	}
	net := network.New(space, netOpts...)

	ctx := context.Background()
	for i := 0; i < *nodeCount; i++ {
		rawID := fmt.Sprintf("node-%d", i)
		handle, err := net.InsertNode(ctx, rawID)
		if err != nil {
			lgr.Error("failed to insert node", logger.F("err", err.Error()))
			os.Exit(1)
		}
		lgr.Info("inserted node", logger.F("raw_id", rawID), logger.FHandle("handle", handle))
	}

	net.Quiesce(ctx, *nodeCount*2)

	if err := net.Put(ctx, "hello", []byte("world")); err != nil {
		lgr.Error("put failed", logger.F("err", err.Error()))
		os.Exit(1)
	}
	value, err := net.Get(ctx, "hello")
	if err != nil {
		lgr.Error("get failed", logger.F("err", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("hello -> %s\n", value)

	for _, report := range net.Introspect() {
		fmt.Printf("node %s: successor=%s predecessor=%s stored=%d lookups_attempted=%d\n",
			report.Handle, report.Successor, report.Predecessor, report.StoredKeys, report.Metrics.LookupsAttempted)
	}
	for check, ok := range net.HealthCheck() {
		fmt.Printf("health check %s: %v\n", check, ok)
	}

	time.Sleep(10 * time.Millisecond)
}
