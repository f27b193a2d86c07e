package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"telemetry-hub/src/broadcast"
	"telemetry-hub/src/config"
	"telemetry-hub/src/helpers"
	"telemetry-hub/src/logger"
	"telemetry-hub/src/models"
	"telemetry-hub/src/pipeline"
	"telemetry-hub/src/rate"
	"telemetry-hub/src/server"
	"telemetry-hub/src/sources"
	"telemetry-hub/src/storage"

	"github.com/jonboulle/clockwork"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	appLogger.Info("Memory Limit: %d MB", helpers.GetRecommendedMemoryLimit())

	// 4. Shared rate controller and broadcaster
	rateController := rate.NewController(
		time.Duration(conf.Rate.DefaultMs)*time.Millisecond,
		time.Duration(conf.Rate.MinMs)*time.Millisecond,
		time.Duration(conf.Rate.MaxMs)*time.Millisecond,
	)
	bus := broadcast.NewBroadcaster(conf.Broadcast.Capacity)

	// 5. Stream sources behind the configured pipeline stage
	manager := sources.NewSourceManager(appLogger, stageFactory(conf.MConfig, bus))
	for _, srcCfg := range conf.Sources {
		source, err := sources.BuildSource(srcCfg, rateController, conf.LogLevel)
		if err != nil {
			appLogger.Critical("Failed to build source %s: %v", srcCfg.Name, err)
		}
		if err := manager.AddSource(source); err != nil {
			appLogger.Critical("Failed to register source %s: %v", srcCfg.Name, err)
		}
	}

	// Lifecycle Management
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	if err := manager.StartAll(ctx, &wg); err != nil {
		appLogger.Critical("Failed to start stream sources: %v", err)
	}

	// 6. Optional archive subscriber
	store, err := storage.NewStore(conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to create archive store: %v", err)
	}
	var archiver *storage.Archiver
	if store != nil {
		// Postgres may still be coming up when we are started by an init system.
		if err := helpers.RetryWithBackoff(appLogger, "archive store init", 5, 2*time.Second, store.Initialize); err != nil {
			appLogger.Critical("Failed to initialize archive store: %v", err)
		}
		archiver = storage.NewArchiver(store, conf.LogLevel)
		archiver.Start(ctx, bus, &wg)
	}

	// 7. HTTP / WebSocket server
	srv := server.NewHubServer(conf.MConfig, appLogger, rateController, bus, manager)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server stopped: %v", err)
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	appLogger.Info("Received %v, shutting down...", sig)

	srv.Stop()
	manager.StopAll()
	cancel()
	bus.Close()
	wg.Wait()

	if store != nil {
		store.Close()
	}
	appLogger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

// stageFactory returns a constructor for the per-source pipeline stage
// selected by the config. Every stage feeds the shared broadcaster.
func stageFactory(cfg *models.MConfig, bus *broadcast.Broadcaster) func() pipeline.Stage {
	sink := bus.Publish

	switch cfg.Pipeline.Mode {
	case "decimate":
		return func() pipeline.Stage {
			return pipeline.NewDecimator(cfg.Pipeline.DecimationFactor, cfg.Pipeline.SignificantPct, sink)
		}
	case "batch":
		return func() pipeline.Stage {
			return pipeline.NewBatcher(
				cfg.Pipeline.BatchMaxSize,
				time.Duration(cfg.Pipeline.BatchMaxAgeMs)*time.Millisecond,
				cfg.Pipeline.SignificantPct,
				clockwork.NewRealClock(),
				sink,
			)
		}
	default:
		return func() pipeline.Stage {
			return pipeline.NewPassthrough(sink)
		}
	}
}
