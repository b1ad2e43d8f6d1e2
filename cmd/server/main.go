package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pgheap/pgheap/internal/config"
	"github.com/pgheap/pgheap/internal/engine"
	"github.com/pgheap/pgheap/internal/pkg/logging"
	"github.com/pgheap/pgheap/internal/storage"
	"github.com/pgheap/pgheap/internal/wire"
	"go.uber.org/zap"
)

func main() {
	port := flag.Int("port", config.DefaultPort, "TCP port to listen on")
	bufferSize := flag.Int("buffer-pages", config.DefaultBufferSize, "number of pages held in the buffer pool")
	dataRoot := flag.String("data", config.DefaultDataRoot, "directory holding table page files")
	logLevel := flag.String("log-level", "info", "debug, info, warn, error")
	flag.Parse()

	cfg := config.New(
		config.WithPort(*port),
		config.WithBufferSize(*bufferSize),
		config.WithDataRoot(*dataRoot),
	)

	logConf := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(*logLevel); err == nil {
		logConf.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := logConf.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		logger.Fatal("creating data directory", zap.Error(err), zap.String("path", cfg.DataRoot))
	}

	pfm := storage.NewPageFileManager(cfg.DataRoot)
	pool := storage.NewBufferPool(pfm, cfg.BufferSize, logger).
		ConfigureEviction(cfg.EvictionThreshold, cfg.TargetUtilization)
	stopSweep := pool.StartBackgroundSweep(cfg.EvictionInterval)
	defer stopSweep()

	heap := storage.NewHeap(pfm, pool)
	executor := engine.New(heap)

	srv, err := wire.NewServer(executor, logger, cfg.Port, cfg.ConnectionTimeout, cfg.QueryTimeout)
	if err != nil {
		logger.Fatal("starting server", zap.Error(err))
	}
	srv.Serve()

	logger.Info("pgheap ready", zap.Int("port", cfg.Port), zap.String("data", cfg.DataRoot))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println()
	logger.Info("shutting down")
	srv.Stop()

	if n, err := pool.FlushAll(); err != nil {
		logger.Error("flushing buffer pool on shutdown", zap.Error(err), zap.Int("flushed", n))
	}
}
