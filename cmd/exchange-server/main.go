package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	exchange "github.com/vijayshc/trino-teradata-exchange"
	"github.com/vijayshc/trino-teradata-exchange/internal/config"
	"github.com/vijayshc/trino-teradata-exchange/internal/logging"
)

// loggingJobRunner is a standalone job-runner stand-in: it logs the
// descriptor it was handed rather than launching a real producer-side job.
// A real deployment replaces this with a collaborator that talks to the
// query engine's own job scheduler.
type loggingJobRunner struct {
	log *logging.Logger
}

func (r *loggingJobRunner) SubmitJob(ctx context.Context, req exchange.JobRequest) error {
	r.log.Info("submitting producer job",
		"qid", req.QueryID,
		"endpoints", strings.Join(req.TargetConsumerEndpoints, ","),
		"batch_size", req.TargetBatchSize,
		"compression", req.CompressionAlgorithm)
	return nil
}

func main() {
	var (
		port     = flag.Int("port", 0, "Listen port (0 uses the built-in default)")
		endpoint = flag.String("endpoints", "", "Comma-separated advertised consumer endpoints (host:port,...)")
		verbose  = flag.Bool("v", false, "Verbose output")
		compress = flag.String("compression", "", "Compression algorithm: NONE, ZLIB, or LZ4")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.New(logConfig)
	logging.SetDefault(logger)

	cfg := config.Default()
	if *port != 0 {
		cfg.ListenPort = *port
	}
	if *endpoint != "" {
		cfg.AdvertisedEndpoints = strings.Split(*endpoint, ",")
	}
	if *compress != "" {
		cfg.CompressionAlgorithm = *compress
	}

	runner := &loggingJobRunner{log: logger}
	obs := exchange.NewMetricsObserver()
	bridge := exchange.NewBridge(cfg, runner, obs, logger)

	if err := bridge.Serve(); err != nil {
		logger.Error("failed to start ingestion server", "err", err)
		os.Exit(1)
	}
	logger.Info("ingestion server listening", "addr", bridge.Addr())
	fmt.Printf("exchange-server listening on %s\n", bridge.Addr())
	fmt.Printf("Press Ctrl+C to stop...\n")
	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump goroutine stacks\n", os.Getpid())

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n=== END ===\n\n", buf[:n])
			pprof.Lookup("goroutine").WriteTo(os.Stderr, 2)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	stopped := make(chan struct{})
	go func() {
		if err := bridge.Stop(); err != nil {
			logger.Error("error stopping ingestion server", "err", err)
		}
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		logger.Info("shutdown timeout, forcing exit")
	}

	os.Exit(0)
}
