// FILE: lixenwraith/sinklog/cmd/stress/main.go
package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/lixenwraith/sinklog"
	"github.com/lixenwraith/sinklog/metrics"
)

var (
	configFile   = pflag.StringP("config", "c", "", "TOML config file with a [log.sinks.stress] table")
	logDir       = pflag.StringP("dir", "d", "./logs", "directory for the stress log file")
	workers      = pflag.IntP("workers", "w", 500, "concurrent producers")
	bursts       = pflag.IntP("bursts", "b", 100, "total bursts")
	perBurst     = pflag.Int("per-burst", 500, "records per burst")
	maxMsgSize   = pflag.Int("max-msg", 10000, "maximum random message size")
	overflow     = pflag.String("overflow", "drop_newest", "overflow policy: block, drop_newest or drop_oldest")
	bufferSize   = pflag.Int64("buffer", 500, "sink queue capacity")
	maxSize      = pflag.Int64("max-size", 1<<20, "rotate at this many bytes")
	maxFiles     = pflag.Int64("max-files", 20, "rotated generations to keep")
	compression  = pflag.String("compression", "gzip", "rotated file compression: none, gzip or zstd")
	overrides    = pflag.StringArray("set", nil, "extra key=value overrides, repeatable")
	metricsAddr  = pflag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	stderrErrors = pflag.Bool("stderr-errors", true, "print internal failures to stderr")
)

var levels = []sinklog.Severity{
	sinklog.LevelDebug,
	sinklog.LevelInfo,
	sinklog.LevelWarn,
	sinklog.LevelError,
}

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

// logBurst simulates a burst of logging activity
func logBurst(logger *sinklog.Logger, burstID int) {
	for i := 0; i < *perBurst; i++ {
		msg := generateRandomMessage(rand.Intn(*maxMsgSize) + 10)
		logger.Log(levels[rand.Intn(len(levels))], msg,
			"wkr", burstID%*workers,
			"bst", burstID,
			"seq", i,
			"rnd", rand.Int63(),
		)
	}
}

// worker goroutine function
func worker(logger *sinklog.Logger, burstChan chan int, wg *sync.WaitGroup, completedBursts *atomic.Int64) {
	defer wg.Done()
	for burstID := range burstChan {
		logBurst(logger, burstID)
		completed := completedBursts.Add(1)
		if completed%10 == 0 || completed == int64(*bursts) {
			fmt.Printf("\rProgress: %d/%d bursts completed", completed, *bursts)
		}
	}
}

func loadConfig() (*sinklog.Config, error) {
	if *configFile != "" {
		cfg, err := sinklog.NewConfigFromFile(*configFile, "stress")
		if err != nil {
			return nil, err
		}
		return cfg, cfg.ApplyOverride(*overrides...)
	}

	cfg := sinklog.DefaultConfig()
	sc := sinklog.DefaultSinkConfig(sinklog.SinkFile)
	sc.Path = filepath.Join(*logDir, "stress.log")
	sc.BufferSize = *bufferSize
	sc.Overflow = *overflow
	sc.MaxSizeBytes = *maxSize
	sc.MaxFiles = *maxFiles
	sc.Compression = *compression
	cfg.Sinks["stress"] = sc

	cfg.Level = "debug"
	cfg.InternalErrorsToStderr = *stderrErrors
	cfg.ShutdownTimeoutMs = 10000

	return cfg, cfg.ApplyOverride(*overrides...)
}

func main() {
	pflag.Parse()

	fmt.Println("--- Logger Stress Test ---")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	var failures atomic.Int64
	logger, err := sinklog.New(cfg, sinklog.WithErrorHandler(func(ev sinklog.Event) {
		failures.Add(1)
	}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logger initialized with sinks %v\n", logger.SinkNames())

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector("stress", logger))
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "Metrics server stopped: %v\n", err)
			}
		}()
		fmt.Printf("Serving metrics on http://%s/metrics\n", *metricsAddr)
	}

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		*workers, *bursts, *perBurst)
	fmt.Println("Press Ctrl+C to stop early.")

	burstChan := make(chan int, *workers)
	var wg sync.WaitGroup
	completedBursts := atomic.Int64{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopChan := make(chan struct{})

	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping burst generation...")
		close(stopChan)
	}()

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go worker(logger, burstChan, &wg, &completedBursts)
	}

	startTime := time.Now()
submit:
	for i := 1; i <= *bursts; i++ {
		select {
		case burstChan <- i:
		case <-stopChan:
			fmt.Println("[Signal Received] Halting burst submission.")
			break submit
		}
	}
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, *bursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		logsPerSec := float64(finalCompleted*int64(*perBurst)) / duration.Seconds()
		fmt.Printf("Approximate Logs/sec: %.2f\n", logsPerSec)
	}

	fmt.Println("Shutting down logger...")
	if err := logger.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	} else {
		fmt.Println("Logger shutdown complete.")
	}

	for name, s := range logger.Stats() {
		fmt.Printf("sink %s: submitted=%d processed=%d dropped=%d write_errors=%d rotations=%d compressions=%d rotation_errors=%d compression_errors=%d\n",
			name, s.Submitted, s.Processed, s.Dropped, s.WriteErrors, s.Rotations, s.Compressions, s.RotationErrors, s.CompressionErrors)
	}
	fmt.Printf("internal failure events: %d\n", failures.Load())
}
