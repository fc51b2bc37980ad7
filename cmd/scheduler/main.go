package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"commerce-backend/internal/scheduler"
	"commerce-backend/pkg/container"
	"commerce-backend/pkg/lockfile"
	"commerce-backend/pkg/logger"
)

// Exit codes: 0 clean, 1 lock held / not running / runtime failure,
// 2 configuration or startup failure.
const (
	exitOK     = 0
	exitError  = 1
	exitConfig = 2
)

// The scheduler is the expiry sweeper daemon. A pid-file lock enforces a
// single instance per database; --status and --stop manage a running one.
func main() {
	os.Exit(run())
}

func run() int {
	interval := flag.Duration("interval", 0, "time between sweep passes (default from config)")
	maxAge := flag.Duration("max-age", 0, "pending order age before forced cancellation (default from config)")
	dryRun := flag.Bool("dry-run", false, "report what one pass would do without mutating, then exit")
	once := flag.Bool("once", false, "run a single pass and exit")
	status := flag.Bool("status", false, "report whether a scheduler is running")
	stop := flag.Bool("stop", false, "stop a running scheduler")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	lockPath := os.Getenv("SCHEDULER_LOCK_FILE")
	if lockPath == "" {
		lockPath = "expiry_scheduler.lock"
	}
	lock := lockfile.New(lockPath)

	if *status {
		if pid := lock.Owner(); pid != 0 {
			fmt.Printf("scheduler is running (pid %d)\n", pid)
			return exitOK
		}
		fmt.Println("scheduler is not running")
		return exitError
	}

	if *stop {
		pid := lock.Owner()
		if pid == 0 {
			fmt.Println("scheduler is not running")
			return exitError
		}
		proc, err := os.FindProcess(pid)
		if err != nil || proc.Signal(syscall.SIGTERM) != nil {
			fmt.Printf("failed to stop scheduler (pid %d)\n", pid)
			return exitError
		}
		fmt.Printf("sent stop signal to scheduler (pid %d)\n", pid)
		return exitOK
	}

	if err := lock.Acquire(); err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			fmt.Fprintf(os.Stderr, "another scheduler is already running: %v\n", err)
			return exitError
		}
		fmt.Fprintf(os.Stderr, "failed to acquire lock: %v\n", err)
		return exitConfig
	}
	defer lock.Release()

	appContainer, err := container.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize container: %v\n", err)
		return exitConfig
	}
	defer appContainer.Cleanup()

	cfg := appContainer.Config.Scheduler
	if *interval <= 0 {
		*interval = cfg.Interval
	}
	if *maxAge <= 0 {
		*maxAge = cfg.HardTimeout
	}

	opts := scheduler.Options{
		BatchSize:    cfg.BatchSize,
		HardTimeout:  *maxAge,
		ReconcileMax: cfg.ReconcileMax,
		StatsRetain:  cfg.StatsRetain,
		DryRun:       *dryRun,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *dryRun || *once {
		if _, err := appContainer.Sweeper.Sweep(ctx, opts); err != nil {
			logger.Error("sweep failed", err)
			return exitError
		}
		return exitOK
	}

	logger.Info("scheduler starting", map[string]interface{}{
		"interval":     interval.String(),
		"hard_timeout": maxAge.String(),
		"batch_size":   opts.BatchSize,
	})

	// Sweep immediately, then on every tick until signalled.
	if _, err := appContainer.Sweeper.Sweep(ctx, opts); err != nil {
		logger.Error("sweep failed", err)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopping", map[string]interface{}{})
			return exitOK
		case <-ticker.C:
			if _, err := appContainer.Sweeper.Sweep(ctx, opts); err != nil {
				logger.Error("sweep failed", err)
			}
		}
	}
}
