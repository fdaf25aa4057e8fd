package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ShepherdLoop/initializers"
	"github.com/ShepherdLoop/services"
	"github.com/robfig/cron/v3"
)

const runTimeout = 2 * time.Minute

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("due-worker starting up")

	initializers.LoadEnv()
	initializers.ConnectDB()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := initializers.BuildFollowUpService(rootCtx)
	if err != nil {
		log.Fatalf("Failed to initialize follow-up service: %v", err)
	}

	schedule := initializers.EnvString("DUE_WORKER_SCHEDULE", "@every 15m")
	window := time.Duration(initializers.EnvInt("DUE_REMINDER_DEBOUNCE_MINUTES", 720)) * time.Minute

	log.Printf("Running due worker on schedule %q with a %s reminder window", schedule, window)

	// SkipIfStillRunning keeps a slow run from overlapping the next tick.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(schedule, func() { runOnce(rootCtx, svc, window) }); err != nil {
		log.Fatalf("Invalid DUE_WORKER_SCHEDULE %q: %v", schedule, err)
	}

	runOnce(rootCtx, svc, window)
	scheduler.Start()

	<-rootCtx.Done()
	log.Println("Shutdown signal received, stopping due worker")
	<-scheduler.Stop().Done()
}

func runOnce(ctx context.Context, svc *services.FollowUpService, window time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	count, err := svc.NotifyDueFollowUps(runCtx, window)
	if err != nil {
		log.Printf("Due follow-up run failed: %v", err)
		return
	}
	log.Printf("Due follow-up run finished: %d due, took %s", count, time.Since(start))
}
