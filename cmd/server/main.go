package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/jbkim/weather-batch/internal/alerts"
	"github.com/jbkim/weather-batch/internal/batch"
	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/internal/notification"
	"github.com/jbkim/weather-batch/internal/provider"
	"github.com/jbkim/weather-batch/internal/queue"
	"github.com/jbkim/weather-batch/internal/server"
	"github.com/jbkim/weather-batch/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Weather Batch Server...")
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis backs the alert dedup fast path
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	guard := alerts.NewDedupGuard(redisClient, cfg.Thresholds.DedupWindow)

	// Kafka carries alert notifications to the notification service
	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer producer.Close()
	notifier := notification.NewKafkaDispatcher(producer)
	fmt.Println("Kafka producer initialized")

	fetcher := provider.NewClient(cfg.Provider)
	launcher := batch.NewLauncher(db)
	jobs := server.NewJobs(db, launcher, fetcher, notifier, guard, cfg)

	if !cfg.Provider.APIKeyConfigured() {
		fmt.Println("Note: provider API key not configured, collection trigger disabled")
	}

	scheduler := cron.New()
	schedule(scheduler, cfg.Schedule.CollectionSpec, "collection", func(ctx context.Context) error {
		if !cfg.Provider.APIKeyConfigured() {
			return nil
		}
		_, err := jobs.RunCollection(ctx)
		return err
	})
	schedule(scheduler, cfg.Schedule.StatisticsSpec, "statistics", func(ctx context.Context) error {
		yesterday := time.Now().AddDate(0, 0, -1)
		_, err := jobs.RunStatistics(ctx, yesterday)
		return err
	})
	schedule(scheduler, cfg.Schedule.AlertsSpec, "alerts", func(ctx context.Context) error {
		_, err := jobs.RunAlerts(ctx)
		return err
	})
	scheduler.Start()
	defer scheduler.Stop()

	handlers := server.NewHandlers(jobs, db, cfg.Provider.APIKeyConfigured())
	srv := server.NewServer(cfg.HTTP)
	srv.SetupRoutes(handlers)

	fmt.Println("\n✓ Weather Batch Server is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	srv.Shutdown()
	fmt.Println("Weather Batch Server stopped")
}

func schedule(scheduler *cron.Cron, spec, name string, run func(context.Context) error) {
	_, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := run(ctx); err != nil {
			log.Printf("Scheduled %s job failed: %v", name, err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule %s job (%q): %v", name, spec, err)
	}
}
