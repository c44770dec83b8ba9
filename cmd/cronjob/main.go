package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"parkspace-backend/internal/config"
	"parkspace-backend/internal/events"
	"parkspace-backend/internal/jobs"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/payment"
	"parkspace-backend/internal/repository/postgres"
	"parkspace-backend/internal/scheduler"
	"parkspace-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'complete-elapsed-bookings', 'reconcile-reservations', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ParkSpace cronjob runner...", "log_level", cfg.Log.Level)

	if cfg.Database.Driver == "memory" {
		log.Fatalf("The cronjob runner needs a shared database; the memory driver runs its jobs inside the server")
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	repos := postgres.NewStore(db).Repositories()

	// Completion publishes booking.completed events
	var publisher events.Publisher = events.NewNopPublisher()
	if cfg.Events.Enabled {
		publisher = events.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Exchange)
	}
	defer publisher.Close()

	bookingService := service.NewBookingService(
		repos,
		payment.NewSimulatedProcessor(time.Duration(cfg.Booking.PaymentLatencyMs)*time.Millisecond),
		service.NewNopEmailService(),
		publisher,
		nil,
		service.BookingOptions{
			Currency:       cfg.Booking.Currency,
			PaymentTimeout: cfg.Booking.PaymentTimeout(),
			ReservationTTL: cfg.Booking.ReservationTTL(),
		},
	)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(&jobs.Services{Booking: bookingService}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to set up scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "complete-elapsed-bookings":
		jobRunner.CompleteElapsedBookings()
	case "reconcile-reservations":
		jobRunner.ReconcileReservations()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - complete-elapsed-bookings\n")
		fmt.Printf("  - reconcile-reservations\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
