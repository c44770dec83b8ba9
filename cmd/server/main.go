package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	api "parkspace-backend/internal/api/grpc"
	httpapi "parkspace-backend/internal/api/http"
	"parkspace-backend/internal/cache"
	"parkspace-backend/internal/config"
	"parkspace-backend/internal/events"
	"parkspace-backend/internal/jobs"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/payment"
	"parkspace-backend/internal/repository"
	"parkspace-backend/internal/repository/memory"
	"parkspace-backend/internal/repository/postgres"
	"parkspace-backend/internal/scheduler"
	"parkspace-backend/internal/security"
	"parkspace-backend/internal/service"
)

const (
	healthCheckInterval = 15 * time.Second
	shutdownTimeout     = 15 * time.Second
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	seed := flag.Bool("seed", false, "Load demo Harare lots into the memory store")
	seedOwner := flag.Int64("seed-owner", 1, "Owner user id for seeded lots")
	runScheduler := flag.Bool("scheduler", true, "Run maintenance jobs in this process")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ParkSpace booking engine...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Repositories
	repos, closeStore, err := openStore(ctx, cfg, *seed, *seedOwner)
	if err != nil {
		logger.Error("Failed to open store", "driver", cfg.Database.Driver, "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	// Initialize supporting backends
	lotCache := openCache(ctx, cfg)
	publisher := openPublisher(cfg)
	defer publisher.Close()
	emailSvc := newEmailService(cfg)
	processor := payment.NewSimulatedProcessor(time.Duration(cfg.Booking.PaymentLatencyMs) * time.Millisecond)

	// Initialize Services
	lotSvc := service.NewLotService(repos.Lots, repos.Bookings, lotCache, service.SearchLimits{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	})
	bookingSvc := service.NewBookingService(repos, processor, emailSvc, publisher, lotCache, service.BookingOptions{
		Currency:       cfg.Booking.Currency,
		PaymentTimeout: cfg.Booking.PaymentTimeout(),
		ReservationTTL: cfg.Booking.ReservationTTL(),
	})

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Set up HTTP API
	handler := httpapi.NewHandler(lotSvc, bookingSvc, repos.Health, httpapi.Limits{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler, tokenManager),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Set up gRPC health server
	grpcServer, healthReporter := api.NewServer(repos.Health)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	go healthReporter.Run(ctx, healthCheckInterval)
	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	// Initialize Scheduler
	var cronScheduler *scheduler.Scheduler
	if *runScheduler {
		jobRunner := jobs.NewJobRunner(&jobs.Services{Booking: bookingSvc}, cfg)
		cronScheduler, err = scheduler.NewScheduler(jobRunner)
		if err != nil {
			log.Fatalf("Failed to set up scheduler: %v", err)
		}
		cronScheduler.Start()
	}

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}

// openStore returns the repositories for the configured driver and a func
// releasing them.
func openStore(ctx context.Context, cfg *config.Config, seed bool, seedOwner int64) (repository.Repositories, func(), error) {
	if cfg.Database.Driver == "memory" {
		store := memory.NewStore()
		if seed {
			store.Seed(memory.HarareLots(seedOwner)...)
			logger.Info("Seeded demo lots", "owner_id", seedOwner)
		}
		logger.Warn("Using in-memory store; data is lost on exit")
		return store.Repositories(), func() {}, nil
	}

	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return repository.Repositories{}, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return repository.Repositories{}, nil, err
		}
	}
	if seed {
		logger.Warn("--seed is ignored for the postgres driver")
	}
	return postgres.NewStore(db).Repositories(), func() { db.Close() }, nil
}

// openCache falls back to no caching when Redis is disabled or unreachable.
func openCache(ctx context.Context, cfg *config.Config) cache.LotCache {
	if !cfg.Cache.Enabled {
		return cache.NewNopLotCache()
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	if err != nil {
		logger.Warn("Redis unavailable, search cache disabled", "addr", cfg.Cache.Addr, "error", err)
		return cache.NewNopLotCache()
	}
	logger.Info("Search cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL())
	return cache.NewRedisLotCache(rdb, cfg.Cache.TTL())
}

func openPublisher(cfg *config.Config) events.Publisher {
	if !cfg.Events.Enabled {
		return events.NewNopPublisher()
	}
	logger.Info("Booking events enabled", "exchange", cfg.Events.Exchange)
	return events.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Exchange)
}

func newEmailService(cfg *config.Config) service.EmailService {
	n := cfg.Notification
	switch n.Provider {
	case "smtp":
		logger.Info("SMTP configuration", "host", n.SMTP.Host, "port", n.SMTP.Port)
		return service.NewSMTPEmailService(n.SMTP.Host, n.SMTP.Port, n.SMTP.User, n.SMTP.Password, n.From)
	case "sendgrid":
		logger.Info("SendGrid notifications enabled", "from", n.From)
		return service.NewSendGridEmailService(n.SendGridAPIKey, n.From, n.FromName)
	}
	return service.NewNopEmailService()
}
