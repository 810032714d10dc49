package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-reservations/internal/api"
	"ms-reservations/internal/availability"
	"ms-reservations/internal/catalog"
	"ms-reservations/internal/clock"
	"ms-reservations/internal/config"
	"ms-reservations/internal/database/migrations"
	"ms-reservations/internal/kafka"
	"ms-reservations/internal/lifecycle"
	"ms-reservations/internal/locks"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/mediator"
	"ms-reservations/internal/notify"
	"ms-reservations/internal/planner"
	"ms-reservations/internal/store"
	"ms-reservations/internal/waitlist"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Reservation Engine initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", "No .env file found, relying on environment")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	if version, err := runner.Version(); err == nil {
		log.Info("DATABASE", fmt.Sprintf("Schema version: %d", version))
	}
	defer runner.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.AllTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to pre-create topics: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		log.Info("KAFKA", fmt.Sprintf("Producer ready for brokers %v", cfg.Kafka.Brokers))
	} else {
		log.Warn("KAFKA", "Event publishing disabled")
	}

	db := store.New(bunDB)
	db.Isolation = sql.LevelSerializable

	clk := clock.New()
	tableLocks := locks.NewTableLocks(redisClient, cfg.Redis.TableLockTTL)
	notifier := notify.NewNotifier(producer, log, cfg.Kafka.Enabled && producer != nil)

	detector := availability.NewDetector()
	plan := planner.NewPlanner(detector, cfg.Engine.SlotStep, cfg.Engine.ScanHorizon)
	machine := lifecycle.NewMachine(clk)

	catalogSvc := catalog.NewService(db, log)
	waitlistSvc := waitlist.NewService(db, plan, detector, tableLocks, notifier, clk, log, cfg.Engine.WaitlistSweepInterval)

	mediatorSvc := mediator.NewService(db, plan, machine, detector, tableLocks, notifier, clk, log)
	mediatorSvc.Waitlist = waitlistSvc
	mediatorSvc.DefaultTurnTime = cfg.Engine.DefaultTurnTime

	go waitlistSvc.Run(ctx)
	log.Info("WAITLIST", fmt.Sprintf("Sweeper running every %s", cfg.Engine.WaitlistSweepInterval))

	r := chi.NewRouter()
	handler := api.NewHandler(mediatorSvc, catalogSvc, waitlistSvc, log)
	handler.Register(r)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("APP", fmt.Sprintf("Reservation Engine listening on %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("APP", fmt.Sprintf("Server error: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("APP", fmt.Sprintf("Graceful shutdown failed: %v", err))
	}
	log.Info("APP", "Reservation Engine stopped")
}
