package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/api"
	"github.com/skinmarket/arbiter/internal/cache"
	"github.com/skinmarket/arbiter/internal/config"
	"github.com/skinmarket/arbiter/internal/database"
	"github.com/skinmarket/arbiter/internal/marketplace"
	"github.com/skinmarket/arbiter/internal/notify"
	"github.com/skinmarket/arbiter/internal/services"
	"github.com/skinmarket/arbiter/internal/snapshot"
)

const (
	modeFullRun     = 1
	modeCompareOnly = 2
)

func main() {
	// A .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	serve := flag.Bool("serve", false, "run the read-only HTTP API instead of the interactive pipeline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if *serve {
		runServer(cfg, log)
		return
	}

	runInteractive(cfg, log)
}

// newLogger builds the process-wide logger. Every component receives
// this instance explicitly; nothing logs through a package global.
func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func runInteractive(cfg *config.Config, log *logrus.Logger) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("1 - Download data, load into the database and compare")
	fmt.Println("2 - Compare without downloading")
	fmt.Print("Choose mode: ")

	mode, err := readInt(reader)
	if err != nil || (mode != modeFullRun && mode != modeCompareOnly) {
		log.WithError(err).Error("Invalid mode selection, aborting")
		os.Exit(1)
	}

	fmt.Print("Minimum profit to report: ")
	minProfit, err := readDecimal(reader)
	if err != nil {
		log.WithError(err).Error("Invalid minimum profit, aborting")
		os.Exit(1)
	}
	if minProfit.IsNegative() {
		log.Error("Minimum profit must not be negative, aborting")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := snapshot.NewStore(cfg.Snapshot.DownloadDir, cfg.Snapshot.ResultsDir, log)
	notifier := buildNotifier(cfg, log)

	comparer := services.NewComparer(store, log)

	var summary *services.RunSummary
	switch mode {
	case modeFullRun:
		summary, err = fullRun(ctx, cfg, store, comparer, notifier, log, minProfit)
	case modeCompareOnly:
		aggregator := services.NewAggregator(store, nil, log)
		pipeline := services.NewPipeline(nil, nil, comparer, aggregator, notifier, log)
		summary, err = pipeline.RunCompareOnly(ctx, minProfit)
	}
	if err != nil {
		log.WithError(err).Error("Run failed")
		os.Exit(1)
	}

	log.WithFields(logrus.Fields{
		"run_id":     summary.RunID,
		"candidates": len(summary.Candidates),
	}).Info("Run complete")
}

func fullRun(ctx context.Context, cfg *config.Config, store *snapshot.Store, comparer *services.Comparer, notifier services.Notifier, log *logrus.Logger, minProfit decimal.Decimal) (*services.RunSummary, error) {
	db, err := database.NewPostgresConnection(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	snapCache := buildCache(cfg, log)

	fetchTimeout, err := time.ParseDuration(cfg.Fetch.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid fetch.timeout %q: %w", cfg.Fetch.Timeout, err)
	}

	client := marketplace.NewClient(fetchTimeout)
	adapters, err := marketplace.BuildAdapters(cfg, client, log)
	if err != nil {
		return nil, err
	}

	fetcher := services.NewFetcher(adapters, store, snapCache, fetchTimeout, log)
	ingestor := services.NewIngestor(database.NewRepository(db.Pool), store, cfg.CommissionRates(), log)
	aggregator := services.NewAggregator(store, snapCache, log)

	pipeline := services.NewPipeline(fetcher, ingestor, comparer, aggregator, notifier, log)
	return pipeline.RunFull(ctx, minProfit)
}

func runServer(cfg *config.Config, log *logrus.Logger) {
	ctx := context.Background()

	db, err := database.NewPostgresConnection(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnection(cfg.Redis, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	ttl, err := time.ParseDuration(cfg.Redis.TTL)
	if err != nil {
		ttl = time.Hour
	}
	snapCache := cache.NewSnapshotCache(redisClient.Client, ttl, log)
	store := snapshot.NewStore(cfg.Snapshot.DownloadDir, cfg.Snapshot.ResultsDir, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	server := api.NewServer(db, redisClient, snapCache, store, cfg.Sources, log)
	server.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}
	log.Info("Server exited")
}

// buildCache connects to Redis if possible. The cache is advisory, so a
// failed connection degrades to running without one.
func buildCache(cfg *config.Config, log *logrus.Logger) *cache.SnapshotCache {
	redisClient, err := database.NewRedisConnection(cfg.Redis, log)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		return nil
	}

	ttl, err := time.ParseDuration(cfg.Redis.TTL)
	if err != nil {
		ttl = time.Hour
	}
	return cache.NewSnapshotCache(redisClient.Client, ttl, log)
}

func buildNotifier(cfg *config.Config, log *logrus.Logger) services.Notifier {
	if cfg.Telegram.BotToken == "" {
		return nil
	}

	chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
	if err != nil {
		log.WithError(err).Warn("Invalid telegram chat id, notifications disabled")
		return nil
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, chatID, cfg.Arbitrage.TopN, log)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize telegram bot, notifications disabled")
		return nil
	}
	if notifier == nil {
		return nil
	}
	return notifier
}

func readInt(reader *bufio.Reader) (int, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(line))
}

func readDecimal(reader *bufio.Reader) (decimal.Decimal, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.TrimSpace(line))
}
