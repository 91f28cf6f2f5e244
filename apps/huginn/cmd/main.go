package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"huginn/apps/huginn/internal/api"
	"huginn/apps/huginn/internal/bot"
	"huginn/apps/huginn/internal/chain"
	"huginn/apps/huginn/internal/config"
	"huginn/apps/huginn/internal/monitor"
	"huginn/apps/huginn/internal/network"
	"huginn/apps/huginn/internal/notifier"
	"huginn/apps/huginn/internal/repository"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting application with configuration",
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("wallet_file", cfg.WalletFile),
		zap.Bool("telegram_disabled", cfg.TelegramDisabled),
		zap.Bool("kafka_enabled", cfg.KafkaEnabled()),
		zap.String("api_host", cfg.APIHost),
		zap.Int("api_port", cfg.APIPort),
		zap.Duration("unbond_interval", cfg.UnbondInterval),
		zap.Duration("jail_interval", cfg.JailInterval),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Float64("rest_rps", cfg.RESTRequestsPerS),
		zap.Bool("skip_zero_balance", cfg.SkipZeroBalance),
		zap.String("networks_file", cfg.NetworksFile),
	)

	registry, err := network.LoadRegistry(cfg.NetworksFile)
	if err != nil {
		logger.Fatal("Failed to load network registry", zap.Error(err))
	}

	backend, closeBackend := newBackend(cfg, logger)
	defer closeBackend()

	subscriptionRepository := repository.NewSubscriptionRepository(backend, logger)
	if err := subscriptionRepository.Load(); err != nil {
		logger.Fatal("Failed to load subscriptions", zap.Error(err))
	}

	chainClient := chain.NewClient(registry, cfg.HTTPTimeout, cfg.RESTRequestsPerS, logger)

	var notifiers []notifier.Notifier
	var botAPI *tgbotapi.BotAPI
	if !cfg.TelegramDisabled {
		botAPI, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			logger.Fatal("Failed to connect to Telegram", zap.Error(err))
		}
		notifiers = append(notifiers, notifier.NewTelegramNotifier(botAPI, logger))
	}
	if cfg.KafkaEnabled() {
		kafkaNotifier, err := notifier.NewKafkaNotifier(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka notifier", zap.Error(err))
		}
		defer kafkaNotifier.Close()
		notifiers = append(notifiers, kafkaNotifier)
	}
	if len(notifiers) == 0 {
		logger.Warn("No notification channel configured, notifications are only logged")
		notifiers = append(notifiers, notifier.NewLogNotifier(logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := monitor.NewMonitor(
		subscriptionRepository,
		chainClient,
		notifier.NewMultiNotifier(logger, notifiers...),
		registry,
		logger,
		monitor.Options{
			UnbondInterval:  cfg.UnbondInterval,
			JailInterval:    cfg.JailInterval,
			SkipZeroBalance: cfg.SkipZeroBalance,
		})
	monitorDone := make(chan struct{})
	go func() {
		mon.Start(ctx)
		close(monitorDone)
	}()

	if botAPI != nil {
		telegramBot := bot.NewBot(botAPI, bot.NewHandler(subscriptionRepository, chainClient, registry, logger), logger)
		go telegramBot.Run(ctx)
	}

	subscriptionHandler := api.NewSubscriptionHandler(subscriptionRepository, chainClient, registry, logger)
	apiServer := api.NewServer(cfg.APIHost, cfg.APIPort, subscriptionHandler, mon, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}

	select {
	case <-monitorDone:
	case <-shutdownCtx.Done():
		logger.Warn("Monitor did not stop before the shutdown deadline")
	}

	if err := subscriptionRepository.Save(); err != nil {
		logger.Error("Failed to flush subscriptions on shutdown", zap.Error(err))
	}

	logger.Info("Application shutdown complete")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newBackend(cfg *config.Config, logger *zap.Logger) (repository.Backend, func()) {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return repository.NewFileBackend(cfg.WalletFile, logger), func() {}
	}

	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	return repository.NewPostgresBackend(db, logger), func() { _ = db.Close() }
}
