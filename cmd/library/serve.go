package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library/internal/app/books"
	"library/internal/app/payments"
	"library/internal/app/users"
	"library/internal/config"
	"library/internal/gateway"
	books_http "library/internal/handler/http/books"
	auth "library/internal/handler/http/middleware"
	payments_http "library/internal/handler/http/payments"
	qr_http "library/internal/handler/http/qr"
	users_http "library/internal/handler/http/users"
	kafka_handler "library/internal/handler/kafka"
	"library/internal/infrastructure/cache"
	"library/internal/infrastructure/database"
	kafka_infra "library/internal/infrastructure/kafka"
	"library/internal/outbox"
	"library/internal/repository/books_repo"
	"library/internal/repository/inbox_repo"
	"library/internal/repository/outbox_repo"
	"library/internal/repository/payments_repo"
	"library/internal/repository/users_repo"
)

var (
	serveSkipMigrations bool
	serveSkipKafka      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, outbox processor and fine event consumer",
	Long: `Start the library fines service.

MERCHANT_ID, MERCHANT_KEY, MERCHANT_BASE_URL and APP_BASE_URL must be set.

Examples:
  library serve
  library serve --skip-migrations
  library serve --skip-kafka`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveSkipMigrations, "skip-migrations", false, "do not apply migrations on start")
	serveCmd.Flags().BoolVar(&serveSkipKafka, "skip-kafka", false, "run without the outbox processor and fine event consumer")
}

func connectDB(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	const maxRetries = 10
	retryDelay := 5 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		db, err := database.NewPostgresDB(dbConfig)
		if err == nil {
			logger.Info("Connected to PostgreSQL")
			return db, nil
		}
		lastErr = err
		logger.Warn("Failed to connect to database, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_in", retryDelay),
			zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, lastErr)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	appLogger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create zap logger: %w", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Library service starting...", zap.String("version", Version))

	db, err := connectDB(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		}
	}()

	if !serveSkipMigrations {
		appLogger.Info("Running database migrations...", zap.String("source", cfg.MigrationsPath))
		if err := database.Migrate(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString()); err != nil {
			return err
		}
		appLogger.Info("Database migrations completed")
	}

	var searchCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, "library:")
		if err != nil {
			return err
		}
		defer redisCache.Close()
		searchCache = redisCache
		appLogger.Info("Book search cache enabled", zap.String("redis_addr", cfg.RedisAddr), zap.Duration("ttl", cfg.BookSearchCacheTTL))
	}

	gatewayClient, err := gateway.NewClient(gateway.Config{
		MerchantID: cfg.Gateway.MerchantID,
		SaltKey:    cfg.Gateway.SaltKey,
		SaltIndex:  cfg.Gateway.SaltIndex,
		BaseURL:    cfg.Gateway.BaseURL,
		Timeout:    cfg.Gateway.Timeout,
	}, appLogger.With(zap.String("component", "GatewayClient")))
	if err != nil {
		return err
	}

	userRepository := users_repo.NewUserRepository()
	paymentRepository := payments_repo.NewPaymentRepository()
	inboxRepository := inbox_repo.NewInboxRepository()
	outboxRepository := outbox_repo.NewOutboxRepository()
	bookRepository := books_repo.NewBookRepository(database.Wrap(db))

	paymentService := payments.NewPaymentService(
		db,
		userRepository,
		paymentRepository,
		outboxRepository,
		gatewayClient,
		cfg.AppBaseURL,
		appLogger.With(zap.String("component", "PaymentService")),
	)
	userService := users.NewUserService(db, userRepository, inboxRepository, appLogger.With(zap.String("component", "UserService")))
	bookService := books.NewBookService(bookRepository, searchCache, cfg.BookSearchCacheTTL, appLogger.With(zap.String("component", "BookService")))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// Longer than the gateway timeout so a slow gateway surfaces as 502, not a cut connection.
	router.Use(middleware.Timeout(cfg.Gateway.Timeout + 5*time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cfg.AuthHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Library service is healthy!"))
	})

	httpLogger := appLogger.With(zap.String("component", "HTTPHandler"))
	requireUser := auth.RequireUser(cfg.AuthHeader, httpLogger)
	payments_http.RegisterRoutes(router, paymentService, requireUser, httpLogger)
	users_http.RegisterRoutes(router, userService, requireUser, httpLogger)
	books_http.RegisterRoutes(router, bookService, httpLogger)
	qr_http.RegisterRoutes(router, userService, bookService, requireUser, httpLogger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctxMain, cancelMain := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancelMain()

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var background []func()
	if !serveSkipKafka {
		stop, err := startKafkaWorkers(ctxMain, cfg, db, outboxRepository, userService, appLogger)
		if err != nil {
			return err
		}
		background = append(background, stop)
	}

	select {
	case <-ctxMain.Done():
		appLogger.Info("Shutting down application...")
	case err := <-serverErr:
		appLogger.Error("HTTP server failed", zap.Error(err))
		cancelMain()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down")
	}

	for _, stop := range background {
		stop()
	}
	appLogger.Info("Application gracefully shut down")
	return nil
}

// startKafkaWorkers launches the outbox processor and the fine event
// consumer. The returned func waits for both after ctx is cancelled.
func startKafkaWorkers(
	ctx context.Context,
	cfg *config.Config,
	db *sql.DB,
	outboxRepository outbox_repo.OutboxRepository,
	userService users.UserService,
	appLogger *zap.Logger,
) (func(), error) {
	brokers := cfg.GetKafkaBrokers()

	topicsCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := kafka_infra.EnsureTopics(topicsCtx, brokers, []string{cfg.KafkaFineEventsTopic, cfg.KafkaPaymentStatusTopic}, appLogger); err != nil {
		return nil, fmt.Errorf("failed to ensure Kafka topics: %w", err)
	}

	producer := kafka_infra.NewProducer(brokers, appLogger.With(zap.String("component", "KafkaProducer")))
	processor := outbox.NewProcessor(
		db,
		outboxRepository,
		producer,
		cfg.KafkaPaymentStatusTopic,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		appLogger.With(zap.String("component", "OutboxProcessor")),
	)

	consumer := kafka_infra.NewConsumer(
		brokers,
		cfg.KafkaFineEventsTopic,
		cfg.KafkaConsumerGroup,
		kafka_handler.FineAccruedMessageHandler(userService, appLogger.With(zap.String("component", "FineAccruedHandler"))),
		appLogger.With(zap.String("component", "FineEventsConsumer")),
	)

	processorDone := make(chan struct{})
	go func() {
		defer close(processorDone)
		processor.Start(ctx)
	}()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Consume(ctx); err != nil &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, kafka.ErrGroupClosed) {
			appLogger.Error("Fine events consumer failed", zap.Error(err))
		}
	}()

	return func() {
		if err := consumer.Close(); err != nil {
			appLogger.Error("Error closing fine events consumer", zap.Error(err))
		}
		for name, done := range map[string]chan struct{}{"consumer": consumerDone, "outbox processor": processorDone} {
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				appLogger.Warn("Background worker did not stop in time", zap.String("worker", name))
			}
		}
		if err := producer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}, nil
}
