package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/api"
	"github.com/benvon/manasmitra/internal/config"
	"github.com/benvon/manasmitra/internal/database"
	"github.com/benvon/manasmitra/internal/handlers"
	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/middleware"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/profile"
	"github.com/benvon/manasmitra/internal/queue"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/services/checkin"
	"github.com/benvon/manasmitra/internal/store"
	"github.com/benvon/manasmitra/internal/telemetry"
)

const (
	serviceName      = "manasmitra-api"
	defaultRateLimit = "5-S"
	configReload     = time.Minute
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg, serviceName)
	if err != nil {
		zapLogger.Warn("otel_tracer_not_initialized", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	st, closeStore, err := store.Open(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_open_store", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			zapLogger.Warn("failed_to_close_store", zap.Error(err))
		}
	}()

	// cors and ratelimit settings live in a small SQL database so the
	// configure CLI can change them without a restart.
	driver, dsn := cfg.ConfigDatabaseURL()
	configDB, err := database.New(ctx, driver, dsn)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_config_database", zap.Error(err))
	}
	defer func() {
		if err := configDB.Close(); err != nil {
			zapLogger.Warn("failed_to_close_config_database", zap.Error(err))
		}
	}()
	if err := configDB.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_config_database", zap.Error(err))
	}
	corsConfigRepo := database.NewCorsConfigRepository(configDB)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(configDB)

	var redisClient *redis.Client
	if cfg.StoreDriver == config.StoreDriverRedis {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("invalid_redis_url", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
	}
	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_limiter_store", zap.Error(err))
	}

	// The queue is optional. Without it check-ins skip the background
	// affirmation refresh.
	var (
		enqueuer     queue.Enqueuer
		queueChecker handlers.QueueChecker
		jobQueue     *queue.RabbitMQQueue
	)
	if cfg.RabbitMQURL != "" {
		jobQueue, err = queue.Connect(ctx, cfg.RabbitMQURL, queue.DefaultDialPolicy, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		enqueuer = jobQueue
		queueChecker = jobQueue
	} else {
		zapLogger.Info("rabbitmq_not_configured_affirmation_refresh_disabled")
	}

	generator, err := ai.NewClientFromConfig(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_client", zap.Error(err))
	}

	tokens, err := profile.NewTokens([]byte(cfg.ProfileTokenSecret), cfg.ProfileTokenTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_profile_tokens", zap.Error(err))
	}

	checkInService := checkin.NewService(checkin.NewOrchestrator(generator), st, enqueuer, zapLogger)

	healthChecker := handlers.NewHealthChecker(st, queueChecker)
	profileHandler := handlers.NewProfileHandler(tokens, zapLogger)
	checkInHandler := handlers.NewCheckInHandler(checkInService, zapLogger)
	affirmationHandler := handlers.NewAffirmationHandler(generator, st, zapLogger)
	mindfulnessHandler := handlers.NewMindfulnessHandler(generator, st, zapLogger)
	playerHandler := handlers.NewPlayerHandler(st, []string{cfg.FrontendURL}, zapLogger)
	openAPIHandler, err := handlers.NewOpenAPIHandler(api.OpenAPI)
	if err != nil {
		zapLogger.Fatal("invalid_openapi_document", zap.Error(err))
	}

	r := mux.NewRouter()

	// Middleware registered first is outermost.
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, configReload)
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.RequestID)
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, ratelimitConfigRepo, defaultRateLimit, zapLogger, configReload)
	profileScope := middleware.ProfileScope(tokens, zapLogger)

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", handlers.VersionInfo).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	profilesRouter := apiRouter.PathPrefix("/profiles").Subrouter()
	profilesRouter.Use(rateLimitReloader.Middleware(models.RateLimitScopeProfiles))
	profileHandler.RegisterRoutes(profilesRouter)

	checkInsRouter := apiRouter.PathPrefix("/checkins").Subrouter()
	checkInsRouter.Use(profileScope, rateLimitReloader.Middleware(models.RateLimitScopeCheckIns))
	checkInHandler.RegisterRoutes(checkInsRouter)

	affirmationRouter := apiRouter.PathPrefix("/affirmation").Subrouter()
	affirmationRouter.Use(profileScope, rateLimitReloader.Middleware(models.RateLimitScopeAffirmation))
	affirmationHandler.RegisterRoutes(affirmationRouter)

	mindfulnessRouter := apiRouter.PathPrefix("/mindfulness").Subrouter()
	mindfulnessRouter.Use(profileScope, rateLimitReloader.Middleware(models.RateLimitScopeMindfulness))
	mindfulnessRouter.Handle("/player", playerHandler).Methods(http.MethodGet)
	mindfulnessHandler.RegisterRoutes(mindfulnessRouter)

	// Preflight requests are answered by the CORS middleware; this only
	// makes sure they match a route.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// WriteTimeout stays unset: player sockets are long-lived and the
	// Timeout middleware bounds ordinary requests.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
