package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"convertly-shopify-app/internal/application"
	"convertly-shopify-app/internal/application/webhook_handlers"
	"convertly-shopify-app/internal/config"
	apiinfra "convertly-shopify-app/internal/infrastructure/api"
	"convertly-shopify-app/internal/infrastructure/metrics"
	"convertly-shopify-app/internal/infrastructure/repository"
	shopifyinfra "convertly-shopify-app/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDatabase)

	// Initialize repositories
	shopRepo := repository.NewMongoShopRepository(db)
	if err := shopRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure MongoDB indexes")
	}

	// State tokens live in Redis so the install and callback requests can
	// land on different instances; the in-process tier covers a Redis blip.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	stateStore := repository.NewTieredStateStore(
		repository.NewRedisStateStore(redisClient),
		repository.NewMemoryStateStore(),
		logger,
	)

	// Initialize Shopify infrastructure
	shopifyClient := shopifyinfra.NewClient(cfg.Shopify.APIKey, cfg.Shopify.APISecret, logger)
	verifier := shopifyinfra.NewVerifier(cfg.Shopify.APISecret, cfg.Shopify.WebhookSecret)

	// Initialize application services
	oauthService := application.NewOAuthService(
		shopRepo,
		stateStore,
		shopifyClient,
		verifier,
		cfg.Shopify,
		cfg.AppURL,
		logger,
	)
	billingService := application.NewBillingService(
		shopRepo,
		shopifyClient,
		cfg.Shopify,
		cfg.AppURL,
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(shopRepo, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewChargeHandler(billingService, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewComplianceHandler(shopRepo, logger))

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize HTTP handlers
	oauthHandlers := apiinfra.NewOAuthHandlers(oauthService, m, logger)
	webhookHandler := apiinfra.NewWebhookHandler(verifier, webhookDispatcher, shopRepo, m, logger)
	subscriptionHandlers := apiinfra.NewSubscriptionHandlers(billingService, logger)
	adminHandlers := apiinfra.NewAdminHandlers(shopRepo, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/install", oauthHandlers.Install)
	r.Get("/auth/callback", oauthHandlers.Callback)

	// Webhook endpoint
	r.Post("/webhooks/shopify", webhookHandler.Handle)

	// Subscription routes
	r.Get("/subscription/status", subscriptionHandlers.Status)
	r.Post("/subscription/charge", subscriptionHandlers.CreateCharge)
	r.Post("/subscription/cancel", subscriptionHandlers.CancelCharge)

	// Admin routes
	r.Get("/admin/shops", adminHandlers.ListShops)

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
