package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/indarelin/backoffice/cmd/mainconfig"
	"github.com/indarelin/backoffice/internal/admins"
	"github.com/indarelin/backoffice/internal/api/router"
	"github.com/indarelin/backoffice/internal/app/bootstrap"
	"github.com/indarelin/backoffice/internal/blocklist"
	appconfig "github.com/indarelin/backoffice/internal/config"
	"github.com/indarelin/backoffice/internal/conversation"
	"github.com/indarelin/backoffice/internal/customreplies"
	"github.com/indarelin/backoffice/internal/messagelog"
	"github.com/indarelin/backoffice/internal/observability/metrics"
	"github.com/indarelin/backoffice/internal/settings"
	"github.com/indarelin/backoffice/internal/videos"
	"github.com/indarelin/backoffice/pkg/logging"
)

func main() {
	// A local .env is optional
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting indarelin backoffice API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"provider_a", cfg.ProviderA,
		"provider_b", cfg.ProviderB,
	)

	ctx := context.Background()

	dbs, err := bootstrap.OpenDatabases(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbs.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	var cache redis.UniversalClient
	if redisClient != nil {
		cache = redisClient
	}
	stores := bootstrap.BuildStores(dbs, cache, cfg.CustomReplyCacheTTL, logger)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var bedrock conversation.BedrockConverseAPI
	if usesBedrock(cfg) {
		bedrock = bedrockruntime.NewFromConfig(awsCfg)
	}
	providerA, providerB := bootstrap.BuildGateways(ctx, cfg, bedrock, logger)
	defer closeGateway(providerA)
	defer closeGateway(providerB)

	metricsHandler, chatMetrics := setupChatMetrics()
	pipeline, err := bootstrap.BuildPipeline(cfg, stores, providerA, providerB, chatMetrics, logger.Component("pipeline"))
	if err != nil {
		logger.Error("failed to build reply pipeline", "error", err)
		os.Exit(1)
	}

	adminService := admins.NewService(stores.Admins, cfg.AdminJWTSecret, cfg.AdminTokenTTL, logger.Component("admins"))
	if err := adminService.EnsureBootstrap(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword); err != nil {
		logger.Error("failed to create bootstrap admin", "error", err)
		os.Exit(1)
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes will reject every request")
	}

	var videosHandler *videos.Handler
	if cfg.VideoBucket != "" {
		storage := videos.NewS3Storage(mainconfig.NewS3Client(awsCfg, cfg), cfg.VideoBucket)
		videoService := videos.NewService(stores.Videos, storage, cfg.VideoMaxBytes, logger.Component("videos"))
		videosHandler = videos.NewHandler(videoService, logger)
	} else {
		logger.Warn("VIDEO_BUCKET not set; video routes disabled")
	}

	routerCfg := &router.Config{
		Logger:        logger,
		ChatHandler:   conversation.NewHandler(pipeline, logger),
		BlockedIPs:    stores.BlockedIPs,
		ChatRateLimit: cfg.ChatRateLimit,
		ChatRateBurst: cfg.ChatRateBurst,

		AdminsHandler:        admins.NewHandler(adminService, logger),
		CustomRepliesHandler: customreplies.NewHandler(stores.CustomReplies, logger),
		BlocklistHandler:     blocklist.NewHandler(stores.BlockedIPs, logger),
		VideosHandler:        videosHandler,
		MessagesHandler:      messagelog.NewHandler(stores.Messages, logger),
		SettingsHandler:      settings.NewHandler(stores.Settings, logger),

		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       buildHealthChecks(dbs, redisClient),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Uploads and two sequential provider calls can take a while.
		WriteTimeout: 2*cfg.ProviderTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupChatMetrics registers the chat collectors on a dedicated registry and
// returns the handler exposing it.
func setupChatMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}

func buildHealthChecks(dbs *bootstrap.Databases, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if dbs != nil {
		checks["postgres"] = dbs.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

func usesBedrock(cfg *appconfig.Config) bool {
	return cfg.ProviderA == appconfig.ProviderBedrock || cfg.ProviderB == appconfig.ProviderBedrock
}

func closeGateway(client conversation.LLMClient) {
	if c, ok := client.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
