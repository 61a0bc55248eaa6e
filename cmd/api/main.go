package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courseforge/vod/internal/cache"
	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/internal/database"
	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/internal/middleware"
	"github.com/courseforge/vod/internal/muxasset"
	"github.com/courseforge/vod/internal/queue"
	"github.com/courseforge/vod/internal/storage"
	"github.com/courseforge/vod/internal/streamproxy"
	"github.com/courseforge/vod/internal/tracing"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer closer.Close()
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	blobs, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	playbackCache, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer playbackCache.Close()

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	muxClient := muxasset.NewClient(cfg.Mux)
	assetService := muxasset.NewService(repo, muxClient, playbackCache, blobs, logger)

	api := &API{
		assets:     assetService,
		repo:       repo,
		cache:      playbackCache,
		enqueuer:   q,
		muxDataKey: cfg.Mux.DataEnvKey,
		log:        logger,
	}

	proxy := streamproxy.New(cfg.Proxy, logger)

	router := setupRouter(cfg, api, proxy, db, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(cfg *config.Config, api *API, proxy *streamproxy.Proxy, db *database.DB, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Streaming proxy; public, rate limited per client IP. The proxy
	// clears the per-request write deadline before copying the body,
	// so the server write timeout only bounds the API routes.
	limiter := middleware.NewRateLimiter(cfg.Proxy.RateLimitRPS, cfg.Proxy.RateLimitBurst)
	stream := router.Group("/video-stream", limiter.Middleware())
	{
		stream.GET("", proxy.Stream)
		stream.HEAD("", proxy.Head)
		stream.OPTIONS("", proxy.Options)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/videos/:id/playback", api.getPlaybackInfo)

		authed := v1.Group("", middleware.JWTAuth())
		{
			authed.POST("/mux/create-asset", api.createMuxAsset)
			authed.POST("/videos/:id/encode", api.requestEncode)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
