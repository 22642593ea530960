package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainvault/chainvault/internal/auth"
	"github.com/chainvault/chainvault/internal/chain"
	"github.com/chainvault/chainvault/internal/common"
	"github.com/chainvault/chainvault/internal/notify"
	"github.com/chainvault/chainvault/internal/storage"
	"github.com/chainvault/chainvault/internal/transfer"
	"github.com/chainvault/chainvault/internal/vault"
	"github.com/chainvault/chainvault/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.LoadFromEnv()
	cfg.Logging.SetupLogging()

	log.Info().Msg("starting vault server")

	db, err := common.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	cache, err := common.NewCache(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer cache.Close()

	blobs, err := storage.NewStorageFactory(&cfg.Storage).CreateStorage()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create blob storage")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := chain.NewGatewayBridge(&cfg.Chain)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("chain gateway bridge stopped")
		}
	}()

	hub := notify.NewHub()
	presence := notify.NewPresence(cache)
	notifier := notify.NewSocketNotifier(presence, hub)

	coordinator, err := vault.NewCoordinator(db, blobs, bridge, notifier, &cfg.Upload)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create upload coordinator")
	}

	authService := auth.NewService(db, cache, &cfg.Auth)
	authMW := auth.Middleware(authService)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "healthy",
			"pending_uploads": coordinator.PendingCount(),
		})
	})

	api := router.Group("/api/v1")
	authService.RegisterRoutes(api, authMW)

	gateway := transfer.NewGateway(coordinator, blobs, db, hub, presence)
	gateway.RegisterRoutes(api, authMW)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("vault server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down vault server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("vault server stopped")
}
