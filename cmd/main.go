package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"friendchat/backend/internal/api/handler"
	"friendchat/backend/internal/auth"
	"friendchat/backend/internal/chathub"
	"friendchat/backend/internal/config"
	"friendchat/backend/internal/delivery"
	"friendchat/backend/internal/events"
	"friendchat/backend/internal/filestore"
	"friendchat/backend/internal/friendship"
	"friendchat/backend/internal/ledger"
	"friendchat/backend/internal/localization"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	defer logger.Sync()

	cfg := config.LoadConfig()
	logger.SetEnvironment(cfg.Environment)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info("starting friendchat backend", zap.String("environment", cfg.Environment))

	ctx := context.Background()

	db, err := storage.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	store := storage.NewStorageService(db, cfg.StoreTimeout)

	// no connection survives a restart
	reset, err := store.ResetPresence(ctx)
	if err != nil {
		logger.Fatal("failed to reset presence", zap.Error(err))
	}
	logger.Info("presence reset", zap.Int64("users", reset))

	var (
		mirror   chathub.PresenceMirror
		presence handler.OnlineCounter
	)
	rdb, err := storage.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, presence mirror disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		cache := storage.NewPresenceCache(rdb, config.PresenceKeyTTL)
		if err := cache.Clear(ctx); err != nil {
			logger.Warn("failed to clear presence cache", zap.Error(err))
		}
		mirror, presence = cache, cache
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, "friendchat-backend")
		if err != nil {
			logger.Warn("nats unavailable, domain events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			publisher = nc
		}
	}

	var files filestore.Store
	if cfg.MongoURI != "" {
		gfs, err := filestore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Fatal("failed to connect file store", zap.Error(err))
		}
		defer gfs.Close(context.Background())
		files = gfs
	} else {
		logger.Warn("MONGO_URI not set, file uploads disabled")
	}

	localizer, err := localization.Bundled()
	if err != nil {
		logger.Fatal("failed to load translations", zap.Error(err))
	}

	registry := chathub.NewRegistry()
	unread := ledger.New(store)
	coordinator := delivery.NewCoordinator(store, registry, unread, publisher)
	friends := friendship.NewService(store, unread, publisher)
	hub := chathub.NewManagerService(registry, chathub.NewPropagator(store, registry, mirror), coordinator, store)
	authSvc := auth.NewService(store, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL))

	h := handler.NewHandler(hub, authSvc, friends, coordinator, unread, store, localizer, cfg.AllowedOrigin)
	h.Files = files
	h.Presence = presence
	h.MaxFileSize = cfg.MaxFileSize

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger())
	h.Routes(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
