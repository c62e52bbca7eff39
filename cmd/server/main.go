package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Worldstreet-team/xtreme-livestream/internal/cache"
	"github.com/Worldstreet-team/xtreme-livestream/internal/config"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/fanout"
	"github.com/Worldstreet-team/xtreme-livestream/internal/handler"
	"github.com/Worldstreet-team/xtreme-livestream/internal/history"
	"github.com/Worldstreet-team/xtreme-livestream/internal/hub"
	"github.com/Worldstreet-team/xtreme-livestream/internal/repository"
	"github.com/Worldstreet-team/xtreme-livestream/internal/service"
	"github.com/Worldstreet-team/xtreme-livestream/internal/token"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/database"
	pkglog "github.com/Worldstreet-team/xtreme-livestream/pkg/log"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: cfg.Log.ServiceName,
	})
	logger := pkglog.L()

	// Relational store for streams and users.
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.StreamModel{}, &domain.UserModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	// Append-only chat history.
	store, err := history.NewCassandraStore(cfg.Cassandra)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to cassandra")
	}
	defer store.Close()
	logger.Info().Strs("hosts", cfg.Cassandra.Hosts).Msg("history store ready")

	// Live fan-out bus.
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to pubsub")
	}
	defer bus.Close()
	channel := fanout.NewPubSubChannel(bus)
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("live channel ready")

	// History page cache.
	var pageCache cache.PageCache
	if cfg.PubSub.Driver == "redis" {
		redisCache, err := cache.NewRedisPageCache(cfg.PubSub.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis cache")
		}
		defer redisCache.Close()
		pageCache = redisCache
	} else {
		pageCache = cache.NewNoopPageCache()
	}

	streamRepo := repository.NewGormStreamRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	chatService := service.NewChatService(store, channel, streamRepo, userRepo, pageCache, cfg.Cache.TTL, cfg.Chat.SlowModeCooldown)
	streamService := service.NewStreamService(streamRepo, channel)
	userService := service.NewUserService(userRepo)

	verifier := token.NewVerifier(cfg.Auth.JWTSecret)
	minter := token.NewMediaMinter(cfg.Media.APIKey, cfg.Media.APISecret, cfg.Media.TokenTTL)
	authMiddleware := handler.NewAuthMiddleware(verifier)

	// Connection hub; viewer counts persist best effort.
	chatHub := hub.NewHub()
	chatHub.OnCountChange = func(streamID string, count int) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := streamRepo.UpdateViewers(ctx, streamID, count); err != nil {
				pkglog.L().Debug().Err(err).Str(pkglog.FieldStreamID, streamID).Msg("failed to persist viewer count")
			}
		}()
	}
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go chatHub.Run(hubCtx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	handler.NewStreamHandler(streamService, authMiddleware).RegisterRoutes(api)
	handler.NewChatHandler(chatService, authMiddleware).RegisterRoutes(api)
	handler.NewUserHandler(userService, authMiddleware).RegisterRoutes(api)
	handler.NewTokenHandler(streamService, minter, authMiddleware).RegisterRoutes(api)
	handler.NewWsHandler(store, channel, streamService, userService, chatHub, authMiddleware, cfg.WebSocket, cfg.Chat).RegisterRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("stopped")
}
