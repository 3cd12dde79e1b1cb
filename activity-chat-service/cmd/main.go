package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/config"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/events"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/gateway"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/handler"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/hub"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/identity"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/idgen"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/membership"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/presence"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/readstate"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/repository"
	"github.com/weiawesome/trip-chat/pkg/database"
	"github.com/weiawesome/trip-chat/pkg/jwt"
	pkglog "github.com/weiawesome/trip-chat/pkg/log"
	"github.com/weiawesome/trip-chat/pkg/middleware"
	"github.com/weiawesome/trip-chat/pkg/pubsub"
)

const serviceName = "activity-chat-service"

// backends holds the lazily opened storage clients shared by the stores.
type backends struct {
	cfg     *config.Config
	gormDB  *gorm.DB
	mongoDB *mongo.Database
}

func (b *backends) gorm(logger zerolog.Logger) *gorm.DB {
	if b.gormDB != nil {
		return b.gormDB
	}

	db, err := database.New(&database.Config{
		Driver:          b.cfg.Database.Driver,
		Host:            b.cfg.Database.Host,
		Port:            b.cfg.Database.Port,
		User:            b.cfg.Database.User,
		Password:        b.cfg.Database.Password,
		DBName:          b.cfg.Database.DBName,
		SSLMode:         b.cfg.Database.SSLMode,
		FilePath:        b.cfg.Database.FilePath,
		MaxIdleConns:    b.cfg.Database.MaxIdleConns,
		MaxOpenConns:    b.cfg.Database.MaxOpenConns,
		ConnMaxLifetime: b.cfg.Database.ConnMaxLifetime,
		LogLevel:        b.cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db, repository.GormModels()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", b.cfg.Database.Driver).Msg("database migration completed")

	b.gormDB = db
	return db
}

func (b *backends) mongo(ctx context.Context, logger zerolog.Logger) *mongo.Database {
	if b.mongoDB != nil {
		return b.mongoDB
	}

	db, err := repository.NewMongoDatabase(ctx, b.cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	logger.Info().Str("database", b.cfg.Mongo.Database).Msg("mongo connected")

	b.mongoDB = db
	return db
}

func (b *backends) close(logger zerolog.Logger) {
	if b.gormDB != nil {
		if err := database.Close(b.gormDB); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}
	if b.mongoDB != nil {
		if err := repository.DisconnectMongo(b.mongoDB); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect mongo")
		}
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: serviceName,
	})
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := idgen.NewGenerator()
	store := &backends{cfg: cfg}

	// Message store
	var messages repository.MessageRepository
	switch cfg.Store.Driver {
	case "gorm":
		messages = repository.NewGormMessageRepository(store.gorm(logger), gen)
	case "mongo":
		messages, err = repository.NewMongoMessageRepository(ctx, store.mongo(ctx, logger), gen)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init mongo message store")
		}
	case "cassandra":
		session, err := repository.NewCassandraSession(cfg.Cassandra)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to cassandra")
		}
		if err := repository.EnsureCassandraSchema(ctx, session); err != nil {
			logger.Fatal().Err(err).Msg("failed to create cassandra schema")
		}
		messages = repository.NewCassandraMessageRepository(session, gen)
	case "memory":
		messages = repository.NewMemoryMessageRepository(gen)
	default:
		logger.Fatal().Str("driver", cfg.Store.Driver).Msg("unsupported message store driver")
	}
	logger.Info().Str("driver", cfg.Store.Driver).Msg("message store ready")

	// Activity directory
	var directory repository.ActivityRepository
	switch cfg.Directory.Driver {
	case "gorm":
		directory = repository.NewGormActivityRepository(store.gorm(logger))
	case "mongo":
		directory = repository.NewMongoActivityRepository(store.mongo(ctx, logger))
	case "memory":
		directory = repository.NewMemoryActivityRepository()
	default:
		logger.Fatal().Str("driver", cfg.Directory.Driver).Msg("unsupported activity directory driver")
	}

	// Presence mirror
	var tracker presence.Tracker
	if cfg.Redis.Enabled {
		redisTracker, err := presence.NewRedisTracker(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		tracker = redisTracker
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis presence connected")
	}

	// Event bus
	bus, err := pubsub.NewPublisher(pubsub.Config{
		Driver: cfg.Events.Driver,
		Redis: pubsub.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Kafka: pubsub.KafkaConfig{
			Brokers:    cfg.Events.Brokers,
			Partitions: cfg.Events.Partitions,
			Topics:     pubsub.KafkaTopics(),
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to init event publisher")
	}
	publisher := events.NewPublisher(bus)

	// Live rooms
	registry := hub.NewRegistry()
	router := hub.NewRouter(registry)

	gw := gateway.New(gateway.Deps{
		Authority: membership.NewAuthority(directory),
		Directory: directory,
		Messages:  messages,
		ReadState: readstate.NewCalculator(messages, cfg.Chat.SummaryConcurrency),
		Rooms:     registry,
		Router:    router,
		Events:    publisher,
		Presence:  tracker,
	}, gateway.Options{
		MaxBodyLength:       cfg.Chat.MaxBodyLength,
		DefaultHistoryLimit: cfg.Chat.DefaultHistoryLimit,
		MaxHistoryLimit:     cfg.Chat.MaxHistoryLimit,
		AuthorizeJoins:      cfg.Chat.AuthorizeJoins,
	})
	if err := gw.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start gateway")
	}

	// Identity
	verifier, err := jwt.NewVerifierFromFile(cfg.Auth.PublicKeyFile, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load token verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(identity.NewJWTProvider(verifier))

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger, "/health"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": registry.RoomCount()})
	})

	wsHandler := handler.NewWSHandler(gw, cfg.WebSocket)
	handler.NewHandler(gw, authMiddleware, wsHandler).RegisterRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("store", cfg.Store.Driver).
			Str("directory", cfg.Directory.Driver).
			Str("events", cfg.Events.Driver).
			Bool("authorize_joins", cfg.Chat.AuthorizeJoins).
			Msg("activity-chat-service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	gw.Stop()
	if err := router.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending events were not delivered")
	}
	if tracker != nil {
		if err := tracker.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close presence tracker")
		}
	}
	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close event publisher")
	}
	if err := messages.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close message store")
	}
	if err := directory.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close activity directory")
	}
	store.close(logger)

	logger.Info().Msg("activity-chat-service stopped")
}
