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
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	v1 "github.com/ITA-Loopin/loopin-be-performance-test-sub000/cmd/api/router/v1"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/config"
	busadapter "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/adapter"
	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	cacheadapter "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/cache/adapter"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/database"
	queueadapter "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/queue/adapter"
	queueport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/queue/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/realtime"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/logging"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/ai"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/consumer"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/task"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/usecase"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence"
	pgrepo "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/adapter"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/presentation/controller"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DB_URL is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := persistence.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	// Broker-backed bus when Redis is configured, otherwise a single-node
	// in-process bus with the same ordering and redelivery contract.
	var (
		bus         busport.Bus
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisClient.Close()

		bus = busadapter.NewStreamBus(redisClient, busadapter.StreamBusOptions{
			Group:      cfg.BusGroup,
			Consumer:   cfg.BusConsumer,
			Partitions: cfg.BusPartitions,
			ClaimIdle:  cfg.BusClaimIdle,
		}, log)
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process bus")
		bus = busadapter.NewMemoryBus(cfg.BusPartitions, log)
	}

	repo := pgrepo.NewPgChatRepository(pool)
	members := directory.NewPgMembership(pool)

	var profiles directory.Profiles = directory.NewPgProfiles(pool)
	if redisClient != nil {
		profiles = directory.NewCachedProfiles(profiles, cacheadapter.NewRedisCache(redisClient))
	}

	registry := realtime.NewRegistry()
	hub := realtime.NewHub()

	// The background job queue carries AI generation off the partition workers.
	// Without Redis the assist pipeline is disabled; everything else works.
	var jobs queueport.Client
	var workers *queueadapter.AsynqServer
	if cfg.RedisURL != "" {
		client, err := queueadapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("queue client failed")
		}
		defer client.Close()
		jobs = client

		workers, err = queueadapter.NewAsynqServer(cfg.RedisURL, cfg.QueueConcurrency, log)
		if err != nil {
			log.Fatal().Err(err).Msg("queue server failed")
		}

		primary := ai.NewHTTPProvider(ai.HTTPProviderConfig{
			Name:    "primary",
			BaseURL: cfg.AIPrimaryURL,
			APIKey:  cfg.AIPrimaryKey,
			Model:   cfg.AIPrimaryModel,
			Timeout: cfg.AITimeout,
		})
		var secondary ai.Provider
		if cfg.AISecondaryURL != "" {
			secondary = ai.NewHTTPProvider(ai.HTTPProviderConfig{
				Name:    "secondary",
				BaseURL: cfg.AISecondaryURL,
				APIKey:  cfg.AISecondaryKey,
				Model:   cfg.AISecondaryModel,
				Timeout: cfg.AITimeout,
			})
		}
		orch := ai.NewOrchestrator(primary, secondary, cfg.AIMaxAttempts, cfg.AIBackoff, log)
		task.RegisterAssistReplyTask(workers, orch, bus, log)
	}

	consumers := consumer.New(consumer.Deps{
		Publisher: bus,
		Persist:   usecase.NewPersistMessageUseCase(repo, members),
		Read:      usecase.NewAdvanceReadWatermarkUseCase(repo),
		Delete:    usecase.NewDeleteMessageUseCase(repo),
		Context:   usecase.NewBuildAssistContextUseCase(repo, profiles),
		Profiles:  profiles,
		Jobs:      jobs,
		Log:       log,
	})
	if err := consumers.Register(bus); err != nil {
		log.Fatal().Err(err).Msg("consumer registration failed")
	}
	if err := consumer.NewFanout(hub).Register(bus); err != nil {
		log.Fatal().Err(err).Msg("fanout registration failed")
	}

	go func() {
		if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("bus stopped")
		}
	}()
	if workers != nil {
		go func() {
			if err := workers.Run(ctx); err != nil {
				log.Error().Err(err).Msg("queue workers stopped")
			}
		}()
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1.RegisterRoutes(r, controller.Deps{
		Hub:       hub,
		Registry:  registry,
		Members:   members,
		Publisher: bus,
		Log:       log,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	registry.Shutdown(websocket.CloseGoingAway, "server shutting down")
	_ = bus.Close()
}
