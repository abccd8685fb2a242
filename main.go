package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	"ms-membership/internal/analytics"
	"ms-membership/internal/analytics/analytics_api"
	"ms-membership/internal/auth"
	"ms-membership/internal/config"
	"ms-membership/internal/database"
	"ms-membership/internal/database/migrations"
	eventdb "ms-membership/internal/events/db"
	"ms-membership/internal/events/event_api"
	eventservice "ms-membership/internal/events/service"
	"ms-membership/internal/kafka"
	"ms-membership/internal/logger"
	"ms-membership/internal/membership"
	"ms-membership/internal/membership/member_api"
	"ms-membership/internal/models"
	"ms-membership/internal/notify"
	regdb "ms-membership/internal/registration/db"
	"ms-membership/internal/registration/pass"
	regredis "ms-membership/internal/registration/redis"
	"ms-membership/internal/registration/registration_api"
	regservice "ms-membership/internal/registration/service"
	"ms-membership/internal/sse"
)

func prepareSchema(ctx context.Context, bunDB *bun.DB, cfg *config.Config, log *logger.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		log.Info("DATABASE", "Creating SQLite schema from models")
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			return err
		}
		return database.Seed(ctx, bunDB)
	}

	runner := migrations.NewRunner(bunDB, migrations.Options{MigrationsDir: cfg.Database.MigrationsDir}, log)
	defer runner.Close()
	return runner.Up()
}

// setupNotifiers returns the delivery channels for the dispatcher. With Kafka
// on, the live feed is fed from the topic so every instance's subscribers see
// every change; otherwise it is fed directly.
func setupNotifiers(ctx context.Context, cfg *config.Config, feed *sse.RegistrationFeed, log *logger.Logger) ([]notify.Notifier, func()) {
	var (
		notifiers []notify.Notifier
		closers   []func()
	)

	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		notifiers = append(notifiers, producer)
		closers = append(closers, func() { producer.Close() })

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, "membership-feed-"+uuid.NewString(), log)
		go func() {
			err := consumer.Run(ctx, func(ctx context.Context, n models.Notification) {
				_ = feed.Notify(ctx, n)
			})
			if err != nil {
				log.Error("KAFKA", fmt.Sprintf("Notification consumer stopped: %v", err))
			}
		}()
		closers = append(closers, func() { consumer.Close() })
		log.Info("KAFKA", fmt.Sprintf("Publishing notifications to %s", cfg.Kafka.Topic))
	} else {
		notifiers = append(notifiers, feed)
	}

	if cfg.PubNub.Enabled {
		notifiers = append(notifiers, notify.NewPubNubNotifier(cfg.PubNub))
		log.Info("NOTIFY", "PubNub push notifications enabled")
	}

	return notifiers, func() {
		for _, c := range closers {
			c()
		}
	}
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprint(ww.Status()), time.Since(start).String())
		})
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Membership Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := prepareSchema(ctx, bunDB, cfg, log); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Schema setup failed: %v", err))
		}
	}

	redisClient, err := database.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()

	feed := sse.NewRegistrationFeed()
	notifiers, closeNotifiers := setupNotifiers(ctx, cfg, feed, log)
	dispatcher := notify.NewDispatcher(cfg.Notify.Timeout, log, notifiers...)

	eventDB := &eventdb.DB{Bun: bunDB}
	eventService := eventservice.NewEventService(eventDB, log)
	members := membership.NewService(
		&membership.DB{Bun: bunDB},
		&membership.Cache{Client: redisClient, TTL: cfg.Redis.MemberCacheTTL},
		log,
	)
	registrationService := regservice.NewRegistrationService(
		&regdb.DB{Bun: bunDB},
		eventDB,
		members,
		regredis.NewEventLock(redisClient, cfg.Redis.LockTTL, cfg.Redis.LockWait, log),
		dispatcher,
		log,
	)
	analyticsService := analytics.NewService(analytics.NewDB(bunDB), eventDB)

	eventHandler := event_api.NewHandler(eventService, log)
	registrationHandler := registration_api.NewHandler(registrationService, feed, pass.NewGenerator(cfg.Pass.SecretKey), log)
	memberHandler := member_api.NewHandler(members)
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// --- Public Routes ---
	r.Get("/healthz", healthHandler(bunDB, redisClient))
	r.Handle("/metrics", promhttp.Handler())

	// --- API Routes ---
	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.Enabled {
			verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
			if err != nil {
				log.Fatal("AUTH", err.Error())
			}
			r.Use(auth.Middleware(verifier, log))
			admin := auth.RequireRole(cfg.Auth.AdminRole)
			eventHandler.AdminOnly = admin
			registrationHandler.AdminOnly = admin
			log.Info("AUTH", "OIDC middleware applied to /api routes")
		}

		eventHandler.RegisterRoutes(r)
		registrationHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
		memberHandler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Membership Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	dispatcher.Wait()
	cancel()
	closeNotifiers()
	log.Info("APP", "✅ Membership Service shutdown complete")
}

func healthHandler(bunDB *bun.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := "ok"
		if err := bunDB.PingContext(ctx); err != nil {
			status, body = http.StatusServiceUnavailable, "database: "+err.Error()
		} else if err := redisClient.Ping(ctx).Err(); err != nil {
			status, body = http.StatusServiceUnavailable, "redis: "+err.Error()
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
