package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"devconnect/internal/chat"
	"devconnect/internal/config"
	"devconnect/internal/db"
	"devconnect/internal/feed"
	"devconnect/internal/logger"
	"devconnect/internal/metrics"
	"devconnect/internal/middleware"
	"devconnect/internal/notify"
	"devconnect/internal/request"
	"devconnect/internal/user"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	log := logger.New("devconnect", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Platform layer
	database, err := db.NewDatabase(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := database.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("connected to postgres")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	} else {
		log.Warn().Msg("redis disabled, chat fan-out is local to this instance")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Identity store
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	userHandler := user.NewHandler(userService, int(cfg.TokenTTL/time.Second), cfg.CookieSecure)

	// Notification boundary
	notifier := notify.NewLogNotifier(log)

	// Connection ledger
	requestRepo := request.NewRepository(database.Conn)
	requestService := request.NewService(requestRepo, userService, notifier, m, log)
	requestHandler := request.NewHandler(requestService)

	// Feed selector
	feedHandler := feed.NewHandler(feed.NewService(feed.NewRepository(database.Conn)))

	// Realtime chat
	chatRepo := chat.NewRepository(database.Conn)
	hub := chat.NewHub(redisClient, chatRepo, m, log)
	go hub.Run(ctx)
	chatHandler := chat.NewHandler(hub, chatRepo)

	// Pending-request reminder job
	if cfg.ReminderEnabled {
		reminder := notify.NewReminder(requestRepo, notifier, cfg.ReminderInterval, log)
		go reminder.Run(ctx)
	}

	authMiddleware := middleware.NewAuthMiddleware(userService)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		// Public
		r.Post("/signup", userHandler.Signup)
		r.Post("/login", userHandler.Login)
		r.Post("/logout", userHandler.Logout)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handle)

			r.Get("/profile", userHandler.Me)
			r.Get("/profile/{userId}", userHandler.GetProfile)
			r.Patch("/profile/update", userHandler.UpdateProfile)

			r.Post("/request/send/{status}/{toUserId}", requestHandler.Send)
			r.Post("/request/review/{status}/{requestId}", requestHandler.Review)
			r.Get("/requests/received", requestHandler.ListReceived)
			r.Get("/user/connections", requestHandler.Connections)

			r.Get("/feed", feedHandler.Feed)

			r.Get("/chat/{targetUserId}/messages", chatHandler.History)
		})
	})

	// WebSocket (auth via cookie, same as the API)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/ws", chatHandler.ServeWs)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
