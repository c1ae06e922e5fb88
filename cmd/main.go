package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotes_service/internal/auth"
	"quotes_service/internal/config"
	"quotes_service/internal/http_server/handlers/grantadmin"
	"quotes_service/internal/http_server/handlers/login"
	"quotes_service/internal/http_server/handlers/quotes/create"
	"quotes_service/internal/http_server/handlers/quotes/list"
	"quotes_service/internal/http_server/handlers/quotes/random"
	"quotes_service/internal/http_server/handlers/quotes/remove"
	"quotes_service/internal/http_server/handlers/quotes/update"
	"quotes_service/internal/http_server/handlers/register"
	"quotes_service/internal/http_server/handlers/token"
	"quotes_service/internal/middleware/authn"
	"quotes_service/internal/middleware/ratelimit"
	"quotes_service/internal/quotes"
	"quotes_service/internal/rabbitmq"
	"quotes_service/internal/storage/postgres"
	"quotes_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting quotes service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	cache, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer cache.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	authService := auth.New(
		log,
		storage,
		storage,
		storage,
		msgBroker,
		cfg.Tokens.Secret,
		cfg.Tokens.Issuer,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
	)

	quotesService := quotes.New(log, storage, storage, storage, cache)

	router := setupRouter(log, cfg.Tokens.Secret, authService, quotesService)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	tokenSecret string,
	authService *auth.Auth,
	quotesService *quotes.Quotes,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()

	r.Route("/auth", func(r chi.Router) {
		r.With(ratelimit.Register()).Post("/register",
			register.New(log, validate, authService),
		)
		r.With(ratelimit.Login()).Post("/login",
			login.New(log, validate, authService),
		)
		r.With(ratelimit.Renew()).Post("/accessToken",
			token.New(log, authService),
		)

		r.Group(func(r chi.Router) {
			r.Use(authn.New(log, tokenSecret))
			r.Post("/grantAdmin", grantadmin.New(log, authService))
		})
	})

	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", list.New(log, quotesService))
		r.Get("/random", random.New(log, quotesService))
		r.Get("/{userId}", list.NewByUser(log, quotesService))
		r.Get("/{userId}/tags", list.NewByUser(log, quotesService))

		r.Group(func(r chi.Router) {
			r.Use(authn.New(log, tokenSecret))
			r.Use(ratelimit.Mutate())
			r.Post("/", create.New(log, validate, quotesService))
			r.Put("/{quoteId}", update.New(log, validate, quotesService))
			r.Delete("/{quoteId}", remove.New(log, quotesService))
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
