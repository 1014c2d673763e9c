package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"link_scheduler/internal/auth"
	"link_scheduler/internal/auth/state"
	"link_scheduler/internal/config"
	"link_scheduler/internal/http_server/handlers/deletepost"
	"link_scheduler/internal/http_server/handlers/editpost"
	"link_scheduler/internal/http_server/handlers/health"
	"link_scheduler/internal/http_server/handlers/home"
	"link_scheduler/internal/http_server/handlers/info"
	"link_scheduler/internal/http_server/handlers/login"
	"link_scheduler/internal/http_server/handlers/logout"
	"link_scheduler/internal/http_server/handlers/posts"
	"link_scheduler/internal/http_server/handlers/schedule"
	"link_scheduler/internal/http_server/handlers/scheduleform"
	"link_scheduler/internal/http_server/handlers/submit"
	"link_scheduler/internal/http_server/handlers/submitform"
	"link_scheduler/internal/http_server/handlers/updatepost"
	"link_scheduler/internal/http_server/views"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/lib/sealer"
	"link_scheduler/internal/lib/session"
	"link_scheduler/internal/middleware/identity"
	rateLimit "link_scheduler/internal/middleware/ratelimit"
	"link_scheduler/internal/rabbitmq"
	"link_scheduler/internal/reddit"
	"link_scheduler/internal/scheduler"
	"link_scheduler/internal/storage"
	"link_scheduler/internal/storage/postgres"
	"link_scheduler/internal/storage/redis"
	"link_scheduler/internal/storage/sqlite"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/oauth2"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// repository is what both storage drivers provide.
type repository interface {
	auth.UserSaver
	auth.UserProvider
	scheduler.PostStorage
	Migrate(ctx context.Context) error
	Close()
}

type app struct {
	auth      *auth.Auth
	states    *state.Issuer
	scheduler *scheduler.Scheduler
	reddit    *reddit.Client
	sessions  *session.Manager
	views     *views.Views
}

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting link scheduler", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage.Driver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	tokenSealer, err := sealer.New(cfg.Tokens.EncryptionKey)
	if err != nil {
		log.Error("failed to init token sealer", sl.Err(err))
		os.Exit(1)
	}

	repo, err := setupStorage(ctx, log, cfg, tokenSealer)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		log.Error("failed to migrate storage", sl.Err(err))
		os.Exit(1)
	}

	stateRepo, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer stateRepo.Close()

	// без RabbitMQ события просто не публикуются
	var events scheduler.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer msgBroker.Close()

		events = msgBroker
	} else {
		log.Warn("rabbitmq url is empty, post events are disabled")
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		log.Error("invalid schedule timezone", slog.String("timezone", cfg.Schedule.Timezone), sl.Err(err))
		os.Exit(1)
	}

	v, err := views.New(log, cfg.Schedule.DateLayout, loc)
	if err != nil {
		log.Error("failed to parse views", sl.Err(err))
		os.Exit(1)
	}

	a := app{
		auth:      auth.New(log, repo, repo),
		states:    state.New(stateRepo, log, cfg.Redis.StateTTL),
		scheduler: scheduler.New(log, repo, events, cfg.Schedule.DateLayout, loc),
		reddit:    reddit.New(log, cfg.Reddit),
		sessions:  session.New(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.CookieName, cfg.Session.SecureCookie),
		views:     v,
	}

	router := setupRouter(log, a)

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
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupStorage(ctx context.Context, log *slog.Logger, cfg *config.Config, tokenSealer storage.TokenSealer) (repository, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		return postgres.New(ctx, log, cfg, tokenSealer)
	case config.StorageDriverSQLite:
		return sqlite.New(cfg.Storage.SQLitePath, tokenSealer)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func setupRouter(log *slog.Logger, a app) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	account := func(ctx context.Context, tok *oauth2.Token) auth.RemoteAccount {
		return a.reddit.API(ctx, tok)
	}

	r.Get("/", home.New(a.sessions, a.views))
	r.Get("/health", health.New())
	r.With(rateLimit.Login()).Get("/login",
		login.New(log, a.states, a.reddit, a.views),
	)
	r.Get("/info",
		info.New(log, a.states, a.reddit, account, a.auth, a.sessions, a.views),
	)
	r.Get("/logout", logout.New(log, a.sessions))

	r.Group(func(r chi.Router) {
		r.Use(identity.New(log, a.sessions, a.auth))

		r.With(rateLimit.Submit()).Post("/submit",
			submit.New(log, a.reddit, a.views),
		)
		r.Get("/post", submitform.New(log, a.reddit, a.views))
		r.Get("/postSchedule", scheduleform.New(log, a.views))
		r.With(rateLimit.Schedule()).Post("/schedule",
			schedule.New(log, a.scheduler, a.views),
		)
		r.Get("/posts", posts.New(log, a.scheduler, a.views))
		r.Delete("/deletePost/{id}", deletepost.New(log, a.scheduler))
		r.Get("/editPost/{id}", editpost.New(log, a.scheduler, a.views))
		r.With(rateLimit.Update()).Post("/updatePost/{id}",
			updatepost.New(log, a.scheduler, a.views),
		)
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
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
