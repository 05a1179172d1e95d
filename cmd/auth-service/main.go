package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pribylovaa/auth-service/internal/config"
	"github.com/pribylovaa/auth-service/internal/metrics"
	"github.com/pribylovaa/auth-service/internal/password"
	"github.com/pribylovaa/auth-service/internal/revocation"
	"github.com/pribylovaa/auth-service/internal/revocation/memory"
	"github.com/pribylovaa/auth-service/internal/revocation/redis"
	"github.com/pribylovaa/auth-service/internal/service"
	"github.com/pribylovaa/auth-service/internal/storage/postgres"
	"github.com/pribylovaa/auth-service/internal/token"
	transport "github.com/pribylovaa/auth-service/internal/transport/http"
	"github.com/pribylovaa/auth-service/internal/validation"
)

// pinger — зависимость, доступность которой проверяет /healthz.
type pinger interface {
	Ping(ctx context.Context) error
}

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application",
		slog.String("env", cfg.Env),
		slog.String("revocation_backend", cfg.Revocation.Backend),
	)

	if err := run(cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer str.Close()
	log.Info("postgres_connected")

	store, err := newRevocationStore(rootCtx, cfg, str, log)
	if err != nil {
		return fmt.Errorf("revocation store: %w", err)
	}
	// Закрывается ровно один раз, после остановки HTTP и до закрытия пула.
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("revocation_close_failed", slog.String("err", err.Error()))
		}
	}()

	hasher, err := password.New(cfg.Password.Cost, cfg.Password.Workers)
	if err != nil {
		return err
	}

	codec, err := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Leeway)
	if err != nil {
		return err
	}

	m := metrics.New()
	tokens := service.NewTokenService(codec, store, cfg.Auth, m)
	svc := service.New(str, hasher, validation.New(), tokens)
	log.Info("service_initialized")

	var ready atomic.Bool

	// Служебный HTTP: health и метрики.
	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := str.Ping(ctx); err != nil {
			log.Warn("healthz_postgres_failed", slog.String("err", err.Error()))
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		if p, ok := store.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				log.Warn("healthz_revocation_failed", slog.String("err", err.Error()))
				http.Error(w, "revocation store unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.Handle("/metrics", m.Handler())

	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	apiSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: transport.NewRouter(svc, transport.Options{
			Logger:  log,
			Metrics: m,
			Timeout: cfg.Timeouts.Service,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	opsLn, err := net.Listen("tcp", opsSrv.Addr)
	if err != nil {
		return fmt.Errorf("ops listen %s: %w", opsSrv.Addr, err)
	}
	apiLn, err := net.Listen("tcp", apiSrv.Addr)
	if err != nil {
		_ = opsLn.Close()
		return fmt.Errorf("http listen %s: %w", apiSrv.Addr, err)
	}

	serveErrCh := make(chan error, 2)
	serve := func(name string, srv *http.Server, ln net.Listener) {
		log.Info("http_listen_start", slog.String("server", name), slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("%s serve: %w", name, err)
		}
	}
	go serve("ops", opsSrv, opsLn)
	go serve("api", apiSrv, apiLn)

	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
	}

	ready.Store(false)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = apiSrv.Close()
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		_ = opsSrv.Close()
	}
	log.Info("http_stopped")

	return serveErr
}

// newRevocationStore создаёт чёрный список по cfg.Revocation.Backend.
func newRevocationStore(ctx context.Context, cfg *config.Config, str *postgres.Storage, log *slog.Logger) (revocation.Store, error) {
	switch cfg.Revocation.Backend {
	case config.RevocationRedis:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		s, err := redis.New(pingCtx, cfg.Redis.RedisURL, cfg.Revocation.Prefix)
		if err != nil {
			return nil, err
		}
		log.Info("redis_connected")
		return s, nil

	case config.RevocationPostgres:
		return str.RevokedTokens(cfg.Revocation.JanitorPeriod, log), nil

	case config.RevocationMemory:
		if cfg.Env == envProd {
			log.Warn("memory_revocation_in_prod",
				slog.String("hint", "revocations are lost on restart and not shared between replicas"),
			)
		}
		return memory.New(cfg.Revocation.JanitorPeriod), nil

	default:
		return nil, fmt.Errorf("unknown revocation backend %q", cfg.Revocation.Backend)
	}
}

// setupLogger настраивает slog по окружению.
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
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
