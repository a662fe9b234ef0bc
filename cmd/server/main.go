package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/siphyshu/ascii-patakhe/internal/app"
	"github.com/siphyshu/ascii-patakhe/internal/config"
	"github.com/siphyshu/ascii-patakhe/internal/hub"
	"github.com/siphyshu/ascii-patakhe/internal/launch"
	"github.com/siphyshu/ascii-patakhe/internal/logging"
	"github.com/siphyshu/ascii-patakhe/internal/redis"
	"github.com/siphyshu/ascii-patakhe/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, h *hub.Hub, cancelTicker context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cancelTicker()
		h.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	store := redis.NewLaunchStore(redisClient)
	if err := store.Init(context.Background()); err != nil {
		slog.Error("Failed to initialize counter", "error", err)
		os.Exit(1)
	}

	limiter := launch.NewCooldownLimiter(store, cfg.LaunchCooldown)
	estimator := launch.NewRateEstimator(store, clock)
	svc := launch.NewService(store, limiter, estimator, clock)

	h := hub.NewHub(clock)

	ticker := app.NewStatsTicker(svc, h, clock)
	tickerCtx, cancelTicker := context.WithCancel(context.Background())
	go ticker.Run(tickerCtx)
	slog.Info("Started background stats broadcaster")

	srv := server.New(cfg, svc, h, store)

	done := runGracefulShutdown(srv, h, cancelTicker)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
