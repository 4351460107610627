// Command credguard-server serves the credguard flows over HTTP.
//
// Configuration comes from CREDGUARD_* environment variables. Without
// CREDGUARD_REDIS_URL the server runs against an in-process miniredis and
// without CREDGUARD_DB_DSN against an in-memory user directory; both are for
// local development only.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/credguard"
	"github.com/MrEthical07/credguard/directory/memory"
	"github.com/MrEthical07/credguard/directory/postgres"
	"github.com/MrEthical07/credguard/events"
	"github.com/MrEthical07/credguard/httpapi"
	"github.com/MrEthical07/credguard/internal/config"
	jwtpkg "github.com/MrEthical07/credguard/jwt"
	promexport "github.com/MrEthical07/credguard/metrics/export/prometheus"
	"github.com/MrEthical07/credguard/password"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// -------- STORES --------
	rdb, closeRedis, err := openRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	directory, closeDirectory, err := openDirectory(ctx, cfg.DBDSN, logger)
	if err != nil {
		return err
	}
	defer closeDirectory()

	hasher, err := newHasher(cfg.Hasher)
	if err != nil {
		return err
	}

	// -------- ENGINE --------
	engineCfg := credguard.DefaultConfig()
	engineCfg.Namespace = cfg.Namespace

	builder := credguard.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserDirectory(directory).
		WithHasher(hasher).
		WithLogger(logger)

	sinks := []credguard.AuditSink{credguard.NewSlogSink(logger)}
	if cfg.RedisURL != "" {
		streamPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: rdb},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return fmt.Errorf("redis stream publisher: %w", err)
		}
		opts := []events.Option{events.WithLogger(logger)}
		if cfg.AuditStream != "" {
			opts = append(opts, events.WithAuditTopic(cfg.AuditStream))
		}
		publisher := events.NewPublisher(streamPublisher, opts...)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("close event publisher", "error", err)
			}
		}()

		builder.WithChallengeNotifier(publisher)
		if cfg.AuditStream != "" {
			sinks = append(sinks, publisher)
		}
	}
	builder.WithAuditSink(credguard.MultiAuditSink(sinks...))

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	logger.Info("credguard engine ready", "security", engine.SecurityReport())

	// -------- HTTP --------
	handler := httpapi.New(engine, logger)
	routerCfg := httpapi.RouterConfig{TrustProxy: cfg.TrustProxy}
	if cfg.TokensEnabled() {
		tokens, err := jwtpkg.NewManager(jwtpkg.Config{
			AccessTTL:     cfg.JWTTTL,
			SigningMethod: jwtpkg.MethodHS256,
			PrivateKey:    []byte(cfg.JWTSecret),
			Issuer:        "credguard",
		})
		if err != nil {
			return fmt.Errorf("jwt manager: %w", err)
		}
		handler.WithTokenIssuer(tokens)
		routerCfg.TokenParser = tokens
	}
	if cfg.ThrottleEnabled() {
		routerCfg.Throttle = httpapi.NewThrottle(cfg.GatewayRPS, cfg.GatewayBurst)
	}

	servers := []*http.Server{newServer(cfg.Addr, httpapi.NewRouter(handler, routerCfg))}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promexport.Handler(engine))
		servers = append(servers, newServer(cfg.MetricsAddr, mux))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("starting http server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func openRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, func(), error) {
	if url == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		logger.Warn("CREDGUARD_REDIS_URL not set; using in-process miniredis")
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

func openDirectory(ctx context.Context, dsn string, logger *slog.Logger) (credguard.UserDirectory, func(), error) {
	if dsn == "" {
		logger.Warn("CREDGUARD_DB_DSN not set; users are kept in memory")
		return memory.New(), func() {}, nil
	}

	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	dir := postgres.New(pool)
	if err := dir.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return dir, pool.Close, nil
}

func newHasher(name string) (credguard.Hasher, error) {
	switch name {
	case config.HasherArgon2id:
		return password.NewArgon2(password.DefaultArgon2Config())
	default:
		return password.NewBcrypt(password.DefaultBcryptCost)
	}
}
