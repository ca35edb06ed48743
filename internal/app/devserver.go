package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/shelf/internal/devserver"
)

// RunDevServer serves the in-memory backend until ctx is cancelled or the
// server fails. Refresh sessions go to Redis when devserver.redis_url is set.
func RunDevServer(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	var shutdownFuncs []func(context.Context) error

	opts := []devserver.Option{
		devserver.WithAccessTTL(cfg.DevServer.AccessTTL),
		devserver.WithLogger(slog.Default()),
	}
	if u, err := url.Parse(cfg.API.BaseURL); err == nil && u.Path != "" {
		opts = append(opts, devserver.WithBasePath(u.Path))
	}

	if cfg.DevServer.RedisURL != "" {
		sessions, closeRedis, err := devserver.DialRedisSessions(gCtx, cfg.DevServer.RedisURL)
		if err != nil {
			return fmt.Errorf("redis startup failed: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, func(context.Context) error { return closeRedis() })
		opts = append(opts, devserver.WithSessions(sessions))
		slog.InfoContext(gCtx, "storing refresh sessions in redis")
	}

	server, err := devserver.New([]byte(cfg.DevServer.Secret), opts...)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create dev server: %w", err), shutdown(cfg, shutdownFuncs))
	}

	if cfg.DevServer.SeedLogin != "" && cfg.DevServer.SeedPassword != "" {
		user, err := server.SeedUser(cfg.DevServer.SeedLogin, cfg.DevServer.SeedLogin+"@shelf.local", cfg.DevServer.SeedPassword)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to seed user: %w", err), shutdown(cfg, shutdownFuncs))
		}
		slog.InfoContext(gCtx, "seeded user", "login", user.Login, "id", user.ID)
	}

	address := cfg.DevServer.Host + ":" + strconv.FormatUint(uint64(cfg.DevServer.Port), 10)

	// Startup phase: Start services
	serverErrCh, err := server.Start(gCtx, address)
	if err != nil {
		return errors.Join(fmt.Errorf("dev server startup failed: %w", err), shutdown(cfg, shutdownFuncs))
	}
	shutdownFuncs = append(shutdownFuncs, server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "dev server runtime error", "error", err)
				return fmt.Errorf("dev server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "dev server ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}
	if err := shutdown(cfg, shutdownFuncs); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("dev server stopped")
	return nil
}

// shutdown runs funcs in reverse order within the configured timeout.
func shutdown(cfg *Config, funcs []func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			slog.ErrorContext(ctx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
