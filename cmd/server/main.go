package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediahub/mediahub/internal"
	"github.com/mediahub/mediahub/internal/auth"
	authdb "github.com/mediahub/mediahub/internal/auth/db"
	"github.com/mediahub/mediahub/internal/db"
	"github.com/mediahub/mediahub/internal/db/migrate"
	"github.com/mediahub/mediahub/internal/session"
	sessiondb "github.com/mediahub/mediahub/internal/session/db"
	"github.com/mediahub/mediahub/internal/session/redisstore"
	"github.com/mediahub/mediahub/internal/web"
	websessions "github.com/mediahub/mediahub/internal/web/sessions"
	"github.com/mediahub/mediahub/migrations"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	pools, err := db.OpenPools(cfg.db.file)
	if err != nil {
		logger.Error("failed to open database", "error", err, "file", cfg.db.file)
		return 1
	}
	defer func() {
		err := pools.Close()
		if err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if cfg.db.migrate {
		err = migrateDB(ctx, logger, pools)
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}
	}

	sessionStore, closeStore, err := newSessionStore(ctx, logger, cfg, pools)
	if err != nil {
		logger.Error("failed to create session store", "error", err, "backend", cfg.session.backend)
		return 1
	}
	defer closeStore()

	sessions := session.NewManager(sessionStore, cfg.session.ttl)

	authSvc, err := auth.NewService(authdb.New(pools.Write, pools.Read), sessions, func(err error) {
		logger.Error("auth service error", "error", err)
	}, cfg.auth)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	if cfg.admin.password != nil {
		err = seedAdmin(ctx, logger, authSvc, cfg.admin)
		if err != nil {
			logger.Error("failed to seed admin", "error", err)
			return 1
		}
	}

	cookieStore := websessions.NewCookieStore(cfg.http.cookieKeys, websessions.CookieOptions{
		MaxAge: cfg.session.ttl,
		Secure: cfg.http.secureCookie,
	})

	server := web.NewServer(&web.ServerDeps{
		Logger:      logger,
		AuthService: authSvc,
		CookieStore: cookieStore,
	}, web.ServerConfig{
		SessionTTL: cfg.session.ttl,
		Version:    internal.Version(),
	})

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler:      server,
	}

	// We need to run three tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.
	// - Periodically purging expired sessions.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"sessionBackend", cfg.session.backend,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutines.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	// Redis expires sessions on its own.
	if cfg.session.backend == sessionBackendSQLite {
		g.Go(func() error {
			return sessions.PurgeEvery(gCtx, cfg.session.purgeInterval, logger)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

func migrateDB(ctx context.Context, logger *slog.Logger, pools db.Pools) error {
	logger.Info("attempting to migrate database")

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	applied, err := migrate.RunFS(ctx, pools.Write, migrations.FS, migrate.Metadata{
		AppVersion: internal.Version(),
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	for _, m := range applied {
		logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
	}

	return nil
}

// newSessionStore creates the session store for the configured backend.
// The returned func releases the resources of the store.
func newSessionStore(ctx context.Context, logger *slog.Logger, cfg config, pools db.Pools) (session.Store, func(), error) {
	switch cfg.session.backend {
	case sessionBackendSQLite:
		return sessiondb.New(pools.Write, pools.Read), func() {}, nil
	case sessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redis.addr,
			Password: cfg.redis.password.SecretString(),
			DB:       cfg.redis.db,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := rdb.Ping(pingCtx).Err()
		if err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.redis.addr, err)
		}

		closeFn := func() {
			err := rdb.Close()
			if err != nil {
				logger.Error("failed to close redis client", "error", err)
			}
		}

		return redisstore.New(rdb), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.session.backend)
	}
}

func seedAdmin(ctx context.Context, logger *slog.Logger, svc *auth.Service, cfg adminConfig) error {
	created, err := svc.EnsureAdmin(ctx, auth.AdminSeed{
		Username: cfg.username,
		Email:    cfg.email,
		Password: *cfg.password,
	})
	if err != nil {
		return err
	}

	if created {
		logger.Info("seeded admin", "username", cfg.username)
	} else {
		logger.Info("admin already exists", "username", cfg.username)
	}

	return nil
}
