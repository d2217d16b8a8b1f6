package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"content-query-service/internal/app/service"
	"content-query-service/internal/infra/postgres"
	"content-query-service/internal/infra/postgres/migrations"
	"content-query-service/internal/job"
	"content-query-service/internal/transport/httpserver"
	"content-query-service/internal/transport/httpserver/middleware"
	"content-query-service/internal/transport/httpserver/params"
	"content-query-service/pkg/locker"
)

const (
	migrateLockKey  = "migrate:lock"
	migrateLockTTL  = 5 * time.Minute
	indexLockKey    = "index:scheduler:lock"
	shutdownTimeout = 10 * time.Second
)

// serve runs pending migrations and starts the HTTP server until SIGINT or SIGTERM.
func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer app.close()

	log := app.log

	log.Info("starting content-query-service",
		zap.String("env", app.cfg.App.Env),
		zap.Int("port", app.cfg.App.Port),
	)

	if err := app.runMigrations(ctx); err != nil {
		log.Error("failed to run migrations", zap.Error(err))
		return err
	}

	stack, err := app.buildQueryStack()
	if err != nil {
		log.Error("failed to wire query pipeline", zap.Error(err))
		return err
	}
	defer stack.close()

	// An in-memory index lives in this process only, so every instance
	// rebuilds its own copy.
	var scheduler *job.IndexScheduler
	if stack.index != nil {
		var schedLocker locker.DistributedLocker = locker.NewLocalLocker()
		if app.cfg.Search.Bleve.Path != "" {
			schedLocker = app.locker
		}
		indexer := service.NewIndexService(stack.engine, stack.index, app.cfg.Search.Bleve.BatchSize, log.Component("indexer"))
		scheduler = job.NewIndexScheduler(
			indexer,
			job.IndexConfig{
				Interval: app.cfg.Search.Bleve.ReindexInterval,
				Timeout:  app.cfg.Search.Bleve.Timeout,
				LockKey:  indexLockKey,
			},
			log.Component("scheduler"),
			schedLocker,
		)
		scheduler.Start(app.cfg.Search.Bleve.OnStartup || app.cfg.Search.Bleve.Path == "")
	}

	readiness := []middleware.ReadinessFunc{
		func(ctx context.Context) error { return postgres.HealthCheck(ctx, app.db) },
	}
	if app.redis != nil {
		readiness = append(readiness, func(ctx context.Context) error { return app.redis.Ping(ctx).Err() })
	}

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:      app.cfg.App.Port,
			Prefix:    app.cfg.HTTP.Prefix,
			Namespace: app.cfg.Query.Namespace,
			Route:     app.cfg.Query.Route,
			Limits: params.Limits{
				MaxValues: app.cfg.HTTP.MaxQueryParams,
				MaxDepth:  app.cfg.HTTP.MaxNesting,
			},
			ReadTimeout:  app.cfg.HTTP.ReadTimeout,
			WriteTimeout: app.cfg.HTTP.WriteTimeout,
			CORSOrigins:  app.cfg.HTTP.CORSOrigins,
		},
		stack.service,
		readiness,
		log.Component("http"),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(app.cfg.App.Port)
	}()

	select {
	case err := <-errCh:
		if scheduler != nil {
			scheduler.Stop()
		}
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.App.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}

// migrate applies, lists or rolls back migrations.
func migrate(ctx context.Context, cmd *cli.Command) error {
	app, err := bootstrap(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer app.close()

	switch {
	case cmd.Bool("status"):
		pending, err := migrations.Pending(app.db)
		if err != nil {
			return fmt.Errorf("listing pending migrations: %w", err)
		}
		if len(pending) == 0 {
			app.log.Info("database schema is up to date")
			return nil
		}
		app.log.Info("pending migrations", zap.Strings("ids", pending))
		return nil

	case cmd.Bool("rollback"):
		ran, err := locker.WithLock(ctx, app.locker, migrateLockKey, migrateLockTTL, func(context.Context) error {
			return migrations.Rollback(app.db)
		})
		if !ran && err == nil {
			return errors.New("another instance is migrating the database")
		}
		if err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		app.log.Info("last migration rolled back")
		return nil

	default:
		return app.runMigrations(ctx)
	}
}

// runMigrations applies pending migrations while holding the migrate lock.
// An instance that finds the lock taken waits for the holder to finish.
func (a *application) runMigrations(ctx context.Context) error {
	for {
		ran, err := locker.WithLock(ctx, a.locker, migrateLockKey, migrateLockTTL, func(context.Context) error {
			return migrations.Run(a.db)
		})
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		if ran {
			a.log.Info("database migrations completed")
			return nil
		}

		a.log.Info("waiting for another instance to finish migrations")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// reindex rebuilds the on-disk bleve index once.
func reindex(ctx context.Context, cmd *cli.Command) error {
	app, err := bootstrap(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer app.close()

	bleveCfg := app.cfg.Search.Bleve
	if bleveCfg.Path == "" {
		return errors.New("search.bleve.path is empty: an in-memory index is rebuilt by serve on startup")
	}

	stack, err := app.buildQueryStack()
	if err != nil {
		return err
	}
	defer stack.close()

	if stack.index == nil {
		return fmt.Errorf("compat.search_backend is %q, reindex needs bleve", app.cfg.Compat.SearchBackend)
	}

	indexer := service.NewIndexService(stack.engine, stack.index, bleveCfg.BatchSize, app.log.Component("indexer"))

	var result service.IndexResult
	ran, err := locker.WithLock(ctx, app.locker, indexLockKey, bleveCfg.Timeout, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, bleveCfg.Timeout)
		defer cancel()

		result = indexer.Rebuild(ctx)
		return result.Error
	})
	if !ran && err == nil {
		return errors.New("another rebuild is running")
	}
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	app.log.Info("reindex finished",
		zap.Int("indexed", result.Count),
		zap.Duration("duration", result.Duration),
	)
	return nil
}
