package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"content-query-service/internal/allowlist"
	"content-query-service/internal/app/service"
	"content-query-service/internal/auth"
	"content-query-service/internal/compat"
	"content-query-service/internal/config"
	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
	"content-query-service/internal/infra/postgres"
	"content-query-service/internal/infra/search/fulltext"
	"content-query-service/internal/infra/search/registry"
	"content-query-service/internal/logger"
	"content-query-service/internal/metrics"
	"content-query-service/internal/sanitize"
	"content-query-service/internal/serializer"
	"content-query-service/pkg/locker"
)

const lockPrefix = "content-query:"

// application holds the dependencies shared by every command.
type application struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *gorm.DB
	redis  *redis.Client
	locker locker.DistributedLocker
}

// bootstrap loads configuration and opens the logger, the database and,
// when enabled, Redis.
func bootstrap(ctx context.Context, configPath string) (*application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	hostname, _ := os.Hostname()
	log, err := logger.New(
		logger.Config{
			Level:  cfg.Logger.Level,
			Format: cfg.Logger.Format,
			Output: cfg.Logger.Output,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     cfg.Sentry.Release,
			ServerName:  hostname,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := postgres.NewConnection(
		postgres.Config{
			Host:          cfg.Database.Host,
			Port:          cfg.Database.Port,
			Name:          cfg.Database.Name,
			User:          cfg.Database.User,
			Password:      cfg.Database.Password,
			SSLMode:       cfg.Database.SSLMode,
			MaxOpenConns:  cfg.Database.MaxOpenConns,
			MaxIdleConns:  cfg.Database.MaxIdleConns,
			MaxLifetime:   cfg.Database.MaxLifetime,
			SlowThreshold: cfg.Database.SlowThreshold,
		},
		log.Component("postgres"),
	)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	app := &application{cfg: cfg, log: log, db: db}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		log.Info("connected to Redis",
			zap.String("addr", cfg.Redis.Addr()),
		)
		app.redis = client
		app.locker = locker.NewRedisLocker(client, lockPrefix, log.Component("locker"))
	} else {
		log.Info("redis disabled, using in-process locks")
		app.locker = locker.NewLocalLocker()
	}

	return app, nil
}

// close releases everything bootstrap opened.
func (a *application) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = postgres.Close(a.db)
	}
	_ = a.log.Sync()
}

// postTypes returns the configured source of public post types.
func (a *application) postTypes() domain.PostTypeSource {
	if a.cfg.Query.PostTypes.Source == "static" {
		return domain.StaticPostTypes(a.cfg.Query.PostTypes.Static)
	}
	return postgres.NewPostTypeRegistry(a.db)
}

// defaultArgs maps the configured defaults onto query arguments.
func (a *application) defaultArgs() domain.Args {
	d := a.cfg.Query.Defaults
	return domain.Args{
		domain.ArgPostStatus:               domain.String(d.PostStatus),
		domain.ArgPostsPerPage:             domain.Int(d.PostsPerPage),
		domain.ArgExcludePasswordProtected: domain.Bool(d.ExcludePasswordProtected),
	}
}

// features maps the configured feature groups and allow-list overrides.
func (a *application) features() allowlist.Features {
	f := a.cfg.Query.Features
	return allowlist.Features{
		Authors:    f.Authors,
		Meta:       f.Meta,
		Search:     f.Search,
		Taxonomies: f.Taxonomies,
		Add:        a.cfg.Query.AllowedArgs.Add,
		Remove:     a.cfg.Query.AllowedArgs.Remove,
	}
}

// queryStack is the wired query pipeline.
type queryStack struct {
	service *service.QueryService
	engine  *postgres.Engine
	backend domain.SearchBackend
	index   *fulltext.Index // set when the bleve backend is selected
}

// buildQueryStack wires the hook registry, the policy, the engine and the
// configured integrations into a QueryService.
func (a *application) buildQueryStack() (*queryStack, error) {
	log := a.log.Component("query")
	hooks := hook.NewRegistry()

	if err := auth.NewKeyGate(a.cfg.Auth.APIKeys).Register(hooks); err != nil {
		return nil, fmt.Errorf("registering permission gate: %w", err)
	}

	if err := a.features().Register(hooks); err != nil {
		return nil, fmt.Errorf("registering feature groups: %w", err)
	}

	if a.cfg.Compat.Languages {
		if err := compat.RegisterLanguages(hooks); err != nil {
			return nil, fmt.Errorf("registering language compatibility: %w", err)
		}
	}

	engine := postgres.NewEngine(a.db, a.log.Component("engine"))

	backend, err := registry.NewBackend(a.cfg.Compat.SearchBackend, a.cfg.Search, a.log.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating search backend: %w", err)
	}

	stack := &queryStack{engine: engine, backend: backend}
	if backend != nil {
		if err := compat.NewSearchReplacement(backend, engine, a.log.Component("search")).Register(hooks); err != nil {
			return nil, fmt.Errorf("registering search backend: %w", err)
		}
		if idx, ok := backend.(*fulltext.Index); ok {
			stack.index = idx
		}
		a.log.Info("alternate search backend enabled", zap.String("backend", backend.Name()))
	}

	policy := sanitize.NewPolicy(hooks, a.postTypes(), sanitize.PolicyConfig{
		AllowedStatuses: a.cfg.Query.AllowedStatuses,
		MaxPerPage:      a.cfg.Query.MaxPostsPerPage,
	}, log)

	var opts []sanitize.Option
	if a.cfg.Query.FixPostStatusKey {
		opts = append(opts, sanitize.WithPostStatusKey(domain.ArgPostStatus))
	}

	itemSerializer := serializer.New(serializer.Config{
		SiteURL:        a.cfg.Serializer.SiteURL,
		RenderMarkdown: a.cfg.Serializer.RenderMarkdown,
		MetaKeys:       a.cfg.Serializer.MetaKeys,
	})

	metrics.RegisterQueryMetrics()

	stack.service = service.NewQueryService(
		hooks,
		policy,
		sanitize.New(opts...),
		engine,
		itemSerializer,
		a.defaultArgs(),
		log,
	)

	return stack, nil
}

// close releases the search backend.
func (s *queryStack) close() {
	if s.index != nil {
		_ = s.index.Close()
	}
}
