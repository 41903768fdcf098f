// Package bootstrap assembles the transition engine from configuration for the
// HTTP gateway and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-transition/internal/repository"
	"github.com/noah-isme/sma-academic-transition/internal/service"
	"github.com/noah-isme/sma-academic-transition/internal/store"
	"github.com/noah-isme/sma-academic-transition/internal/store/memstore"
	mongostore "github.com/noah-isme/sma-academic-transition/internal/store/mongo"
	pgstore "github.com/noah-isme/sma-academic-transition/internal/store/postgres"
	"github.com/noah-isme/sma-academic-transition/pkg/cache"
	"github.com/noah-isme/sma-academic-transition/pkg/config"
	"github.com/noah-isme/sma-academic-transition/pkg/database"
)

const lockGrace = 30 * time.Second

// Runtime holds the wired services and the resources they own.
type Runtime struct {
	Store         store.DocumentStore
	Redis         *redis.Client
	Metrics       *service.MetricsService
	Cache         *service.CacheService
	Tokens        *service.TokenService
	Transition    *service.TransitionService
	AcademicYears *service.AcademicYearService

	closers []func() error
}

// OpenStore connects the document store selected by STORE_DRIVER.
func OpenStore(cfg *config.Config) (store.DocumentStore, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := pgstore.New(db, pgstore.WithOpTimeout(cfg.Store.OpTimeout), pgstore.WithMaxBatchOps(cfg.Store.MaxBatchOps))
		return s, db.Close, nil
	case config.StoreDriverMongo:
		db, err := database.NewMongo(cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		s := mongostore.New(db,
			mongostore.WithOpTimeout(cfg.Store.OpTimeout),
			mongostore.WithMaxBatchOps(cfg.Mongo.MaxBatchOps),
			mongostore.WithTransactions(cfg.Mongo.Transactions),
		)
		closer := func() error { return db.Client().Disconnect(context.Background()) }
		return s, closer, nil
	case config.StoreDriverMemory:
		return memstore.New(cfg.Store.MaxBatchOps), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// New opens the configured store and wires every service on top of it.
func New(cfg *config.Config, logger *zap.Logger, opts ...service.TransitionServiceOption) (*Runtime, error) {
	docs, closeStore, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	rt, err := Wire(cfg, docs, logger, opts...)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	rt.closers = append(rt.closers, closeStore)
	return rt, nil
}

// Wire builds the services over an already opened store. Redis is dialled only
// when the run lock or the read cache is enabled.
func Wire(cfg *config.Config, docs store.DocumentStore, logger *zap.Logger, opts ...service.TransitionServiceOption) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{Store: docs}

	if cfg.Transition.LockEnabled || cfg.AcademicYear.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		switch {
		case err == nil:
			rt.Redis = client
			rt.closers = append(rt.closers, client.Close)
		case cfg.Transition.LockEnabled:
			return nil, fmt.Errorf("connect redis for transition lock: %w", err)
		default:
			logger.Warn("redis unavailable, academic year cache disabled", zap.Error(err))
		}
	}

	if cfg.Metrics.Enabled {
		rt.Metrics = service.NewMetricsService()
	}
	rt.Cache = service.NewCacheService(
		repository.NewCacheRepository(rt.Redis, logger),
		rt.Metrics,
		cfg.AcademicYear.CacheTTL,
		logger,
		cfg.AcademicYear.CacheEnabled && rt.Redis != nil,
	)
	rt.Tokens = service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	years := repository.NewAcademicYearRepository(docs)
	rt.AcademicYears = service.NewAcademicYearService(years, rt.Cache, logger)

	transitionOpts := []service.TransitionServiceOption{
		service.WithTransitionConfig(service.TransitionConfig{
			BatchThreshold:  cfg.Transition.BatchThreshold,
			PageSize:        cfg.Transition.PageSize,
			Timeout:         cfg.Transition.Timeout,
			ContinueOnError: cfg.Transition.ContinueOnError,
		}),
		service.WithTransitionCache(rt.Cache),
		service.WithTransitionMetrics(rt.Metrics),
	}
	if cfg.Transition.LockEnabled {
		ttl := lockTTL(cfg.Transition)
		if ttl != cfg.Transition.LockTTL {
			logger.Warn("transition lock ttl raised to outlive the run timeout",
				zap.Duration("configured", cfg.Transition.LockTTL), zap.Duration("ttl", ttl))
		}
		transitionOpts = append(transitionOpts, service.WithRunLock(
			repository.NewRunLock(rt.Redis, repository.TransitionLockKey, ttl),
		))
	}
	transitionOpts = append(transitionOpts, opts...)

	rt.Transition = service.NewTransitionService(
		docs,
		repository.NewStudentRepository(docs),
		repository.NewFeeLedgerRepository(docs),
		repository.NewTeachingAssignmentRepository(docs),
		repository.NewClassTimetableRepository(docs),
		years,
		validator.New(),
		logger,
		transitionOpts...,
	)
	return rt, nil
}

// lockTTL keeps the run lock alive for at least the whole run timeout plus a
// grace period for the final flush and lock release.
func lockTTL(cfg config.TransitionConfig) time.Duration {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = service.DefaultTransitionTimeout
	}
	if floor := timeout + lockGrace; cfg.LockTTL < floor {
		return floor
	}
	return cfg.LockTTL
}

// Close releases the store and Redis connections.
func (r *Runtime) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
