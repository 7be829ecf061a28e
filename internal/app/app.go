package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/birlikkoshan/todos-api/internal/activity"
	"github.com/birlikkoshan/todos-api/internal/config"
	"github.com/birlikkoshan/todos-api/internal/handlers"
	"github.com/birlikkoshan/todos-api/internal/logging"
	"github.com/birlikkoshan/todos-api/internal/metrics"
	"github.com/birlikkoshan/todos-api/internal/repo"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type App struct {
	cfg      config.Config
	log      *logrus.Logger
	store    repo.Store
	activity *activity.Logger
	metrics  *metrics.Metrics
	router   *gin.Engine
}

func New(cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, metrics: metrics.New()}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = repo.NewInstrumented(store, a.metrics)

	sinks, err := newSinks(cfg)
	if err != nil {
		_ = a.store.Close()
		return nil, err
	}
	a.activity = activity.New(log.WithField("component", "activity"), cfg.Activity.QueueSize, sinks,
		activity.WithObserver(a.metrics),
		activity.WithSinkTimeout(cfg.Activity.SinkTimeout.Duration()),
	)

	a.router = newRouter(cfg, log, a.store, a.activity, a.metrics)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close drains the activity queue, then releases the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.activity != nil {
		drainCtx, cancel := context.WithTimeout(ctx, a.cfg.Activity.DrainTimeout.Duration())
		defer cancel()
		if err := a.activity.Close(drainCtx); err != nil {
			errs = append(errs, fmt.Errorf("activity close: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newStore(cfg config.Config) (repo.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := repo.RunMigrations(cfg.PG.DSN); err != nil {
			return nil, err
		}
		pool, err := repo.NewPostgres(context.Background(), cfg.PG.DSN)
		if err != nil {
			return nil, err
		}
		return repo.NewPGStore(pool, cfg.PG.Collection), nil
	default:
		s, err := repo.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		return s, nil
	}
}

func newSinks(cfg config.Config) ([]activity.Sink, error) {
	fileSink, err := activity.NewFileSink(cfg.Activity.LogFile)
	if err != nil {
		return nil, err
	}
	sinks := []activity.Sink{fileSink}

	if cfg.Redis.Enabled() {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			_ = fileSink.Close()
			return nil, err
		}
		sinks = append(sinks, activity.NewRedisSink(rdb, cfg.Redis.Stream, cfg.Redis.StreamMaxLen))
	}
	return sinks, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(cfg config.Config, log *logrus.Logger, store repo.Store, rec handlers.ActivityRecorder, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	// "/todos/" is a malformed id, not a redirect to "/todos".
	r.RedirectTrailingSlash = false

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithField("panic", recovered).Error("handler panic")
		c.AbortWithStatusJSON(500, gin.H{"error": "Internal server error"})
	}))
	r.Use(logging.Middleware(log))
	r.Use(m.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, log, store, rec, m)
	return r
}
