package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"filiale-console/internal/app"
	"filiale-console/internal/cache"
	"filiale-console/internal/chat"
	"filiale-console/internal/config"
	"filiale-console/internal/datasource"
	"filiale-console/internal/model"
	"filiale-console/internal/pkg/logger"
	mysqlClient "filiale-console/internal/platform/mysql"
	rabbitmqClient "filiale-console/internal/platform/rabbitmq"
	redisClient "filiale-console/internal/platform/redis"
	"filiale-console/internal/repository"
	"filiale-console/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger

	Data  *datasource.Client
	Redis *redis.Client
	Store cache.LocalStore

	Sessions  *app.SessionStore
	Branches  *app.BranchStore
	Documents *app.DocumentService
	Catalog   *app.CatalogService
	Chat      *chat.Manager

	MySQL         *gorm.DB
	MQConn        *amqp.Connection
	Publisher     *rabbitmqClient.TranscriptPublisher
	ArchiveWorker *worker.TranscriptArchiveWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(logger.Options{
		Level:    cfg.Log.Level,
		Prod:     cfg.IsProd(),
		FilePath: cfg.Log.FilePath,
	})
	return Build(ctx, cfg, log)
}

// Build wires every component from an already loaded configuration. Partially
// opened resources are released when it fails.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Data = datasource.NewClient(cfg.Data.BaseURL, cfg.FetchTimeout(), log.Named("datasource"))

	switch cfg.Store.Driver {
	case "redis":
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Store = cache.NewRedisStore(a.Redis, cfg.Store.KeyPrefix, cfg.StoreTTL())
	default:
		a.Store = cache.NewMemoryStore(cfg.StoreTTL())
	}

	a.Sessions, err = app.NewSessionStore(
		a.Store,
		a.Data,
		app.Credentials{
			AdminUsername: cfg.Auth.AdminUsername,
			AdminSecret:   cfg.Auth.AdminSecret,
			UserCode:      cfg.Auth.UserCode,
		},
		cfg.Auth.JWTSecret,
		cfg.JWTExpiration(),
		log.Named("session"),
	)
	if err != nil {
		return nil, err
	}
	a.Branches = app.NewBranchStore(a.Data, a.Store, log.Named("branch"))
	a.Documents = app.NewDocumentService(a.Data, log.Named("document"))
	a.Catalog = app.NewCatalogService(a.Data, a.Documents, log.Named("catalog"))

	chatOpts := chat.Options{
		ReplyDelay:    cfg.ReplyDelay(),
		TitleMaxRunes: cfg.Chat.TitleMaxRunes,
		SessionTTL:    cfg.ChatSessionTTL(),
	}
	if cfg.Archive.Enabled {
		if err = a.openArchive(ctx); err != nil {
			return nil, err
		}
		chatOpts.Archiver = a.Publisher
	}
	a.Chat = chat.NewManager(a.Data, chatOpts, log.Named("chat"))

	log.Info("application wired",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("data_base_url", cfg.Data.BaseURL),
		zap.Bool("archive_enabled", cfg.Archive.Enabled),
	)
	return a, nil
}

func (a *App) openArchive(ctx context.Context) error {
	cfg := a.Config
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), &model.ArchivedMessage{})
	if err != nil {
		return err
	}
	a.MySQL = db

	conn, err := rabbitmqClient.New(ctx, cfg.Archive.RabbitMQ.URL, cfg.Archive.RabbitMQ.Queue)
	if err != nil {
		return err
	}
	a.MQConn = conn
	a.Publisher = rabbitmqClient.NewTranscriptPublisher(conn, cfg.Archive.RabbitMQ.Queue)

	transcripts := repository.NewTranscriptRepository(db)
	a.ArchiveWorker = worker.NewTranscriptArchiveWorker(conn, transcripts, cfg.Archive.RabbitMQ.Queue, a.Log.Named("archive"))
	if err := a.ArchiveWorker.Start(context.Background()); err != nil {
		return fmt.Errorf("start archive worker failed: %w", err)
	}
	return nil
}

// HealthChecks lists the dependencies /healthz probes.
func (a *App) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"datasource": a.Data.Ping,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	if a.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := a.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.Config.Archive.Enabled {
		checks["rabbitmq"] = func(context.Context) error {
			if a.MQConn == nil || a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

func (a *App) Close() error {
	var closeErrs []error
	if a.ArchiveWorker != nil {
		a.ArchiveWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErrs = append(closeErrs, err)
			}
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return errors.Join(closeErrs...)
}
