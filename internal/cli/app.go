package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-engine/internal/config"
	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
	"github.com/SAP-F-2025/exam-engine/internal/repositories/casdoor"
	"github.com/SAP-F-2025/exam-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-engine/internal/services"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
	"github.com/SAP-F-2025/exam-engine/pkg"
)

// app holds the process-wide dependencies shared by subcommands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *gorm.DB
	redisClient *redis.Client
	repo        repositories.Repository

	publisher events.EventPublisher
	// inbox is the in-process subscriber side when Kafka is not configured.
	inbox message.Subscriber

	validator *validator.Validator
	services  services.ServiceManager
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, validator: validator.New()}

	if err := a.openRepository(); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openPublisher(); err != nil {
		a.close()
		return nil, err
	}

	a.services = services.NewServiceManager(a.repo, a.publisher, logger, a.validator, services.ServiceManagerConfig{
		Options:       services.Options{Location: cfg.ExamTimezone},
		SweepInterval: cfg.SweepInterval,
		SweepBatch:    cfg.SweepBatch,
	})
	if err := a.services.Initialize(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("initialize services: %w", err)
	}

	return a, nil
}

func (a *app) openRepository() error {
	if a.cfg.DBDriver == config.DriverMemory {
		a.logger.Warn("Using in-memory storage; data is lost on exit")
		a.repo = memory.New()
		return nil
	}

	db, err := pkg.InitDatabase(a.cfg)
	if err != nil {
		return err
	}
	a.db = db

	if a.cfg.RedisURL != "" {
		a.redisClient, err = pkg.NewRedisClient(a.cfg)
		if err != nil {
			// The cache degrades to pass-through without redis.
			a.logger.Warn("Failed to initialize Redis", "error", err)
			a.redisClient = nil
		}
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: a.redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         a.cfg.Casdoor.Endpoint,
			ClientID:         a.cfg.Casdoor.ClientID,
			ClientSecret:     a.cfg.Casdoor.ClientSecret,
			Certificate:      a.cfg.Casdoor.Cert,
			OrganizationName: a.cfg.Casdoor.Organization,
			ApplicationName:  a.cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		return fmt.Errorf("initialize repositories: %w", err)
	}
	a.repo = repoManager.GetRepository()
	return nil
}

func (a *app) openPublisher() error {
	if len(a.cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaEventPublisher(a.cfg.KafkaBrokers, a.cfg.EventsTopic, a.logger)
		if err != nil {
			return err
		}
		a.publisher = publisher
		return nil
	}

	publisher, pubSub := events.NewGoChannelEventPublisher(a.cfg.EventsTopic, a.logger)
	a.publisher = publisher
	a.inbox = pubSub
	return nil
}

func (a *app) close() {
	var errs []error
	if a.services != nil {
		errs = append(errs, a.services.Shutdown(context.Background()))
	} else if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	} else if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Shutdown finished with errors", "error", err)
	}
}
