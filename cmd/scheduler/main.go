package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"paymasterhub/internal/application/dto"
	"paymasterhub/internal/infrastructure/config"
	"paymasterhub/internal/infrastructure/di"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags|log.LUTC)
	cfg, cfgErr := config.LoadConfig()
	if cfgErr != nil {
		logger.Printf("startup config error code=%s message=%s metadata=%v", cfgErr.Code, cfgErr.Message, cfgErr.Metadata)
		os.Exit(1)
	}
	if schedulerCfgErr := validateSchedulerConfig(cfg); schedulerCfgErr != nil {
		logger.Printf(
			"scheduler config error code=%s message=%s metadata=%v",
			schedulerCfgErr.Code,
			schedulerCfgErr.Message,
			schedulerCfgErr.Metadata,
		)
		os.Exit(1)
	}

	container, buildErr := di.Build(cfg, logger)
	if buildErr != nil {
		logger.Printf("dependency wiring error: %v", buildErr)
		os.Exit(1)
	}
	defer container.Close(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Printf("scheduler persistence initialization starting database_target=%s", cfg.DatabaseTarget)
	persistenceErr := container.InitializePersistenceUseCase.Execute(ctx, dto.InitializePersistenceCommand{
		ReadinessTimeout:       cfg.DBReadinessTimeout,
		ReadinessRetryInterval: cfg.DBReadinessRetryInterval,
	})
	if persistenceErr != nil {
		logger.Printf(
			"scheduler persistence initialization failed code=%s message=%s metadata=%v",
			persistenceErr.Code,
			persistenceErr.Message,
			persistenceErr.Details,
		)
		os.Exit(1)
	}
	logger.Printf("scheduler persistence initialization completed database_target=%s", cfg.DatabaseTarget)

	if !container.Scheduler.Enabled() {
		logger.Printf("scheduler startup failed code=SCHEDULER_NOT_ENABLED message=scheduler has no workers")
		os.Exit(1)
	}

	container.Scheduler.Start(ctx)
	logger.Printf("scheduler stopped worker_id=%s", cfg.WorkerID)
}

func validateSchedulerConfig(cfg config.Config) *config.ConfigError {
	if !cfg.SchedulerEnabled {
		return &config.ConfigError{
			Code:    "CONFIG_SCHEDULER_DISABLED",
			Message: "PAYMASTER_SCHEDULER_ENABLED must be true for scheduler runtime",
		}
	}
	if cfg.RedisAddr == "" {
		return &config.ConfigError{
			Code:    "CONFIG_SCHEDULER_SHARED_STORE_REQUIRED",
			Message: "REDIS_ADDR is required so the scheduler shares deployer locks with api replicas",
		}
	}

	return nil
}
