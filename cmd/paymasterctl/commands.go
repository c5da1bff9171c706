package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"paymasterhub/internal/adapters/outbound/wallet/deterministic"
	"paymasterhub/internal/application/dto"
	valueobjects "paymasterhub/internal/domain/value_objects"
	"paymasterhub/internal/infrastructure/config"
	"paymasterhub/internal/infrastructure/di"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/urfave/cli/v2"
)

type containerAction func(ctx context.Context, c *cli.Context, container di.Container) error

func deriveAction(c *cli.Context) error {
	category, appErr := valueobjects.ParseChainCategory(c.String("category"))
	if appErr != nil {
		return appError(appErr)
	}
	seed, cfgErr := config.ParseMasterSeed(c.String("seed"))
	if cfgErr != nil {
		return fmt.Errorf("%s: %s", cfgErr.Code, cfgErr.Message)
	}

	derived, appErr := deterministic.NewKeyDeriver(seed).Derive(c.String("project"), category)
	if appErr != nil {
		return appError(appErr)
	}
	for i := range derived.PrivateKey {
		derived.PrivateKey[i] = 0
	}

	return printJSON(c, map[string]string{
		"project_id": c.String("project"),
		"category":   category.String(),
		"address":    derived.Address,
	})
}

func validateAddressAction(c *cli.Context) error {
	category, appErr := valueobjects.ParseChainCategory(c.String("category"))
	if appErr != nil {
		return appError(appErr)
	}
	if appErr := valueobjects.ValidateAddress(category, c.String("address")); appErr != nil {
		return appError(appErr)
	}

	return printJSON(c, map[string]any{
		"category": category.String(),
		"address":  c.String("address"),
		"valid":    true,
	})
}

func addressesAction(ctx context.Context, c *cli.Context, container di.Container) error {
	output, appErr := container.GetPaymasterAddressesUseCase.Execute(ctx, dto.GetAddressesQuery{
		ProjectID: c.String("project"),
	})
	if appErr != nil {
		return appError(appErr)
	}
	return printJSON(c, output)
}

func retryAction(ctx context.Context, c *cli.Context, container di.Container) error {
	output, appErr := container.RetryFailedDeploymentsUseCase.Execute(ctx, dto.RetryFailedDeploymentsCommand{
		ProjectID: c.String("project"),
	})
	if appErr != nil {
		return appError(appErr)
	}
	return printJSON(c, output)
}

func refreshAction(ctx context.Context, c *cli.Context, container di.Container) error {
	output, appErr := container.RefreshPaymasterBalancesUseCase.Execute(ctx, dto.RefreshBalancesCommand{
		ProjectID: c.String("project"),
	})
	if appErr != nil {
		return appError(appErr)
	}
	return printJSON(c, output)
}

func setActiveAction(ctx context.Context, c *cli.Context, container di.Container) error {
	output, appErr := container.SetPaymasterActiveUseCase.Execute(ctx, dto.SetPaymasterActiveCommand{
		ProjectID: c.String("project"),
		Category:  c.String("category"),
		Active:    c.Bool("active"),
	})
	if appErr != nil {
		return appError(appErr)
	}
	return printJSON(c, output)
}

// withContainer loads configuration, wires dependencies and waits for the
// database before running action.
func withContainer(logger *log.Logger, action containerAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, cfgErr := config.LoadConfig()
		if cfgErr != nil {
			return fmt.Errorf("%s: %s", cfgErr.Code, cfgErr.Message)
		}

		container, err := di.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close(logger)

		ctx := c.Context
		if persistenceErr := container.InitializePersistenceUseCase.Execute(ctx, dto.InitializePersistenceCommand{
			ReadinessTimeout:       cfg.DBReadinessTimeout,
			ReadinessRetryInterval: cfg.DBReadinessRetryInterval,
			SkipMigrations:         true,
		}); persistenceErr != nil {
			return appError(persistenceErr)
		}

		return action(ctx, c, container)
	}
}

func printJSON(c *cli.Context, value any) error {
	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func appError(appErr *apperrors.AppError) error {
	return fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
}
