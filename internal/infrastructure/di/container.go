package di

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"paymasterhub/internal/adapters/inbound/http/controllers"
	httpRouter "paymasterhub/internal/adapters/inbound/http/router"
	"paymasterhub/internal/adapters/outbound/chain/evm"
	"paymasterhub/internal/adapters/outbound/chain/svm"
	"paymasterhub/internal/adapters/outbound/docs"
	"paymasterhub/internal/adapters/outbound/locks"
	postgresqlbootstrap "paymasterhub/internal/adapters/outbound/persistence/postgresql/bootstrap"
	postgresqlpaymaster "paymasterhub/internal/adapters/outbound/persistence/postgresql/paymaster"
	postgresqlshared "paymasterhub/internal/adapters/outbound/persistence/postgresql/shared"
	"paymasterhub/internal/adapters/outbound/pricing"
	"paymasterhub/internal/adapters/outbound/redisstore"
	"paymasterhub/internal/adapters/outbound/secrets"
	deterministicwallet "paymasterhub/internal/adapters/outbound/wallet/deterministic"
	webhookhttp "paymasterhub/internal/adapters/outbound/webhook/http"
	"paymasterhub/internal/adapters/outbound/webhook/lognotifier"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/application/use_cases"
	"paymasterhub/internal/domain/policies"
	valueobjects "paymasterhub/internal/domain/value_objects"
	"paymasterhub/internal/infrastructure/config"
	"paymasterhub/internal/infrastructure/httpserver"
	"paymasterhub/internal/infrastructure/scheduler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const redisConnectTimeout = 10 * time.Second

type Container struct {
	Database                     *sql.DB
	SharedStore                  *redisstore.Client
	Server                       *httpserver.Server
	InitializePersistenceUseCase portsin.InitializePersistenceUseCase
	Scheduler                    *scheduler.Scheduler

	RetryFailedDeploymentsUseCase   portsin.RetryFailedDeploymentsUseCase
	RefreshPaymasterBalancesUseCase portsin.RefreshPaymasterBalancesUseCase
	SetPaymasterActiveUseCase       portsin.SetPaymasterActiveUseCase
	GetPaymasterAddressesUseCase    portsin.GetPaymasterAddressesUseCase
}

func Build(cfg config.Config, logger *log.Logger) (Container, error) {
	sharedStore, storeErr := buildSharedStore(cfg, logger)
	if storeErr != nil {
		return Container{}, storeErr
	}
	// A nil *redisstore.Client must not leak into the Store interface.
	var store redisstore.Store
	if sharedStore != nil {
		store = sharedStore
	}

	cipher, cipherErr := secrets.NewXChaChaCipher(cfg.KeyEncryptionSecret)
	if cipherErr != nil {
		return Container{}, fmt.Errorf("key encryption cipher: %s", cipherErr.Message)
	}

	adapters, adapterErr := buildChainAdapters(cfg, logger)
	if adapterErr != nil {
		return Container{}, adapterErr
	}

	clock := use_cases.NewSystemClock()
	notifier := buildAlertNotifier(cfg, logger)
	keyDeriver := deterministicwallet.NewKeyDeriver(cfg.MasterSeed)
	recordLocker := locks.NewRecordLocker()
	deployerLock := locks.NewDeployerLock(locks.DeployerLockConfig{}, store, logger)
	priceOracle := pricing.NewOracle(pricing.Config{
		BaseURL:         cfg.PriceAPIURL,
		RefreshInterval: cfg.PriceRefreshInterval,
	}, store, nil, logger)

	persistenceGateway := postgresqlbootstrap.NewGateway(
		cfg.DatabaseURL,
		cfg.DatabaseTarget,
		cfg.MigrationsPath,
		logger,
	)
	initializePersistenceUseCase := use_cases.NewInitializePersistenceUseCase(persistenceGateway)
	databasePool := postgresqlshared.NewDatabasePool(cfg.DatabaseURL, postgresqlshared.PoolOptions{
		MaxOpenConns: cfg.DatabaseMaxOpenConns,
	}, logger)
	paymasterRepository := postgresqlpaymaster.NewRepository(databasePool, logger)
	balanceRepository := postgresqlpaymaster.NewBalanceRepository(databasePool, logger)

	minFunding := map[valueobjects.ChainCategory]decimal.Decimal{}
	thresholds := map[valueobjects.ChainCategory]policies.BalanceThresholds{}
	for category, categoryCfg := range cfg.Categories {
		minFunding[category] = categoryCfg.MinFunding
		thresholds[category] = policies.BalanceThresholds{
			LowUSD:      categoryCfg.LowBalanceUSD,
			CriticalUSD: categoryCfg.CriticalBalanceUSD,
		}
	}

	deployer := use_cases.NewPaymasterDeployer(use_cases.PaymasterDeployerDeps{
		Repository:   paymasterRepository,
		Adapters:     adapters,
		Cipher:       cipher,
		DeployerLock: deployerLock,
		Notifier:     notifier,
		Clock:        clock,
		Settings: use_cases.DeploymentSettings{
			MinFunding:       minFunding,
			ChainCallTimeout: cfg.ChainCallTimeout,
			RetryPolicy: policies.DeploymentRetryPolicy{
				MaxAttempts:    cfg.RetryMaxAttempts,
				InitialBackoff: cfg.RetryInitialBackoff,
				MaxBackoff:     cfg.RetryMaxBackoff,
			},
		},
		Logger: logger,
	})
	provisionerDeps := use_cases.ProvisionerDeps{
		Repository:        paymasterRepository,
		BalanceRepository: balanceRepository,
		KeyDeriver:        keyDeriver,
		Cipher:            cipher,
		Locker:            recordLocker,
		Deployer:          deployer,
		Clock:             clock,
		IDGenerator:       uuid.NewString,
		Logger:            logger,
	}
	ledgerDeps := use_cases.BalanceLedgerDeps{
		Repository:        paymasterRepository,
		BalanceRepository: balanceRepository,
		Adapters:          adapters,
		PriceOracle:       priceOracle,
		Clock:             clock,
		ChainCallTimeout:  cfg.ChainCallTimeout,
		Logger:            logger,
	}
	retryDeps := use_cases.RetryDeploymentsDeps{
		Repository: paymasterRepository,
		Locker:     recordLocker,
		Deployer:   deployer,
		Clock:      clock,
		Logger:     logger,
	}

	createPaymastersUseCase := use_cases.NewCreatePaymastersUseCase(provisionerDeps)
	addChainSupportUseCase := use_cases.NewAddChainSupportUseCase(provisionerDeps)
	getAddressesUseCase := use_cases.NewGetPaymasterAddressesUseCase(paymasterRepository)
	retryFailedUseCase := use_cases.NewRetryFailedDeploymentsUseCase(retryDeps)
	retryDueUseCase := use_cases.NewRetryDueDeploymentsUseCase(retryDeps)
	cleanupUseCase := use_cases.NewCleanupProjectUseCase(paymasterRepository, recordLocker, logger)
	setActiveUseCase := use_cases.NewSetPaymasterActiveUseCase(paymasterRepository, recordLocker, clock, logger)
	getBalancesUseCase := use_cases.NewGetPaymasterBalancesUseCase(ledgerDeps)
	refreshBalancesUseCase := use_cases.NewRefreshPaymasterBalancesUseCase(ledgerDeps)
	refreshAllBalancesUseCase := use_cases.NewRefreshAllBalancesUseCase(ledgerDeps)
	fundUseCase := use_cases.NewFundPaymasterUseCase(use_cases.FundPaymasterDeps{
		Repository:       paymasterRepository,
		Adapters:         adapters,
		DeployerLock:     deployerLock,
		MinFunding:       minFunding,
		ChainCallTimeout: cfg.ChainCallTimeout,
		Logger:           logger,
	})
	scanLowBalancesUseCase := use_cases.NewScanLowBalancesUseCase(paymasterRepository, balanceRepository, thresholds)
	healthSummaryUseCase := use_cases.NewGetDeploymentHealthSummaryUseCase(paymasterRepository)
	probes := []portsout.DependencyProbe{postgresqlshared.NewDatabaseProbe(databasePool)}
	if sharedStore != nil {
		probes = append(probes, sharedStore)
	}
	healthUseCase := use_cases.NewGetHealthUseCase(probes...)
	openAPIUseCase := use_cases.NewGetOpenAPISpecUseCase(docs.NewFileOpenAPISpecReadModel(cfg.OpenAPISpecPath))

	paymasterScheduler := scheduler.New(scheduler.Config{
		Enabled:                cfg.SchedulerEnabled,
		WorkerID:               cfg.WorkerID,
		BalanceRefreshInterval: cfg.BalanceRefreshInterval,
		LowBalanceScanInterval: cfg.LowBalanceScanInterval,
		HealthCheckInterval:    cfg.HealthCheckInterval,
		RetryInterval:          cfg.RetryInterval,
		RetryBatchSize:         cfg.RetryBatchSize,
		RetryLeaseDuration:     cfg.RetryLeaseDuration,
		AlertCooldown:          cfg.AlertCooldown,
	}, scheduler.Dependencies{
		RefreshAllBalancesUseCase:         refreshAllBalancesUseCase,
		ScanLowBalancesUseCase:            scanLowBalancesUseCase,
		GetDeploymentHealthSummaryUseCase: healthSummaryUseCase,
		RetryDueDeploymentsUseCase:        retryDueUseCase,
		AlertNotifier:                     notifier,
	}, logger)

	router := httpRouter.New(httpRouter.Dependencies{
		HealthController:  controllers.NewHealthController(healthUseCase, healthSummaryUseCase, logger),
		SwaggerController: controllers.NewSwaggerController(openAPIUseCase, logger),
		PaymastersController: controllers.NewPaymastersController(controllers.PaymastersControllerDependencies{
			CreateUseCase:    createPaymastersUseCase,
			AddChainsUseCase: addChainSupportUseCase,
			AddressesUseCase: getAddressesUseCase,
			RetryUseCase:     retryFailedUseCase,
			CleanupUseCase:   cleanupUseCase,
			SetActiveUseCase: setActiveUseCase,
		}, logger),
		BalancesController: controllers.NewBalancesController(getBalancesUseCase, refreshBalancesUseCase, fundUseCase, logger),
	})

	server := httpserver.New(cfg.Address(), router, logger)

	return Container{
		Database:                        databasePool,
		SharedStore:                     sharedStore,
		Server:                          server,
		InitializePersistenceUseCase:    initializePersistenceUseCase,
		Scheduler:                       paymasterScheduler,
		RetryFailedDeploymentsUseCase:   retryFailedUseCase,
		RefreshPaymasterBalancesUseCase: refreshBalancesUseCase,
		SetPaymasterActiveUseCase:       setActiveUseCase,
		GetPaymasterAddressesUseCase:    getAddressesUseCase,
	}, nil
}

// Close releases the database pool and the shared store connection.
func (c Container) Close(logger *log.Logger) {
	if c.Database != nil {
		if err := c.Database.Close(); err != nil && logger != nil {
			logger.Printf("database close warning error=%v", err)
		}
	}
	if c.SharedStore != nil {
		if err := c.SharedStore.Close(); err != nil && logger != nil {
			logger.Printf("shared store close warning error=%v", err)
		}
	}
}

func buildSharedStore(cfg config.Config, logger *log.Logger) (*redisstore.Client, error) {
	if cfg.RedisAddr == "" {
		if logger != nil {
			logger.Printf("shared store disabled, caches and deployer locks stay in-process")
		}
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	client, err := redisstore.NewClient(ctx, cfg.RedisAddr, logger)
	if err != nil {
		return nil, fmt.Errorf("shared store: %w", err)
	}
	return client, nil
}

func buildChainAdapters(cfg config.Config, logger *log.Logger) (portsout.ChainAdapterSet, error) {
	evmAdapter, appErr := evm.NewAdapter(evm.Config{
		RPCURLs:            cfg.RPCURLs,
		Bytecode:           cfg.EVMDeployment.Bytecode,
		EntryPointAddress:  cfg.EVMDeployment.EntryPointAddress,
		DeployerPrivateKey: cfg.Category(valueobjects.ChainCategoryEVM).DeployerPrivateKey,
	}, evm.DialEthclient, logger)
	if appErr != nil {
		return nil, fmt.Errorf("evm adapter code=%s: %s", appErr.Code, appErr.Message)
	}

	svmAdapter, appErr := svm.NewAdapter(svm.Config{
		RPCURLs:             cfg.RPCURLs,
		ProgramID:           cfg.SVMDeployment.ProgramID,
		EntryPointProgramID: cfg.SVMDeployment.EntryPointProgramID,
		DeployerPrivateKey:  cfg.Category(valueobjects.ChainCategorySVM).DeployerPrivateKey,
	}, logger)
	if appErr != nil {
		return nil, fmt.Errorf("svm adapter code=%s: %s", appErr.Code, appErr.Message)
	}

	return portsout.ChainAdapterSet{
		valueobjects.ChainCategoryEVM: evmAdapter,
		valueobjects.ChainCategorySVM: svmAdapter,
	}, nil
}

func buildAlertNotifier(cfg config.Config, logger *log.Logger) portsout.AlertNotifier {
	if cfg.AlertWebhookURL == "" {
		return lognotifier.NewNotifier(logger)
	}

	return webhookhttp.NewGateway(webhookhttp.Config{
		URL:        cfg.AlertWebhookURL,
		HMACSecret: cfg.AlertWebhookHMACSecret,
		Timeout:    cfg.AlertWebhookTimeout,
	})
}
