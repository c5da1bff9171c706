package config

import (
	"encoding/hex"
	"encoding/json"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	valueobjects "paymasterhub/internal/domain/value_objects"

	"github.com/shopspring/decimal"
)

const (
	defaultPort                     = "8080"
	defaultOpenAPISpec              = "api/openapi.yaml"
	defaultShutdownTimeout          = 10 * time.Second
	defaultDBReadinessTimeout       = 30 * time.Second
	defaultDBReadinessRetryInterval = 2 * time.Second
	defaultMigrationsPath           = "internal/adapters/outbound/persistence/postgresql/migrations"
	defaultPriceAPIURL              = "https://api.coingecko.com/api/v3"
	defaultEVMEntryPoint            = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"

	defaultChainCallTimeout       = 30 * time.Second
	defaultPriceRefreshInterval   = 5 * time.Minute
	defaultBalanceRefreshInterval = 5 * time.Minute
	defaultLowBalanceScanInterval = 10 * time.Minute
	defaultHealthCheckInterval    = 60 * time.Minute
	defaultRetryInterval          = 1 * time.Minute
	defaultRetryMaxAttempts       = 10
	defaultRetryInitialBackoff    = 1 * time.Minute
	defaultRetryMaxBackoff        = 1 * time.Hour
	defaultRetryBatchSize         = 20
	defaultDatabaseMaxOpenConns   = 20
	defaultRetryLease             = 2 * time.Minute
	defaultAlertCooldown          = 30 * time.Minute
	defaultAlertWebhookTimeout    = 5 * time.Second
)

const (
	masterSeedEnv          = "PAYMASTER_MASTER_SEED"
	keyEncryptionSecretEnv = "PAYMASTER_KEY_ENCRYPTION_SECRET"
	rpcURLsEnv             = "PAYMASTER_RPC_URLS_JSON"
)

type ConfigError struct {
	Code     string
	Message  string
	Metadata map[string]string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

// CategoryConfig carries the per-category deployer credential, funding floor and
// alert thresholds. Amounts are native units, thresholds are USD.
type CategoryConfig struct {
	DeployerPrivateKey string
	MinFunding         decimal.Decimal
	LowBalanceUSD      decimal.Decimal
	CriticalBalanceUSD decimal.Decimal
}

type EVMDeploymentConfig struct {
	Bytecode          string
	EntryPointAddress string
}

type SVMDeploymentConfig struct {
	ProgramID           string
	EntryPointProgramID string
}

type Config struct {
	Port                     string
	OpenAPISpecPath          string
	ShutdownTimeout          time.Duration
	DatabaseURL              string
	DatabaseTarget           string
	DBReadinessTimeout       time.Duration
	DBReadinessRetryInterval time.Duration
	MigrationsPath           string
	DatabaseMaxOpenConns     int
	RedisAddr                string

	MasterSeed          []byte
	KeyEncryptionSecret string
	RPCURLs             map[string]string
	Categories          map[valueobjects.ChainCategory]CategoryConfig
	EVMDeployment       EVMDeploymentConfig
	SVMDeployment       SVMDeploymentConfig
	ChainCallTimeout    time.Duration

	PriceAPIURL          string
	PriceRefreshInterval time.Duration

	SchedulerEnabled       bool
	WorkerID               string
	BalanceRefreshInterval time.Duration
	LowBalanceScanInterval time.Duration
	HealthCheckInterval    time.Duration
	RetryInterval          time.Duration
	RetryMaxAttempts       int
	RetryInitialBackoff    time.Duration
	RetryMaxBackoff        time.Duration
	RetryBatchSize         int
	RetryLeaseDuration     time.Duration

	AlertWebhookURL        string
	AlertWebhookHMACSecret string
	AlertWebhookTimeout    time.Duration
	AlertCooldown          time.Duration
}

func LoadConfig() (Config, *ConfigError) {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return Config{}, &ConfigError{
			Code:    "CONFIG_DATABASE_URL_REQUIRED",
			Message: "DATABASE_URL is required",
		}
	}

	databaseTarget, parseErr := parseDatabaseTarget(databaseURL)
	if parseErr != nil {
		return Config{}, parseErr
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	openAPISpecPath := os.Getenv("OPENAPI_SPEC_PATH")
	if openAPISpecPath == "" {
		openAPISpecPath = defaultOpenAPISpec
	}

	migrationsPath := strings.TrimSpace(os.Getenv("DATABASE_MIGRATIONS_PATH"))
	if migrationsPath == "" {
		migrationsPath = defaultMigrationsPath
	}

	masterSeed, seedErr := ParseMasterSeed(os.Getenv(masterSeedEnv))
	if seedErr != nil {
		return Config{}, seedErr
	}

	keyEncryptionSecret := strings.TrimSpace(os.Getenv(keyEncryptionSecretEnv))
	if len(keyEncryptionSecret) < 16 {
		return Config{}, &ConfigError{
			Code:    "CONFIG_KEY_ENCRYPTION_SECRET_REQUIRED",
			Message: keyEncryptionSecretEnv + " is required and must be at least 16 characters",
		}
	}

	rpcURLs, rpcErr := parseRPCURLs(os.Getenv(rpcURLsEnv))
	if rpcErr != nil {
		return Config{}, rpcErr
	}

	evmCategory, categoryErr := loadCategoryConfig("EVM", "0.01", "50", "10")
	if categoryErr != nil {
		return Config{}, categoryErr
	}
	svmCategory, categoryErr := loadCategoryConfig("SVM", "0.05", "25", "5")
	if categoryErr != nil {
		return Config{}, categoryErr
	}

	entryPoint := strings.TrimSpace(os.Getenv("PAYMASTER_EVM_ENTRY_POINT"))
	if entryPoint == "" {
		entryPoint = defaultEVMEntryPoint
	}
	if !valueobjects.IsValidAddress(valueobjects.ChainCategoryEVM, entryPoint) {
		return Config{}, &ConfigError{
			Code:     "CONFIG_EVM_ENTRY_POINT_INVALID",
			Message:  "PAYMASTER_EVM_ENTRY_POINT must be an evm address",
			Metadata: map[string]string{"value": entryPoint},
		}
	}

	svmDeployment := SVMDeploymentConfig{
		ProgramID:           strings.TrimSpace(os.Getenv("PAYMASTER_SVM_PROGRAM_ID")),
		EntryPointProgramID: strings.TrimSpace(os.Getenv("PAYMASTER_SVM_ENTRY_POINT_PROGRAM_ID")),
	}
	for env, value := range map[string]string{
		"PAYMASTER_SVM_PROGRAM_ID":             svmDeployment.ProgramID,
		"PAYMASTER_SVM_ENTRY_POINT_PROGRAM_ID": svmDeployment.EntryPointProgramID,
	} {
		if value != "" && !valueobjects.IsValidAddress(valueobjects.ChainCategorySVM, value) {
			return Config{}, &ConfigError{
				Code:     "CONFIG_SVM_PROGRAM_ID_INVALID",
				Message:  env + " must be a base58 account address",
				Metadata: map[string]string{"env": env},
			}
		}
	}

	priceAPIURL := strings.TrimRight(strings.TrimSpace(os.Getenv("PAYMASTER_PRICE_API_URL")), "/")
	if priceAPIURL == "" {
		priceAPIURL = defaultPriceAPIURL
	}

	durations := map[string]*time.Duration{}
	chainCallTimeout := defaultChainCallTimeout
	priceRefreshInterval := defaultPriceRefreshInterval
	balanceRefreshInterval := defaultBalanceRefreshInterval
	lowBalanceScanInterval := defaultLowBalanceScanInterval
	healthCheckInterval := defaultHealthCheckInterval
	retryInterval := defaultRetryInterval
	retryInitialBackoff := defaultRetryInitialBackoff
	retryMaxBackoff := defaultRetryMaxBackoff
	retryLease := defaultRetryLease
	alertCooldown := defaultAlertCooldown
	durations["PAYMASTER_CHAIN_CALL_TIMEOUT_SECONDS"] = &chainCallTimeout
	durations["PAYMASTER_PRICE_REFRESH_INTERVAL_SECONDS"] = &priceRefreshInterval
	durations["PAYMASTER_BALANCE_REFRESH_INTERVAL_SECONDS"] = &balanceRefreshInterval
	durations["PAYMASTER_LOW_BALANCE_SCAN_INTERVAL_SECONDS"] = &lowBalanceScanInterval
	durations["PAYMASTER_HEALTH_CHECK_INTERVAL_SECONDS"] = &healthCheckInterval
	durations["PAYMASTER_RETRY_INTERVAL_SECONDS"] = &retryInterval
	durations["PAYMASTER_RETRY_INITIAL_BACKOFF_SECONDS"] = &retryInitialBackoff
	durations["PAYMASTER_RETRY_MAX_BACKOFF_SECONDS"] = &retryMaxBackoff
	durations["PAYMASTER_RETRY_LEASE_SECONDS"] = &retryLease
	durations["PAYMASTER_ALERT_COOLDOWN_SECONDS"] = &alertCooldown
	for env, target := range durations {
		parsed, durationErr := parsePositiveSeconds(env, *target)
		if durationErr != nil {
			return Config{}, durationErr
		}
		*target = parsed
	}
	if retryMaxBackoff < retryInitialBackoff {
		return Config{}, &ConfigError{
			Code:    "CONFIG_RETRY_BACKOFF_INVALID",
			Message: "PAYMASTER_RETRY_MAX_BACKOFF_SECONDS must be >= PAYMASTER_RETRY_INITIAL_BACKOFF_SECONDS",
		}
	}

	retryMaxAttempts, intErr := parsePositiveInt("PAYMASTER_RETRY_MAX_ATTEMPTS", defaultRetryMaxAttempts)
	if intErr != nil {
		return Config{}, intErr
	}
	retryBatchSize, intErr := parsePositiveInt("PAYMASTER_RETRY_BATCH_SIZE", defaultRetryBatchSize)
	if intErr != nil {
		return Config{}, intErr
	}
	databaseMaxOpenConns, intErr := parsePositiveInt("DATABASE_MAX_OPEN_CONNS", defaultDatabaseMaxOpenConns)
	if intErr != nil {
		return Config{}, intErr
	}

	schedulerEnabled, boolErr := parseBool("PAYMASTER_SCHEDULER_ENABLED", true)
	if boolErr != nil {
		return Config{}, boolErr
	}

	workerID := strings.TrimSpace(os.Getenv("PAYMASTER_WORKER_ID"))
	if workerID == "" {
		hostname, err := os.Hostname()
		if err != nil || strings.TrimSpace(hostname) == "" {
			hostname = "paymasterhub"
		}
		workerID = hostname
	}

	alertWebhookURL := strings.TrimSpace(os.Getenv("PAYMASTER_ALERT_WEBHOOK_URL"))
	if alertWebhookURL != "" {
		parsed, err := url.Parse(alertWebhookURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return Config{}, &ConfigError{
				Code:    "CONFIG_ALERT_WEBHOOK_URL_INVALID",
				Message: "PAYMASTER_ALERT_WEBHOOK_URL must be an absolute http(s) url",
			}
		}
	}

	return Config{
		Port:                     port,
		OpenAPISpecPath:          openAPISpecPath,
		ShutdownTimeout:          defaultShutdownTimeout,
		DatabaseURL:              databaseURL,
		DatabaseTarget:           databaseTarget,
		DBReadinessTimeout:       defaultDBReadinessTimeout,
		DBReadinessRetryInterval: defaultDBReadinessRetryInterval,
		MigrationsPath:           migrationsPath,
		DatabaseMaxOpenConns:     databaseMaxOpenConns,
		RedisAddr:                strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		MasterSeed:               masterSeed,
		KeyEncryptionSecret:      keyEncryptionSecret,
		RPCURLs:                  rpcURLs,
		Categories: map[valueobjects.ChainCategory]CategoryConfig{
			valueobjects.ChainCategoryEVM: evmCategory,
			valueobjects.ChainCategorySVM: svmCategory,
		},
		EVMDeployment: EVMDeploymentConfig{
			Bytecode:          strings.TrimSpace(os.Getenv("PAYMASTER_EVM_BYTECODE")),
			EntryPointAddress: entryPoint,
		},
		SVMDeployment:          svmDeployment,
		ChainCallTimeout:       chainCallTimeout,
		PriceAPIURL:            priceAPIURL,
		PriceRefreshInterval:   priceRefreshInterval,
		SchedulerEnabled:       schedulerEnabled,
		WorkerID:               workerID,
		BalanceRefreshInterval: balanceRefreshInterval,
		LowBalanceScanInterval: lowBalanceScanInterval,
		HealthCheckInterval:    healthCheckInterval,
		RetryInterval:          retryInterval,
		RetryMaxAttempts:       retryMaxAttempts,
		RetryInitialBackoff:    retryInitialBackoff,
		RetryMaxBackoff:        retryMaxBackoff,
		RetryBatchSize:         retryBatchSize,
		RetryLeaseDuration:     retryLease,
		AlertWebhookURL:        alertWebhookURL,
		AlertWebhookHMACSecret: strings.TrimSpace(os.Getenv("PAYMASTER_ALERT_WEBHOOK_HMAC_SECRET")),
		AlertWebhookTimeout:    defaultAlertWebhookTimeout,
		AlertCooldown:          alertCooldown,
	}, nil
}

func (c Config) Address() string {
	return ":" + c.Port
}

func (c Config) Category(category valueobjects.ChainCategory) CategoryConfig {
	return c.Categories[category]
}

func parseDatabaseTarget(databaseURL string) (string, *ConfigError) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_URL_INVALID",
			Message: "DATABASE_URL is invalid",
		}
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
	default:
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_URL_SCHEME_INVALID",
			Message: "DATABASE_URL must use postgres or postgresql scheme",
		}
	}

	if parsed.Host == "" {
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_URL_HOST_MISSING",
			Message: "DATABASE_URL host is required",
		}
	}

	databaseName := strings.TrimPrefix(parsed.Path, "/")
	if databaseName == "" {
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_NAME_MISSING",
			Message: "DATABASE_URL database name is required",
		}
	}

	return parsed.Host + "/" + databaseName, nil
}

// ParseMasterSeed accepts 0x-prefixed hex or raw text.
func ParseMasterSeed(raw string) ([]byte, *ConfigError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ConfigError{
			Code:    "CONFIG_MASTER_SEED_REQUIRED",
			Message: masterSeedEnv + " is required",
		}
	}

	if strings.HasPrefix(trimmed, "0x") {
		decoded, err := hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
		if err != nil {
			return nil, &ConfigError{
				Code:    "CONFIG_MASTER_SEED_INVALID",
				Message: masterSeedEnv + " hex value is invalid",
			}
		}
		trimmed = string(decoded)
	}

	if len(trimmed) < 16 {
		return nil, &ConfigError{
			Code:    "CONFIG_MASTER_SEED_TOO_SHORT",
			Message: masterSeedEnv + " must carry at least 16 bytes",
		}
	}

	return []byte(trimmed), nil
}

func parseRPCURLs(raw string) (map[string]string, *ConfigError) {
	out := map[string]string{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return out, nil
	}

	entries := map[string]string{}
	if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
		return nil, &ConfigError{
			Code:    "CONFIG_RPC_URLS_INVALID",
			Message: rpcURLsEnv + " must be a json object of chain to url",
		}
	}

	for chain, rawURL := range entries {
		spec, appErr := valueobjects.LookupChain(chain)
		if appErr != nil {
			return nil, &ConfigError{
				Code:     "CONFIG_RPC_URLS_CHAIN_UNSUPPORTED",
				Message:  rpcURLsEnv + " references an unsupported chain",
				Metadata: map[string]string{"chain": chain},
			}
		}
		parsed, err := url.Parse(strings.TrimSpace(rawURL))
		if err != nil || parsed.Host == "" {
			return nil, &ConfigError{
				Code:     "CONFIG_RPC_URL_INVALID",
				Message:  rpcURLsEnv + " contains an invalid url",
				Metadata: map[string]string{"chain": chain},
			}
		}
		out[spec.ID] = strings.TrimSpace(rawURL)
	}

	return out, nil
}

func loadCategoryConfig(prefix, defaultMinFunding, defaultLowUSD, defaultCriticalUSD string) (CategoryConfig, *ConfigError) {
	envPrefix := "PAYMASTER_" + prefix + "_"

	minFunding, err := parseDecimal(envPrefix+"MIN_FUNDING", defaultMinFunding)
	if err != nil {
		return CategoryConfig{}, err
	}
	lowUSD, err := parseDecimal(envPrefix+"LOW_BALANCE_USD", defaultLowUSD)
	if err != nil {
		return CategoryConfig{}, err
	}
	criticalUSD, err := parseDecimal(envPrefix+"CRITICAL_BALANCE_USD", defaultCriticalUSD)
	if err != nil {
		return CategoryConfig{}, err
	}
	if criticalUSD.GreaterThan(lowUSD) {
		return CategoryConfig{}, &ConfigError{
			Code:     "CONFIG_BALANCE_THRESHOLDS_INVALID",
			Message:  envPrefix + "CRITICAL_BALANCE_USD must not exceed " + envPrefix + "LOW_BALANCE_USD",
			Metadata: map[string]string{"category": prefix},
		}
	}

	return CategoryConfig{
		DeployerPrivateKey: strings.TrimSpace(os.Getenv(envPrefix + "DEPLOYER_PRIVATE_KEY")),
		MinFunding:         minFunding,
		LowBalanceUSD:      lowUSD,
		CriticalBalanceUSD: criticalUSD,
	}, nil
}

func parseDecimal(env, fallback string) (decimal.Decimal, *ConfigError) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		raw = fallback
	}

	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		return decimal.Decimal{}, &ConfigError{
			Code:     "CONFIG_DECIMAL_INVALID",
			Message:  env + " must be a non-negative decimal",
			Metadata: map[string]string{"env": env},
		}
	}

	return value, nil
}

func parsePositiveSeconds(env string, fallback time.Duration) (time.Duration, *ConfigError) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, &ConfigError{
			Code:     "CONFIG_DURATION_INVALID",
			Message:  env + " must be a positive integer number of seconds",
			Metadata: map[string]string{"env": env},
		}
	}

	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(env string, fallback int) (int, *ConfigError) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, &ConfigError{
			Code:     "CONFIG_INTEGER_INVALID",
			Message:  env + " must be a positive integer",
			Metadata: map[string]string{"env": env},
		}
	}

	return value, nil
}

func parseBool(env string, fallback bool) (bool, *ConfigError) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigError{
			Code:     "CONFIG_BOOLEAN_INVALID",
			Message:  env + " must be a boolean",
			Metadata: map[string]string{"env": env},
		}
	}

	return value, nil
}
