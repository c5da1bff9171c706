package dto

import "time"

type InitializePersistenceCommand struct {
	ReadinessTimeout       time.Duration
	ReadinessRetryInterval time.Duration
	// SkipMigrations only waits for readiness. Operator tools use it so that
	// schema changes are applied by the long-running runtimes alone.
	SkipMigrations bool
}
