package shared

import (
	"context"
	"database/sql"

	portsout "paymasterhub/internal/application/ports/out"
)

type DatabaseProbe struct {
	db *sql.DB
}

var _ portsout.DependencyProbe = (*DatabaseProbe)(nil)

func NewDatabaseProbe(db *sql.DB) *DatabaseProbe {
	return &DatabaseProbe{db: db}
}

func (p *DatabaseProbe) Name() string {
	return "database"
}

func (p *DatabaseProbe) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
