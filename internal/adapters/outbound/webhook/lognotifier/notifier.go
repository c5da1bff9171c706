package lognotifier

import (
	"context"
	stdlog "log"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

// Notifier writes alerts to the service log when no webhook is configured.
type Notifier struct {
	logger *stdlog.Logger
}

var _ portsout.AlertNotifier = (*Notifier)(nil)

func NewNotifier(logger *stdlog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) Notify(_ context.Context, event dto.AlertEvent) *apperrors.AppError {
	if n == nil || n.logger == nil {
		return nil
	}

	n.logger.Printf(
		"paymaster alert type=%s severity=%s state=%s project_id=%s category=%s chain=%s message=%q details=%v",
		event.Type,
		event.Severity,
		event.State,
		event.ProjectID,
		event.Category,
		event.Chain,
		event.Message,
		event.Details,
	)
	return nil
}
