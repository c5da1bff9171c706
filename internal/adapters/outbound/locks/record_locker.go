package locks

import (
	"context"
	"sync"

	portsout "paymasterhub/internal/application/ports/out"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/puzpuzpuz/xsync"
)

const errorCodeLockWaitCancelled = "lock_wait_cancelled"

// RecordLocker serializes work per key inside one process. Keys are never
// evicted; the key space is bounded by (project, category) pairs.
type RecordLocker struct {
	slots *xsync.MapOf[string, chan struct{}]
}

var _ portsout.RecordLocker = (*RecordLocker)(nil)

func NewRecordLocker() *RecordLocker {
	return &RecordLocker{slots: xsync.NewMapOf[chan struct{}]()}
}

func (l *RecordLocker) Lock(ctx context.Context, key string) (func(), *apperrors.AppError) {
	slot, _ := l.slots.LoadOrCompute(key, func() chan struct{} {
		return make(chan struct{}, 1)
	})
	if appErr := acquireSlot(ctx, slot, key); appErr != nil {
		return nil, appErr
	}
	return releaseOnce(slot), nil
}

func acquireSlot(ctx context.Context, slot chan struct{}, key string) *apperrors.AppError {
	select {
	case slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return apperrors.NewUnavailable(
			errorCodeLockWaitCancelled,
			"lock wait cancelled",
			map[string]any{"key": key},
		)
	}
}

func releaseOnce(slot chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}
}
