package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/admin-ops-service/internal/observability"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// DefaultAttempts bounds read-compute-write loops.
const DefaultAttempts = 3

// WithRetry runs a read-compute-CAS cycle until it commits. Only version
// conflicts are retried; after attempts conflicts the result is
// CONCURRENT_MODIFICATION. Any other error is returned as is.
func WithRetry(ctx context.Context, attempts int, operation string, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrVersionConflict) {
			return err
		}
		observability.StoreConflictsTotal.WithLabelValues(operation).Inc()
	}
	return apperrors.NewConcurrentModification(operation, err)
}
