package application

import (
	"context"
	"errors"
	"time"

	"rifei/domain"
	"rifei/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const retryBackoffStep = 25 * time.Millisecond

// withStorageRetry runs fn up to attempts times while it fails with
// domain.ErrStorageConflict, backing off linearly between attempts
func withStorageRetry(ctx context.Context, attempts int, operation string, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrStorageConflict) {
			return err
		}
		if attempt == attempts {
			break
		}

		observability.GetMetrics().RecordStorageRetry(operation)
		log.WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
		}).Debug("Retrying after storage conflict")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoffStep):
		}
	}

	log.WithFields(log.Fields{
		"operation": operation,
		"attempts":  attempts,
	}).Warn("Storage conflict persisted after retries")
	return err
}
