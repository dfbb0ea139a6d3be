package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

// Retry policy for transient "database is locked/busy" conditions. The store
// already waits up to its own busy timeout before surfacing the error; this
// layer then retries the whole operation with exponential backoff and jitter
// so concurrent request threads back off from each other.
const (
	maxRetries     = 5
	retryDelayBase = 100 * time.Millisecond
	retryDelayMax  = time.Second
	retryJitter    = 100 * time.Millisecond
)

// ErrContention is returned once the retry budget is exhausted. The caller
// surfaces it as a transient server failure; the client may resubmit the whole
// operation later.
var ErrContention = errors.New("persistence contention: store busy after retries")

// isBusy reports whether the error is the embedded store rejecting a writer
// because another writer holds the lock. Anything else is not retried.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}

// withRetry drives op up to maxRetries times. Reads pass a single query;
// writes pass their entire transaction, since a failed commit cannot be
// re-driven statement by statement.
func withRetry(op func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			delay := min(retryDelayBase<<attempt+time.Duration(rand.Int63n(int64(retryJitter))), retryDelayMax)
			slog.Warn("store busy, retrying", "attempt", attempt+1, "max", maxRetries, "delay", delay, "error", err)
			time.Sleep(delay)
		}
	}

	slog.Error("store busy, retry budget exhausted", "error", lastErr)
	return fmt.Errorf("%w: %v", ErrContention, lastErr)
}
