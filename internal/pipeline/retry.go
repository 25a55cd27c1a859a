package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/tourgest/internal/config"
	"github.com/dgallion1/tourgest/internal/store"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *store.RetryableError
	return errors.As(err, &retryErr)
}

// RetryPolicy bounds how often and how long a worker retries a transient
// store error.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultRetryPolicy tries three times, doubling from one second up to thirty.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Base: time.Second, Max: 30 * time.Second}

// RetryPolicyFromConfig reads the STORE_RETRY_* settings, falling back to
// DefaultRetryPolicy for unset or non-positive values.
func RetryPolicyFromConfig(cfg config.Config) RetryPolicy {
	p := DefaultRetryPolicy
	if cfg.StoreMaxRetries > 0 {
		p.Attempts = cfg.StoreMaxRetries
	}
	if cfg.StoreRetryBase > 0 {
		p.Base = cfg.StoreRetryBase
	}
	if cfg.StoreRetryMax > 0 {
		p.Max = cfg.StoreRetryMax
	}
	if p.Max < p.Base {
		p.Max = p.Base
	}
	return p
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.Base
	for i := 0; i < attempt && base < p.Max; i++ {
		base *= 2
	}
	if base > p.Max {
		base = p.Max
	}
	if half := int64(base) / 2; half > 0 {
		return base + time.Duration(rand.Int64N(half))
	}
	return base
}
