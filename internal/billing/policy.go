package billing

import "time"

// RetryPolicy bounds how hard the system chases a failed subscription payment.
type RetryPolicy struct {
	// MaxAttempts is the failed-payment ceiling. Once a subscription's
	// failure counter reaches it, the subscription is suspended instead of
	// being charged again.
	MaxAttempts int
	// RetryWindow is how long a retry charge stays payable.
	RetryWindow time.Duration
}

// DefaultRetryPolicy matches the configured billing defaults: three strikes,
// 48 hours to pay a retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		RetryWindow: 48 * time.Hour,
	}
}

// ShouldSuspend reports whether a subscription with the given failure count
// has exhausted its attempts.
func (p RetryPolicy) ShouldSuspend(failedCount int) bool {
	return failedCount >= p.MaxAttempts
}
