package enums

import (
	"fmt"
	"time"
)

// BillingInterval defines the cadence for a billing plan.
type BillingInterval string

const (
	BillingIntervalWeekly   BillingInterval = "weekly"
	BillingIntervalBiweekly BillingInterval = "biweekly"
	BillingIntervalMonthly  BillingInterval = "monthly"
)

var validBillingIntervals = []BillingInterval{
	BillingIntervalWeekly,
	BillingIntervalBiweekly,
	BillingIntervalMonthly,
}

// String implements fmt.Stringer.
func (b BillingInterval) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingInterval.
func (b BillingInterval) IsValid() bool {
	for _, candidate := range validBillingIntervals {
		if candidate == b {
			return true
		}
	}
	return false
}

// Advance returns the next billing date anchored to the provided one.
// Monthly plans use a calendar-month add so a billing day survives late sweeps.
func (b BillingInterval) Advance(from time.Time) time.Time {
	switch b {
	case BillingIntervalWeekly:
		return from.AddDate(0, 0, 7)
	case BillingIntervalBiweekly:
		return from.AddDate(0, 0, 14)
	case BillingIntervalMonthly:
		return from.AddDate(0, 1, 0)
	}
	return from.AddDate(0, 1, 0)
}

// ParseBillingInterval converts raw input into a BillingInterval.
func ParseBillingInterval(value string) (BillingInterval, error) {
	for _, candidate := range validBillingIntervals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing interval %q", value)
}
