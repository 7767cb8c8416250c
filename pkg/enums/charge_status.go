package enums

import "fmt"

// ChargeStatus tracks the lifecycle of a PIX charge.
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusPaid      ChargeStatus = "paid"
	ChargeStatusCancelled ChargeStatus = "cancelled"
	ChargeStatusExpired   ChargeStatus = "expired"
)

var validChargeStatuses = []ChargeStatus{
	ChargeStatusPending,
	ChargeStatusPaid,
	ChargeStatusCancelled,
	ChargeStatusExpired,
}

// String implements fmt.Stringer.
func (c ChargeStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ChargeStatus) IsValid() bool {
	for _, candidate := range validChargeStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (c ChargeStatus) IsTerminal() bool {
	return c == ChargeStatusPaid || c == ChargeStatusCancelled || c == ChargeStatusExpired
}

// ParseChargeStatus converts raw input into a ChargeStatus.
func ParseChargeStatus(value string) (ChargeStatus, error) {
	for _, candidate := range validChargeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid charge status %q", value)
}
