package enums

import "fmt"

// FinancialRecordStatus mirrors the ledger entry lifecycle.
type FinancialRecordStatus string

const (
	FinancialRecordStatusPending   FinancialRecordStatus = "pending"
	FinancialRecordStatusCompleted FinancialRecordStatus = "completed"
)

var validFinancialRecordStatuses = []FinancialRecordStatus{
	FinancialRecordStatusPending,
	FinancialRecordStatusCompleted,
}

// String implements fmt.Stringer.
func (f FinancialRecordStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is known.
func (f FinancialRecordStatus) IsValid() bool {
	for _, candidate := range validFinancialRecordStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFinancialRecordStatus converts raw input into a FinancialRecordStatus.
func ParseFinancialRecordStatus(value string) (FinancialRecordStatus, error) {
	for _, candidate := range validFinancialRecordStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid financial record status %q", value)
}
