package enums

import "fmt"

// AppointmentPaymentStatus tracks whether a booked appointment has been paid.
type AppointmentPaymentStatus string

const (
	AppointmentPaymentStatusUnpaid AppointmentPaymentStatus = "unpaid"
	AppointmentPaymentStatusPaid   AppointmentPaymentStatus = "paid"
)

var validAppointmentPaymentStatuses = []AppointmentPaymentStatus{
	AppointmentPaymentStatusUnpaid,
	AppointmentPaymentStatusPaid,
}

// String implements fmt.Stringer.
func (a AppointmentPaymentStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a AppointmentPaymentStatus) IsValid() bool {
	for _, candidate := range validAppointmentPaymentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAppointmentPaymentStatus converts raw input into an AppointmentPaymentStatus.
func ParseAppointmentPaymentStatus(value string) (AppointmentPaymentStatus, error) {
	for _, candidate := range validAppointmentPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid appointment payment status %q", value)
}
