package enums

import "fmt"

// NotificationType labels customer-facing notification rows.
type NotificationType string

const (
	NotificationPaymentReminder       NotificationType = "payment_reminder"
	NotificationPaymentFailed         NotificationType = "payment_failed"
	NotificationSubscriptionSuspended NotificationType = "subscription_suspended"
	NotificationSubscriptionExpired   NotificationType = "subscription_expired"
)

var validNotificationTypes = []NotificationType{
	NotificationPaymentReminder,
	NotificationPaymentFailed,
	NotificationSubscriptionSuspended,
	NotificationSubscriptionExpired,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is known.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
