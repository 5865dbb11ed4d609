package enums

import "fmt"

// NotificationKind maps to the notification_kind enum in Postgres and doubles
// as the badge color hint used by the frontend feed.
type NotificationKind string

const (
	NotificationKindInfo    NotificationKind = "info"
	NotificationKindWarning NotificationKind = "warning"
	NotificationKindDanger  NotificationKind = "danger"
	NotificationKindSuccess NotificationKind = "success"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindInfo,
	NotificationKindWarning,
	NotificationKindDanger,
	NotificationKindSuccess,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
