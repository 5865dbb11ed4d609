package enums

import "fmt"

// RentalStatus maps to the rental_status enum in Postgres.
type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "pending"
	RentalStatusConfirmed RentalStatus = "confirmed"
	RentalStatusCancelled RentalStatus = "cancelled"
	RentalStatusCompleted RentalStatus = "completed"
)

var validRentalStatuses = []RentalStatus{
	RentalStatusPending,
	RentalStatusConfirmed,
	RentalStatusCancelled,
	RentalStatusCompleted,
}

// String implements fmt.Stringer.
func (r RentalStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RentalStatus.
func (r RentalStatus) IsValid() bool {
	for _, candidate := range validRentalStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsActive reports whether the status still holds reserved stock.
func (r RentalStatus) IsActive() bool {
	return r == RentalStatusPending || r == RentalStatusConfirmed
}

// ParseRentalStatus converts raw input into a RentalStatus.
func ParseRentalStatus(value string) (RentalStatus, error) {
	for _, candidate := range validRentalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rental status %q", value)
}
