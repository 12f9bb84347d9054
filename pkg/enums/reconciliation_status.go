package enums

import "fmt"

// ReconciliationStatus tracks a poller registration for an online order.
type ReconciliationStatus string

const (
	ReconciliationPending   ReconciliationStatus = "pending"
	ReconciliationSettled   ReconciliationStatus = "settled"
	ReconciliationAbandoned ReconciliationStatus = "abandoned"
)

var validReconciliationStatuses = []ReconciliationStatus{
	ReconciliationPending,
	ReconciliationSettled,
	ReconciliationAbandoned,
}

// String implements fmt.Stringer.
func (r ReconciliationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReconciliationStatus.
func (r ReconciliationStatus) IsValid() bool {
	for _, candidate := range validReconciliationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReconciliationStatus converts raw input into a ReconciliationStatus.
func ParseReconciliationStatus(value string) (ReconciliationStatus, error) {
	for _, candidate := range validReconciliationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reconciliation status %q", value)
}
