package enums

import "fmt"

// BatchStatus is the lifecycle status of a stock batch.
type BatchStatus string

const (
	BatchStatusNotStarted   BatchStatus = "not_started"
	BatchStatusActive       BatchStatus = "active"
	BatchStatusPaused       BatchStatus = "paused"
	BatchStatusSoldOut      BatchStatus = "sold_out"
	BatchStatusExpired      BatchStatus = "expired"
	BatchStatusDiscontinued BatchStatus = "discontinued"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusNotStarted,
	BatchStatusActive,
	BatchStatusPaused,
	BatchStatusSoldOut,
	BatchStatusExpired,
	BatchStatusDiscontinued,
}

// String implements fmt.Stringer.
func (b BatchStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BatchStatus.
func (b BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the batch can never change status again.
func (b BatchStatus) IsTerminal() bool {
	return b == BatchStatusSoldOut || b == BatchStatusExpired || b == BatchStatusDiscontinued
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
