package enums

import "fmt"

// EstimateStatus maps to the estimate_status enum in Postgres.
type EstimateStatus string

const (
	EstimateStatusDraft          EstimateStatus = "draft"
	EstimateStatusPendingPayment EstimateStatus = "pending_payment"
	EstimateStatusPaid           EstimateStatus = "paid"
	EstimateStatusCancelled      EstimateStatus = "cancelled"
)

var validEstimateStatuses = []EstimateStatus{
	EstimateStatusDraft,
	EstimateStatusPendingPayment,
	EstimateStatusPaid,
	EstimateStatusCancelled,
}

// String implements fmt.Stringer.
func (e EstimateStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EstimateStatus.
func (e EstimateStatus) IsValid() bool {
	for _, candidate := range validEstimateStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEstimateStatus converts raw input into an EstimateStatus.
func ParseEstimateStatus(value string) (EstimateStatus, error) {
	for _, candidate := range validEstimateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid estimate status %q", value)
}
