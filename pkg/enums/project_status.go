package enums

import "fmt"

// ProjectStatus maps to the project_status enum in Postgres.
type ProjectStatus string

const (
	ProjectStatusPaymentPending ProjectStatus = "payment_pending"
	ProjectStatusQueue          ProjectStatus = "queue"
	ProjectStatusDev            ProjectStatus = "dev"
	ProjectStatusReview         ProjectStatus = "review"
	ProjectStatusDone           ProjectStatus = "done"
	ProjectStatusCancelled      ProjectStatus = "cancelled"
)

var validProjectStatuses = []ProjectStatus{
	ProjectStatusPaymentPending,
	ProjectStatusQueue,
	ProjectStatusDev,
	ProjectStatusReview,
	ProjectStatusDone,
	ProjectStatusCancelled,
}

// String implements fmt.Stringer.
func (p ProjectStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProjectStatus.
func (p ProjectStatus) IsValid() bool {
	for _, candidate := range validProjectStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProjectStatus converts raw input into a ProjectStatus.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	for _, candidate := range validProjectStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid project status %q", value)
}

// ProjectPaymentStatus tracks whether a project's invoice has been covered.
type ProjectPaymentStatus string

const (
	ProjectPaymentStatusUnpaid ProjectPaymentStatus = "unpaid"
	ProjectPaymentStatusPaid   ProjectPaymentStatus = "paid"
)

// String implements fmt.Stringer.
func (p ProjectPaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProjectPaymentStatus.
func (p ProjectPaymentStatus) IsValid() bool {
	return p == ProjectPaymentStatusUnpaid || p == ProjectPaymentStatusPaid
}
