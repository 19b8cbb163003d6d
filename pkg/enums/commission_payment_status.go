package enums

import "fmt"

// CommissionPaymentStatus maps to the commission_payment_status enum in Postgres.
type CommissionPaymentStatus string

const (
	CommissionPaymentPending   CommissionPaymentStatus = "pending"
	CommissionPaymentPaid      CommissionPaymentStatus = "paid"
	CommissionPaymentOverdue   CommissionPaymentStatus = "overdue"
	CommissionPaymentCancelled CommissionPaymentStatus = "cancelled"
)

var validCommissionPaymentStatuses = []CommissionPaymentStatus{
	CommissionPaymentPending,
	CommissionPaymentPaid,
	CommissionPaymentOverdue,
	CommissionPaymentCancelled,
}

// commissionTransitions lists the allowed targets per source state.
var commissionTransitions = map[CommissionPaymentStatus][]CommissionPaymentStatus{
	CommissionPaymentPending: {CommissionPaymentPaid, CommissionPaymentOverdue, CommissionPaymentCancelled},
	CommissionPaymentOverdue: {CommissionPaymentPaid, CommissionPaymentCancelled},
}

// String implements fmt.Stringer.
func (s CommissionPaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s CommissionPaymentStatus) IsValid() bool {
	for _, candidate := range validCommissionPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s CommissionPaymentStatus) IsTerminal() bool {
	return s == CommissionPaymentPaid || s == CommissionPaymentCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s CommissionPaymentStatus) CanTransitionTo(next CommissionPaymentStatus) bool {
	for _, candidate := range commissionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// SourcesFor returns the states that may transition into target.
func SourcesFor(target CommissionPaymentStatus) []CommissionPaymentStatus {
	var out []CommissionPaymentStatus
	for _, from := range validCommissionPaymentStatuses {
		if from.CanTransitionTo(target) {
			out = append(out, from)
		}
	}
	return out
}

// ParseCommissionPaymentStatus converts raw input into a CommissionPaymentStatus.
func ParseCommissionPaymentStatus(value string) (CommissionPaymentStatus, error) {
	for _, candidate := range validCommissionPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission payment status %q", value)
}
