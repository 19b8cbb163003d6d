package enums

import "fmt"

// OutboxAggregateType identifies the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateCommissionPayment OutboxAggregateType = "commission_payment"
	AggregateRestaurant        OutboxAggregateType = "restaurant"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCommissionPayment,
	AggregateRestaurant,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a billing event published to Pub/Sub.
type OutboxEventType string

const (
	EventCommissionPaymentCreated   OutboxEventType = "commission_payment_created"
	EventCommissionPaymentOverdue   OutboxEventType = "commission_payment_overdue"
	EventCommissionPaymentPaid      OutboxEventType = "commission_payment_paid"
	EventCommissionPaymentCancelled OutboxEventType = "commission_payment_cancelled"
	EventRestaurantFrozen           OutboxEventType = "restaurant_frozen"
	EventRestaurantUnfrozen         OutboxEventType = "restaurant_unfrozen"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCommissionPaymentCreated,
	EventCommissionPaymentOverdue,
	EventCommissionPaymentPaid,
	EventCommissionPaymentCancelled,
	EventRestaurantFrozen,
	EventRestaurantUnfrozen,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
