package enums

import "fmt"

// OrderStatus is the fulfillment status shared by orders and shipments.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturned       OrderStatus = "returned"
	OrderStatusFailed         OrderStatus = "failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
	OrderStatusFailed,
}

// forward progression; side branches have no rank.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:        1,
	OrderStatusProcessing:     2,
	OrderStatusConfirmed:      3,
	OrderStatusShipped:        4,
	OrderStatusOutForDelivery: 5,
	OrderStatusDelivered:      6,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// Rank returns the position of s on the forward path, or 0 for side branches.
func (s OrderStatus) Rank() int {
	return orderStatusRank[s]
}

// CanAdvanceTo reports whether moving from s to next is a forward move.
// Side branches are reachable from any non-terminal status.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s == next || s.IsTerminal() || !next.IsValid() {
		return false
	}
	if next.Rank() == 0 {
		return true
	}
	return next.Rank() > s.Rank()
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
