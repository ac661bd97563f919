package jnt

import (
	"strings"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
)

var statusTable = map[string]enums.OrderStatus{
	"CREATED":          enums.OrderStatusPending,
	"PICKUP":           enums.OrderStatusProcessing,
	"IN_TRANSIT":       enums.OrderStatusShipped,
	"OUT_FOR_DELIVERY": enums.OrderStatusOutForDelivery,
	"DELIVERED":        enums.OrderStatusDelivered,
	"FAILED":           enums.OrderStatusFailed,
	"RETURNED":         enums.OrderStatusReturned,
	"CANCELLED":        enums.OrderStatusCancelled,
}

// MapStatus translates a courier status code. Unknown codes map to processing
// so they can never reach a terminal state.
func MapStatus(code string) enums.OrderStatus {
	if status, ok := statusTable[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return status
	}
	return enums.OrderStatusProcessing
}
