package enums

// ReservationStatus tracks the stock hold attached to an order. A hold is
// reserved until payment commits it or expiry/cancellation releases it.
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "reserved"
	ReservationStatusCommitted ReservationStatus = "committed"
	ReservationStatusReleased  ReservationStatus = "released"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusReserved,
	ReservationStatusCommitted,
	ReservationStatusReleased,
}

func (r ReservationStatus) String() string { return string(r) }

func (r ReservationStatus) IsValid() bool { return member(r, validReservationStatuses) }

// Holding reports whether stock is still set aside for the order.
func (r ReservationStatus) Holding() bool { return r == ReservationStatusReserved }

func ParseReservationStatus(value string) (ReservationStatus, error) {
	return parse("reservation status", value, validReservationStatuses, false)
}
