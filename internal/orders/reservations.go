package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/payloads"
)

// Reservations settles the stock hold attached to an order. Every method runs
// inside the caller's transaction and guards the move with a compare-and-set
// on reservation_status, so a hold is committed or released at most once.
type Reservations struct {
	repo   Repository
	stock  *catalog.Repository
	outbox outboxPublisher
}

// NewReservations wires the reservation settlement helpers.
func NewReservations(repo Repository, stock *catalog.Repository, outbox outboxPublisher) (*Reservations, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Reservations{repo: repo, stock: stock, outbox: outbox}, nil
}

// Release returns every reserved line to available stock and emits
// reservation_released. It reports false when the hold was already settled.
func (r *Reservations) Release(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, actor *outbox.ActorRef) (bool, error) {
	moved, err := r.repo.WithTx(tx).TransitionReservation(ctx, order.ID, enums.ReservationStatusReserved, enums.ReservationStatusReleased)
	if err != nil || !moved {
		return false, err
	}
	if err := catalog.ReleaseAll(ctx, r.stock.WithTx(tx), reservationLines(order)); err != nil {
		return false, err
	}
	order.ReservationStatus = enums.ReservationStatusReleased

	releasedAt := time.Now().UTC()
	return true, r.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReservationReleased,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    releasedAt,
		Data: payloads.ReservationReleasedEvent{
			OrderID:    order.ID,
			Reason:     reason,
			Lines:      eventLines(order),
			ReleasedAt: releasedAt,
		},
	})
}

// Commit consumes the reserved stock of a paid order.
func (r *Reservations) Commit(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error) {
	moved, err := r.repo.WithTx(tx).TransitionReservation(ctx, order.ID, enums.ReservationStatusReserved, enums.ReservationStatusCommitted)
	if err != nil || !moved {
		return false, err
	}
	if err := catalog.CommitAll(ctx, r.stock.WithTx(tx), reservationLines(order)); err != nil {
		return false, err
	}
	order.ReservationStatus = enums.ReservationStatusCommitted
	return true, nil
}

func reservationLines(order *models.Order) []catalog.Line {
	lines := make([]catalog.Line, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		lines = append(lines, catalog.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func eventLines(order *models.Order) []payloads.OrderLine {
	lines := make([]payloads.OrderLine, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}
