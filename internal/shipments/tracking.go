package shipments

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/jnt"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/payloads"
)

// TrackingUpdate is one courier scan, from the webhook or a poll.
type TrackingUpdate struct {
	TrackingNumber string
	RawStatus      string
	ScanTime       time.Time
	Location       string
	Description    string
	ScanType       string
}

// ingestAttempts bounds retries when a concurrent scan moves the status
// between the locked read and the write.
const ingestAttempts = 3

// Ingest appends the scan to the shipment history and moves the shipment and
// its order projection forward. Terminal shipments keep their status and a
// scan never moves a shipment backwards. The status decision is made on a
// row read inside the transaction, so concurrent scans cannot regress it.
func (s *service) Ingest(ctx context.Context, update TrackingUpdate) (*ShipmentDTO, error) {
	trackingNumber := strings.TrimSpace(update.TrackingNumber)
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	shipment, err := s.shipments.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	occurredAt := update.ScanTime.UTC()
	if update.ScanTime.IsZero() {
		occurredAt = now
	}
	mapped := jnt.MapStatus(update.RawStatus)
	location := strings.TrimSpace(update.Location)

	var from, next enums.OrderStatus
	for attempt := 1; ; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var applyErr error
			from, next, applyErr = s.applyScan(ctx, tx, shipment, update, mapped, occurredAt, location, now)
			return applyErr
		})
		if !errors.Is(err, errShipmentMoved) || attempt == ingestAttempts {
			break
		}
	}
	if errors.Is(err, errShipmentMoved) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "shipment changed concurrently")
	}
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithTrackingNumber(ctx, trackingNumber), map[string]any{
			"raw_status": update.RawStatus,
			"from":       string(from),
			"to":         string(next),
		})
		if next == from && mapped != from {
			s.logg.Debug(logCtx, "tracking event recorded without status change")
		} else {
			s.logg.Info(logCtx, "tracking event ingested")
		}
	}
	return s.load(ctx, shipment.ID)
}

var errShipmentMoved = errors.New("shipment status moved during ingest")

func (s *service) applyScan(ctx context.Context, tx *gorm.DB, shipment *models.Shipment, update TrackingUpdate, mapped enums.OrderStatus, occurredAt time.Time, location string, now time.Time) (enums.OrderStatus, enums.OrderStatus, error) {
	repo := s.shipments.WithTx(tx)
	current, err := repo.Lock(ctx, shipment.ID)
	if err != nil {
		return "", "", err
	}
	from := current.Status
	next := nextStatus(from, mapped)

	if err := repo.AppendEvent(ctx, &models.ShipmentTrackingEvent{
		ShipmentID:  current.ID,
		OccurredAt:  occurredAt,
		Location:    location,
		Status:      mapped,
		RawStatus:   strings.ToUpper(strings.TrimSpace(update.RawStatus)),
		Description: update.Description,
		ScanType:    update.ScanType,
	}); err != nil {
		return from, next, err
	}

	shipmentUpdates := map[string]any{"last_tracked_at": now}
	orderUpdates := map[string]any{"last_tracked_at": now}
	if next != from {
		shipmentUpdates["status"] = next
	}
	if location != "" {
		shipmentUpdates["current_location"] = location
		orderUpdates["current_location"] = location
	}
	applied, err := repo.UpdateFromStatus(ctx, current.ID, from, shipmentUpdates)
	if err != nil {
		return from, next, err
	}
	if !applied {
		return from, next, errShipmentMoved
	}
	if next == enums.OrderStatusDelivered {
		stamped, err := repo.StampDelivered(ctx, current.ID, occurredAt)
		if err != nil {
			return from, next, err
		}
		if stamped {
			orderUpdates["actual_delivery"] = occurredAt
		}
	}

	orderRepo := s.orders.WithTx(tx)
	order, err := orderRepo.FindByID(ctx, current.OrderID)
	if err != nil {
		return from, next, err
	}
	if order.Status != next && order.Status.CanAdvanceTo(next) {
		orderUpdates["status"] = next
	}
	if err := orderRepo.Update(ctx, order.ID, orderUpdates); err != nil {
		return from, next, err
	}

	return from, next, s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventShipmentStatusChanged,
		AggregateType: enums.AggregateShipment,
		AggregateID:   current.ID,
		Actor:         &outbox.ActorRef{Role: orders.SystemActor},
		OccurredAt:    occurredAt,
		Data: payloads.ShipmentStatusChangedEvent{
			ShipmentID:     current.ID,
			OrderID:        current.OrderID,
			TrackingNumber: current.TrackingNumber,
			RawStatus:      update.RawStatus,
			From:           from,
			To:             next,
			Location:       location,
			OccurredAt:     occurredAt,
		},
	})
}

// nextStatus applies a mapped courier status to the current one.
func nextStatus(current, mapped enums.OrderStatus) enums.OrderStatus {
	if current.CanAdvanceTo(mapped) {
		return mapped
	}
	return current
}

// Track polls the courier and ingests every scan not yet in the history.
func (s *service) Track(ctx context.Context, actor orders.Actor, trackingNumber string) (*ShipmentDTO, error) {
	shipment, err := s.shipments.FindByTrackingNumber(ctx, strings.TrimSpace(trackingNumber))
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		order, err := s.orders.FindByID(ctx, shipment.OrderID)
		if err != nil {
			return nil, err
		}
		if !actor.Owns(order.UserID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shipment belongs to another user")
		}
	}

	result, err := s.courier.Track(ctx, shipment.TrackingNumber)
	if err != nil {
		return nil, courierUnavailable(err, "track shipment")
	}

	seen := make(map[string]struct{}, len(shipment.TrackingEvents))
	for _, ev := range shipment.TrackingEvents {
		seen[scanKey(ev.OccurredAt, ev.RawStatus)] = struct{}{}
	}

	ingested := 0
	// details arrive newest first
	for i := len(result.Details) - 1; i >= 0; i-- {
		ev := result.Details[i]
		scannedAt := jnt.ParseScanTime(ev.ScanTime, time.Time{})
		if scannedAt.IsZero() {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithTrackingNumber(ctx, shipment.TrackingNumber), "skipping scan without a readable time")
			}
			continue
		}
		key := scanKey(scannedAt, ev.Status)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if _, err := s.Ingest(ctx, TrackingUpdate{
			TrackingNumber: shipment.TrackingNumber,
			RawStatus:      ev.Status,
			ScanTime:       scannedAt,
			Location:       ev.Location,
			Description:    ev.Description,
			ScanType:       ev.ScanType,
		}); err != nil {
			return nil, err
		}
		ingested++
	}

	if ingested == 0 {
		if err := s.touch(ctx, shipment); err != nil {
			return nil, err
		}
	}
	return s.load(ctx, shipment.ID)
}

// touch records a poll that produced no new scans.
func (s *service) touch(ctx context.Context, shipment *models.Shipment) error {
	now := s.now().UTC()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.shipments.WithTx(tx).Update(ctx, shipment.ID, map[string]any{"last_tracked_at": now}); err != nil {
			return err
		}
		return s.orders.WithTx(tx).Update(ctx, shipment.OrderID, map[string]any{"last_tracked_at": now})
	})
}

func scanKey(at time.Time, rawStatus string) string {
	return at.UTC().Format(time.RFC3339) + "|" + strings.ToUpper(strings.TrimSpace(rawStatus))
}

// HandleWebhook verifies a courier callback before touching the database and
// ingests it.
func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.courier.VerifyWebhook(body, strings.TrimSpace(signature)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid courier signature").
			WithReason(pkgerrors.ReasonInvalidSignature)
	}
	payload, err := jnt.ParseWebhook(body)
	if err != nil {
		return err
	}
	_, err = s.Ingest(ctx, TrackingUpdate{
		TrackingNumber: payload.BillCode,
		RawStatus:      payload.Status,
		ScanTime:       jnt.ParseScanTime(payload.ScanTime, s.now().UTC()),
		Location:       payload.ScanNetworkName,
		Description:    payload.Desc,
		ScanType:       payload.ScanType,
	})
	return err
}
