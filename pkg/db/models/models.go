package models

// All lists every persisted model, in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&CartItem{},
		&WishlistItem{},
		&Review{},
		&Order{},
		&OrderLineItem{},
		&Shipment{},
		&ShipmentTrackingEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
