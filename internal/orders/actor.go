package orders

import (
	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
)

// Actor is the caller on whose behalf an order operation runs. A nil UserID
// is an anonymous guest.
type Actor struct {
	UserID *uuid.UUID
	Role   enums.UserRole
}

// SystemActor identifies background jobs in cancellation records and events.
const SystemActor = "system"

func (a Actor) IsGuest() bool {
	return a.UserID == nil
}

func (a Actor) IsAdmin() bool {
	return a.UserID != nil && a.Role == enums.UserRoleAdmin
}

// Owns reports whether the caller placed the order.
func (a Actor) Owns(userID *uuid.UUID) bool {
	return a.UserID != nil && userID != nil && *a.UserID == *userID
}

// Ref converts the actor into the outbox envelope form.
func (a Actor) Ref() *outbox.ActorRef {
	role := string(a.Role)
	if a.IsGuest() {
		role = "guest"
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: role}
}

// Label names the actor in cancellation records.
func (a Actor) Label() string {
	if a.UserID == nil {
		return "guest"
	}
	return a.UserID.String()
}
