package lifecycle

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// Actor is the caller of an order mutation. For riders UserID is the rider id.
type Actor struct {
	UserID  uuid.UUID
	Role    enums.ActorRole
	StoreID *uuid.UUID
}

// SystemActor is used by background jobs.
func SystemActor() Actor {
	return Actor{Role: enums.ActorRoleSystem}
}

var forward = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:        enums.OrderStatusPlaced,
	enums.OrderStatusPlaced:         enums.OrderStatusConfirmed,
	enums.OrderStatusConfirmed:      enums.OrderStatusPreparing,
	enums.OrderStatusPreparing:      enums.OrderStatusReadyForPickup,
	enums.OrderStatusReadyForPickup: enums.OrderStatusAssigned,
	enums.OrderStatusAssigned:       enums.OrderStatusPickedUp,
	enums.OrderStatusPickedUp:       enums.OrderStatusOnTheWay,
	enums.OrderStatusOnTheWay:       enums.OrderStatusDelivered,
}

var (
	kitchenRoles  = roles(enums.ActorRoleAdmin, enums.ActorRoleSystem, enums.ActorRoleStoreManager)
	riderRoles    = roles(enums.ActorRoleAdmin, enums.ActorRoleSystem, enums.ActorRoleRider)
	operatorRoles = roles(enums.ActorRoleAdmin, enums.ActorRoleSystem)
)

// rolesByTarget lists who may move an order into each status.
var rolesByTarget = map[enums.OrderStatus]map[enums.ActorRole]bool{
	enums.OrderStatusPlaced:         kitchenRoles,
	enums.OrderStatusConfirmed:      kitchenRoles,
	enums.OrderStatusPreparing:      kitchenRoles,
	enums.OrderStatusReadyForPickup: kitchenRoles,
	enums.OrderStatusAssigned:       operatorRoles,
	enums.OrderStatusPickedUp:       riderRoles,
	enums.OrderStatusOnTheWay:       riderRoles,
	enums.OrderStatusDelivered:      riderRoles,
	enums.OrderStatusCancelled:      roles(enums.ActorRoleAdmin, enums.ActorRoleSystem, enums.ActorRoleStoreManager, enums.ActorRoleCustomer),
	enums.OrderStatusRejected:       kitchenRoles,
	enums.OrderStatusRefunded:       operatorRoles,
}

func roles(list ...enums.ActorRole) map[enums.ActorRole]bool {
	out := make(map[enums.ActorRole]bool, len(list))
	for _, r := range list {
		out[r] = true
	}
	return out
}

// Next returns the forward successor of status, if any.
func Next(status enums.OrderStatus) (enums.OrderStatus, bool) {
	next, ok := forward[status]
	return next, ok
}

// CanTransition reports whether role may move an order from one status to another.
func CanTransition(from, to enums.OrderStatus, role enums.ActorRole) bool {
	return CheckTransition(from, to, role) == nil
}

// CheckTransition evaluates the transition table. It never touches storage;
// callers run it before any write.
func CheckTransition(from, to enums.OrderStatus, role enums.ActorRole) error {
	deny := func(reason string) error {
		return &InvalidTransitionError{From: from, To: to, Role: role, Reason: reason}
	}
	if !from.IsValid() || !to.IsValid() {
		return deny("unknown status")
	}
	if !rolesByTarget[to][role] {
		return deny("role not permitted to set this status")
	}
	if from == to {
		return deny("order already has this status")
	}
	if to == enums.OrderStatusRefunded {
		if from == enums.OrderStatusDelivered || from == enums.OrderStatusCancelled {
			return nil
		}
		return deny("only delivered or cancelled orders can be refunded")
	}
	if from.IsTerminal() {
		return deny("order is in a terminal status")
	}
	switch to {
	case enums.OrderStatusCancelled:
		if role == enums.ActorRoleCustomer && from != enums.OrderStatusPending && from != enums.OrderStatusPlaced {
			return deny("customers can only cancel before the store confirms")
		}
		return nil
	case enums.OrderStatusRejected:
		if !CanReject(from) {
			return deny("order can no longer be rejected")
		}
		return nil
	}
	if next, ok := forward[from]; !ok || next != to {
		return deny("not the next status")
	}
	return nil
}

// CanReject reports whether the store can still turn the order down.
func CanReject(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPending, enums.OrderStatusPlaced, enums.OrderStatusConfirmed, enums.OrderStatusPreparing:
		return true
	}
	return false
}

// CanAssignRider reports whether a rider can be attached in the current state.
func CanAssignRider(status enums.OrderStatus, riderID *uuid.UUID) bool {
	if riderID != nil && *riderID != uuid.Nil {
		return false
	}
	switch status {
	case enums.OrderStatusCancelled, enums.OrderStatusDelivered, enums.OrderStatusRejected, enums.OrderStatusRefunded:
		return false
	}
	return status.IsValid()
}

// CheckAssign is CanAssignRider plus the role gate for assignment.
func CheckAssign(status enums.OrderStatus, riderID *uuid.UUID, role enums.ActorRole) error {
	deny := func(reason string) error {
		return &InvalidTransitionError{From: status, To: enums.OrderStatusAssigned, Role: role, Reason: reason}
	}
	if !role.IsPrivileged() {
		return deny("role not permitted to assign riders")
	}
	if riderID != nil && *riderID != uuid.Nil {
		return deny("order already has a rider")
	}
	if !CanAssignRider(status, riderID) {
		return deny("order is in a terminal status")
	}
	return nil
}
