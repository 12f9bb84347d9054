package orders

import "github.com/angelmondragon/storefront-backend/pkg/enums"

// transitions lists, for each status, the statuses it may move to. Terminal
// statuses have no entry.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:                {enums.OrderStatusConfirmed, enums.OrderStatusCanceled},
	enums.OrderStatusConfirmed:              {enums.OrderStatusReadyToPick, enums.OrderStatusCanceled},
	enums.OrderStatusReadyToPick:            {enums.OrderStatusPicking, enums.OrderStatusCanceled},
	enums.OrderStatusPicking:                {enums.OrderStatusPicked},
	enums.OrderStatusPicked:                 {enums.OrderStatusDelivering},
	enums.OrderStatusDelivering:             {enums.OrderStatusDelivered, enums.OrderStatusMoneyCollectDelivering, enums.OrderStatusDeliveryFail},
	enums.OrderStatusMoneyCollectDelivering: {enums.OrderStatusDelivered, enums.OrderStatusDeliveryFail},
	enums.OrderStatusDeliveryFail:           {enums.OrderStatusWaitingToReturn},
	enums.OrderStatusWaitingToReturn:        {enums.OrderStatusReturn},
	enums.OrderStatusReturn:                 {enums.OrderStatusReturned, enums.OrderStatusReturnFail},
	enums.OrderStatusReturnFail:             {enums.OrderStatusReturn},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns the statuses reachable from the given status.
func AllowedFrom(from enums.OrderStatus) []enums.OrderStatus {
	next := transitions[from]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}
