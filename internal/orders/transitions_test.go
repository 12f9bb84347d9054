package orders

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, from := range enums.OrderStatuses() {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range enums.OrderStatuses() {
			if CanTransition(from, to) {
				t.Fatalf("terminal status %s must not move to %s", from, to)
			}
		}
		if len(AllowedFrom(from)) != 0 {
			t.Fatalf("expected no allowed statuses from %s", from)
		}
	}
}

func TestNonTerminalStatusesCanMove(t *testing.T) {
	for _, from := range enums.OrderStatuses() {
		if from.IsTerminal() {
			continue
		}
		if len(AllowedFrom(from)) == 0 {
			t.Fatalf("non-terminal status %s has no exits", from)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		ok       bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusReadyToPick, false},
		{enums.OrderStatusConfirmed, enums.OrderStatusCanceled, true},
		{enums.OrderStatusReadyToPick, enums.OrderStatusCanceled, true},
		{enums.OrderStatusPicking, enums.OrderStatusCanceled, false},
		{enums.OrderStatusDelivering, enums.OrderStatusMoneyCollectDelivering, true},
		{enums.OrderStatusMoneyCollectDelivering, enums.OrderStatusDelivered, true},
		{enums.OrderStatusDelivering, enums.OrderStatusDeliveryFail, true},
		{enums.OrderStatusDeliveryFail, enums.OrderStatusWaitingToReturn, true},
		{enums.OrderStatusDeliveryFail, enums.OrderStatusDelivering, false},
		{enums.OrderStatusReturnFail, enums.OrderStatusReturn, true},
		{enums.OrderStatusReturn, enums.OrderStatusReturned, true},
		{enums.OrderStatusPicked, enums.OrderStatusPicking, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestAllowedFromReturnsCopy(t *testing.T) {
	allowed := AllowedFrom(enums.OrderStatusPending)
	allowed[0] = enums.OrderStatusDelivered
	if !CanTransition(enums.OrderStatusPending, enums.OrderStatusConfirmed) {
		t.Fatal("mutating the returned slice must not change the table")
	}
}
