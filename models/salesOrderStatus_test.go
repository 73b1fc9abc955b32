package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func qty(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestSalesOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    SalesOrderStatus
		to      SalesOrderStatus
		allowed bool
	}{
		{SalesOrderStatusDraft, SalesOrderStatusConfirmed, true},
		{SalesOrderStatusDraft, SalesOrderStatusCancelled, true},
		{SalesOrderStatusDraft, SalesOrderStatusShipped, false},
		{SalesOrderStatusConfirmed, SalesOrderStatusDraft, true},
		{SalesOrderStatusConfirmed, SalesOrderStatusReserved, true},
		{SalesOrderStatusReserved, SalesOrderStatusPicking, true},
		{SalesOrderStatusPicking, SalesOrderStatusPacked, true},
		{SalesOrderStatusPacked, SalesOrderStatusShipped, true},
		{SalesOrderStatusPartiallyShipped, SalesOrderStatusShipped, true},
		{SalesOrderStatusPartiallyShipped, SalesOrderStatusCancelled, false},
		{SalesOrderStatusShipped, SalesOrderStatusCompleted, true},
		{SalesOrderStatusShipped, SalesOrderStatusDraft, false},
		{SalesOrderStatusCompleted, SalesOrderStatusDraft, false},
		{SalesOrderStatusCancelled, SalesOrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestSalesOrderTerminalStatusesHaveNoExits(t *testing.T) {
	for _, terminal := range []SalesOrderStatus{SalesOrderStatusCompleted, SalesOrderStatusCancelled} {
		if len(salesOrderTransitions[terminal]) != 0 {
			t.Errorf("%s must have no outgoing transitions", terminal)
		}
	}
}

func TestFulfillmentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    FulfillmentStatus
		to      FulfillmentStatus
		allowed bool
	}{
		{FulfillmentStatusPending, FulfillmentStatusPicking, true},
		{FulfillmentStatusPending, FulfillmentStatusShipped, true},
		{FulfillmentStatusPicking, FulfillmentStatusPending, true},
		{FulfillmentStatusPacked, FulfillmentStatusPicking, true},
		{FulfillmentStatusShipped, FulfillmentStatusPending, false},
		{FulfillmentStatusCancelled, FulfillmentStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestDeriveSalesOrderStatus(t *testing.T) {
	active := map[int]bool{1: true, 2: true}

	t.Run("nothing allocated stays confirmed", func(t *testing.T) {
		lines := []SalesOrderLine{{ProductId: 1, QuantityOrdered: qty("5")}}
		if got := deriveSalesOrderStatus(active, lines, nil); got != SalesOrderStatusConfirmed {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("inactive product requires items", func(t *testing.T) {
		lines := []SalesOrderLine{{ProductId: 9, QuantityOrdered: qty("5")}}
		if got := deriveSalesOrderStatus(active, lines, nil); got != SalesOrderStatusRequiresItems {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("partial allocation awaits stock", func(t *testing.T) {
		lines := []SalesOrderLine{{ProductId: 1, QuantityOrdered: qty("5"), QuantityAllocated: qty("2")}}
		if got := deriveSalesOrderStatus(active, lines, nil); got != SalesOrderStatusAwaitingStock {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("full allocation reserves", func(t *testing.T) {
		lines := []SalesOrderLine{
			{ProductId: 1, QuantityOrdered: qty("5"), QuantityAllocated: qty("5")},
			{ProductId: 2, QuantityOrdered: qty("3"), QuantityAllocated: qty("3")},
		}
		if got := deriveSalesOrderStatus(active, lines, nil); got != SalesOrderStatusReserved {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("open fulfillment means picking", func(t *testing.T) {
		lines := []SalesOrderLine{{ProductId: 1, QuantityOrdered: qty("5"), QuantityAllocated: qty("5")}}
		open := []Fulfillment{{CurrentStatus: FulfillmentStatusPicking}}
		if got := deriveSalesOrderStatus(active, lines, open); got != SalesOrderStatusPicking {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("all open fulfillments packed means packed", func(t *testing.T) {
		lines := []SalesOrderLine{{ProductId: 1, QuantityOrdered: qty("5"), QuantityAllocated: qty("5")}}
		open := []Fulfillment{
			{CurrentStatus: FulfillmentStatusPacked},
			{CurrentStatus: FulfillmentStatusPacked},
		}
		if got := deriveSalesOrderStatus(active, lines, open); got != SalesOrderStatusPacked {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("some lines shipped means partially shipped", func(t *testing.T) {
		lines := []SalesOrderLine{
			{ProductId: 1, QuantityOrdered: qty("5"), QuantityFulfilled: qty("5")},
			{ProductId: 2, QuantityOrdered: qty("3")},
		}
		if got := deriveSalesOrderStatus(active, lines, nil); got != SalesOrderStatusPartiallyShipped {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("everything shipped means shipped", func(t *testing.T) {
		lines := []SalesOrderLine{
			{ProductId: 1, QuantityOrdered: qty("5"), QuantityFulfilled: qty("5")},
			{ProductId: 2, QuantityOrdered: qty("3"), QuantityFulfilled: qty("3")},
		}
		if got := deriveSalesOrderStatus(active, lines, nil); got != SalesOrderStatusShipped {
			t.Fatalf("got %s", got)
		}
	})
}
