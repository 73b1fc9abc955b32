package workflow

import (
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

func planLine(id, productId int, ordered, allocated, fulfilled string) models.SalesOrderLine {
	return models.SalesOrderLine{
		ID:                id,
		ProductId:         productId,
		QuantityOrdered:   d(ordered),
		QuantityAllocated: d(allocated),
		QuantityFulfilled: d(fulfilled),
	}
}

func TestPlanFulfillment_DeficitDrawnFromAvailable(t *testing.T) {
	// ordered 10, allocated 4, 6 free in the warehouse: shippable is 6,
	// the plan tops the allocation up by 2 and ships 6
	lines := []models.SalesOrderLine{planLine(1, 7, "10", "4", "0")}
	plan := planFulfillment(lines,
		map[int]decimal.Decimal{},
		map[int]decimal.Decimal{7: d("6")})

	if len(plan) != 1 {
		t.Fatalf("plan size = %d, want 1", len(plan))
	}
	if !plan[0].AllocateQty.Equal(d("2")) {
		t.Errorf("allocate = %s, want 2", plan[0].AllocateQty)
	}
	if !plan[0].FulfillQty.Equal(d("6")) {
		t.Errorf("fulfill = %s, want 6", plan[0].FulfillQty)
	}
}

func TestPlanFulfillment_CappedByFreeAllocationAndStock(t *testing.T) {
	// 4 of the 6 allocated units are already held by an open fulfillment
	// and the warehouse is empty: only the 2 free units ship
	lines := []models.SalesOrderLine{planLine(1, 7, "10", "6", "0")}
	plan := planFulfillment(lines,
		map[int]decimal.Decimal{1: d("4")},
		map[int]decimal.Decimal{7: d("0")})

	if len(plan) != 1 {
		t.Fatalf("plan size = %d, want 1", len(plan))
	}
	if !plan[0].AllocateQty.IsZero() {
		t.Errorf("allocate = %s, want 0", plan[0].AllocateQty)
	}
	if !plan[0].FulfillQty.Equal(d("2")) {
		t.Errorf("fulfill = %s, want 2", plan[0].FulfillQty)
	}
}

func TestPlanFulfillment_SharedProductAvailability(t *testing.T) {
	// two lines of the same product must not double-spend the 6 available
	lines := []models.SalesOrderLine{
		planLine(1, 7, "5", "0", "0"),
		planLine(2, 7, "5", "0", "0"),
	}
	plan := planFulfillment(lines,
		map[int]decimal.Decimal{},
		map[int]decimal.Decimal{7: d("6")})

	if len(plan) != 2 {
		t.Fatalf("plan size = %d, want 2", len(plan))
	}
	if !plan[0].FulfillQty.Equal(d("5")) || !plan[0].AllocateQty.Equal(d("5")) {
		t.Errorf("first line = %s/%s, want 5/5", plan[0].AllocateQty, plan[0].FulfillQty)
	}
	if !plan[1].FulfillQty.Equal(d("1")) || !plan[1].AllocateQty.Equal(d("1")) {
		t.Errorf("second line = %s/%s, want 1/1", plan[1].AllocateQty, plan[1].FulfillQty)
	}
}

func TestPlanFulfillment_NothingToShip(t *testing.T) {
	// no outstanding demand on one line, no reachable stock on the other
	lines := []models.SalesOrderLine{
		planLine(1, 7, "6", "6", "0"),
		planLine(2, 8, "5", "0", "0"),
	}
	plan := planFulfillment(lines,
		map[int]decimal.Decimal{},
		map[int]decimal.Decimal{7: d("10"), 8: d("0")})

	if len(plan) != 0 {
		t.Fatalf("plan size = %d, want empty", len(plan))
	}
}
