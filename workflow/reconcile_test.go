package workflow

import (
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestReconcileQuantities_ProgressBands(t *testing.T) {
	// ordered 10, allocated 4, shipped 3, one unit sitting in an open
	// fulfillment, plenty of free stock
	p := ReconcileQuantities(d("10"), d("4"), d("3"), d("1"), d("100"))

	if !p.Outstanding.Equal(d("3")) {
		t.Fatalf("outstanding = %s, want 3", p.Outstanding)
	}
	if p.ReconciliationError {
		t.Fatalf("unexpected reconciliation error")
	}
	if !p.Segments.Shipped.Equal(d("0.3")) {
		t.Errorf("shipped band = %s, want 0.3", p.Segments.Shipped)
	}
	if !p.Segments.InFulfillment.Equal(d("0.1")) {
		t.Errorf("in fulfillment band = %s, want 0.1", p.Segments.InFulfillment)
	}
	if !p.Segments.AllocatedNotPicked.Equal(d("0.3")) {
		t.Errorf("allocated band = %s, want 0.3", p.Segments.AllocatedNotPicked)
	}
}

func TestReconcileQuantities_ShippableCappedByStock(t *testing.T) {
	// outstanding is 6 but only 4 units are reachable (2 allocated + 2 free)
	p := ReconcileQuantities(d("10"), d("2"), d("2"), d("0"), d("2"))

	if !p.Outstanding.Equal(d("6")) {
		t.Fatalf("outstanding = %s, want 6", p.Outstanding)
	}
	if !p.Shippable.Equal(d("4")) {
		t.Fatalf("shippable = %s, want 4", p.Shippable)
	}
}

func TestReconcileQuantities_ShippableCappedByOutstanding(t *testing.T) {
	p := ReconcileQuantities(d("10"), d("4"), d("3"), d("0"), d("100"))

	if !p.Shippable.Equal(d("3")) {
		t.Fatalf("shippable = %s, want 3", p.Shippable)
	}
}

func TestReconcileQuantities_CoverableNow(t *testing.T) {
	// outstanding 6, only 5 available
	p := ReconcileQuantities(d("10"), d("2"), d("2"), d("0"), d("5"))
	if p.CoverableNow {
		t.Fatalf("line with outstanding 6 and 5 available must not be coverable")
	}

	p = ReconcileQuantities(d("10"), d("2"), d("2"), d("0"), d("6"))
	if !p.CoverableNow {
		t.Fatalf("line with outstanding 6 and 6 available must be coverable")
	}

	// fully covered lines stay coverable even with zero free stock
	p = ReconcileQuantities(d("10"), d("5"), d("5"), d("0"), d("0"))
	if !p.CoverableNow {
		t.Fatalf("line with zero outstanding must be coverable")
	}
}

func TestReconcileQuantities_OverAllocationFlagsError(t *testing.T) {
	// allocated + fulfilled exceeds ordered: counters drifted
	p := ReconcileQuantities(d("10"), d("8"), d("5"), d("0"), d("0"))

	if !p.ReconciliationError {
		t.Fatalf("expected reconciliation error")
	}
	if !p.Outstanding.IsZero() {
		t.Fatalf("display outstanding = %s, want clamped 0", p.Outstanding)
	}
	if !p.Shippable.IsZero() {
		t.Fatalf("shippable = %s, want 0", p.Shippable)
	}
}

func TestReconcileQuantities_FullyShipped(t *testing.T) {
	p := ReconcileQuantities(d("5"), d("0"), d("5"), d("0"), d("10"))

	if !p.Outstanding.IsZero() {
		t.Fatalf("outstanding = %s, want 0", p.Outstanding)
	}
	if p.ReconciliationError {
		t.Fatalf("unexpected reconciliation error")
	}
	if !p.Segments.Shipped.Equal(d("1")) {
		t.Fatalf("shipped band = %s, want 1", p.Segments.Shipped)
	}
}

func TestReconcileQuantities_ZeroOrdered(t *testing.T) {
	p := ReconcileQuantities(decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, d("10"))

	if p.ReconciliationError {
		t.Fatalf("unexpected reconciliation error")
	}
	if !p.Segments.Shipped.IsZero() || !p.Segments.InFulfillment.IsZero() || !p.Segments.AllocatedNotPicked.IsZero() {
		t.Fatalf("zero ordered must produce zero bands, got %+v", p.Segments)
	}
}

func TestReconcileSalesOrderLines_MapsByLineAndProduct(t *testing.T) {
	lines := []models.SalesOrderLine{
		{ID: 11, ProductId: 1, Name: "Widget", QuantityOrdered: d("10"), QuantityAllocated: d("4"), QuantityFulfilled: d("3")},
		{ID: 12, ProductId: 2, Name: "Gadget", QuantityOrdered: d("2")},
	}
	held := map[int]decimal.Decimal{11: d("1")}
	available := map[int]decimal.Decimal{1: d("100"), 2: d("0")}

	progress := ReconcileSalesOrderLines(lines, held, available)
	if len(progress) != 2 {
		t.Fatalf("got %d lines, want 2", len(progress))
	}

	first := progress[0]
	if first.SalesOrderLineId != 11 || first.ProductId != 1 || first.Name != "Widget" {
		t.Fatalf("line identity not carried over: %+v", first)
	}
	if !first.QuantityInFulfillment.Equal(d("1")) {
		t.Errorf("held qty = %s, want 1", first.QuantityInFulfillment)
	}

	second := progress[1]
	// nothing allocated and no free stock: nothing shippable
	if !second.Outstanding.Equal(d("2")) || !second.Shippable.IsZero() {
		t.Errorf("second line outstanding=%s shippable=%s, want 2 and 0",
			second.Outstanding, second.Shippable)
	}
}
