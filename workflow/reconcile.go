package workflow

import (
	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

// ProgressSegments splits one order line's ordered quantity into the three
// bands shown on the fulfillment progress bar. Each value is a fraction of
// the ordered quantity in [0,1] and the three never sum past 1.
type ProgressSegments struct {
	Shipped            decimal.Decimal `json:"shipped"`
	InFulfillment      decimal.Decimal `json:"in_fulfillment"`
	AllocatedNotPicked decimal.Decimal `json:"allocated_not_picked"`
}

// LineProgress is the reconciled view of one sales order line.
// Outstanding is clamped at zero for display, a negative raw value flips
// ReconciliationError instead of leaking into the UI.
type LineProgress struct {
	SalesOrderLineId      int              `json:"sales_order_line_id"`
	ProductId             int              `json:"product_id"`
	Name                  string           `json:"name"`
	QuantityOrdered       decimal.Decimal  `json:"quantity_ordered"`
	QuantityAllocated     decimal.Decimal  `json:"quantity_allocated"`
	QuantityFulfilled     decimal.Decimal  `json:"quantity_fulfilled"`
	QuantityInFulfillment decimal.Decimal  `json:"quantity_in_fulfillment"`
	Outstanding           decimal.Decimal  `json:"outstanding"`
	Shippable             decimal.Decimal  `json:"shippable"`
	CoverableNow          bool             `json:"coverable_now"`
	ReconciliationError   bool             `json:"reconciliation_error"`
	Segments              ProgressSegments `json:"segments"`
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func fractionOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	f := clampNonNegative(part).Div(whole)
	if f.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return f
}

// ReconcileQuantities derives the outstanding quantity and progress segments
// from the line counters.
//
//	outstanding = ordered - allocated - fulfilled
//	shippable   = min(outstanding, allocated + availableNow)
//
// inFulfillment is the slice of the allocation currently held by open
// fulfillments, so the allocated band splits into picked and not picked.
func ReconcileQuantities(ordered, allocated, fulfilled, inFulfillment, availableNow decimal.Decimal) LineProgress {
	rawOutstanding := ordered.Sub(allocated).Sub(fulfilled)

	shippable := allocated.Add(availableNow)
	if rawOutstanding.LessThan(shippable) {
		shippable = rawOutstanding
	}

	allocatedNotPicked := allocated.Sub(inFulfillment)

	return LineProgress{
		QuantityOrdered:       ordered,
		QuantityAllocated:     allocated,
		QuantityFulfilled:     fulfilled,
		QuantityInFulfillment: inFulfillment,
		Outstanding:           clampNonNegative(rawOutstanding),
		Shippable:             clampNonNegative(shippable),
		CoverableNow:          availableNow.GreaterThanOrEqual(clampNonNegative(rawOutstanding)),
		ReconciliationError:   rawOutstanding.IsNegative(),
		Segments: ProgressSegments{
			Shipped:            fractionOf(fulfilled, ordered),
			InFulfillment:      fractionOf(inFulfillment, ordered),
			AllocatedNotPicked: fractionOf(allocatedNotPicked, ordered),
		},
	}
}

// ReconcileSalesOrderLines reconciles every line of an order.
// heldByLine comes from models.OpenFulfillmentQtyByLine, availableByProduct
// from the stock positions of the order's products. Missing map entries mean
// zero.
func ReconcileSalesOrderLines(lines []models.SalesOrderLine,
	heldByLine map[int]decimal.Decimal,
	availableByProduct map[int]decimal.Decimal) []LineProgress {

	progress := make([]LineProgress, 0, len(lines))
	for _, line := range lines {
		p := ReconcileQuantities(
			line.QuantityOrdered,
			line.QuantityAllocated,
			line.QuantityFulfilled,
			heldByLine[line.ID],
			availableByProduct[line.ProductId],
		)
		p.SalesOrderLineId = line.ID
		p.ProductId = line.ProductId
		p.Name = line.Name
		progress = append(progress, p)
	}
	return progress
}
