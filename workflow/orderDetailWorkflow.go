package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

// SalesOrderDetail is the composed detail view: the order itself, its
// reconciled line progress, and the stock positions and incoming supply for
// exactly the products on the order. Callers refetch it after every mutation
// instead of patching the previous response.
type SalesOrderDetail struct {
	SalesOrder     *models.SalesOrder       `json:"sales_order"`
	Lines          []LineProgress           `json:"lines"`
	Fulfillments   []*models.Fulfillment    `json:"fulfillments"`
	StockPositions []*models.StockPosition  `json:"stock_positions"`
	IncomingSupply []*models.IncomingSupply `json:"incoming_supply"`

	// FullyAllocatable gates the allocate-everything action: every line's
	// outstanding quantity is coverable from available stock right now.
	FullyAllocatable bool `json:"fully_allocatable"`
	// SuggestedDispatchDate is the latest expected arrival among incoming
	// supply for products that are not coverable now. Nil when the order
	// could dispatch immediately or no dated supply is due.
	SuggestedDispatchDate *time.Time `json:"suggested_dispatch_date"`
}

// GetSalesOrderDetail loads the order and batches the stock position and
// incoming supply lookups by the order's product ids, one query each.
func GetSalesOrderDetail(ctx context.Context, salesOrderId int) (*SalesOrderDetail, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	salesOrder, err := models.GetSalesOrder(ctx, salesOrderId)
	if err != nil {
		return nil, err
	}

	productIds := make([]int, 0, len(salesOrder.Lines))
	for _, line := range salesOrder.Lines {
		productIds = append(productIds, line.ProductId)
	}

	warehouseId := salesOrder.WarehouseId
	positions, err := models.GetStockPositions(ctx, productIds, &warehouseId)
	if err != nil {
		return nil, err
	}
	incoming, err := models.GetIncomingSupply(ctx, productIds, &warehouseId)
	if err != nil {
		return nil, err
	}
	fulfillments, err := models.GetFulfillments(ctx, salesOrderId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	heldByLine, err := models.OpenFulfillmentQtyByLine(db.WithContext(ctx), salesOrderId)
	if err != nil {
		return nil, err
	}

	availableByProduct := make(map[int]decimal.Decimal, len(positions))
	for _, position := range positions {
		availableByProduct[position.ProductId] = position.AvailableQty
	}

	lines := ReconcileSalesOrderLines(salesOrder.Lines, heldByLine, availableByProduct)

	fullyAllocatable := len(lines) > 0
	uncovered := make(map[int]bool)
	for _, line := range lines {
		if !line.CoverableNow {
			fullyAllocatable = false
			uncovered[line.ProductId] = true
		}
	}

	var suggested *time.Time
	for _, supply := range incoming {
		if !uncovered[supply.ProductId] || supply.ExpectedDeliveryDate == nil {
			continue
		}
		if suggested == nil || supply.ExpectedDeliveryDate.After(*suggested) {
			suggested = supply.ExpectedDeliveryDate
		}
	}

	return &SalesOrderDetail{
		SalesOrder:            salesOrder,
		Lines:                 lines,
		Fulfillments:          fulfillments,
		StockPositions:        positions,
		IncomingSupply:        incoming,
		FullyAllocatable:      fullyAllocatable,
		SuggestedDispatchDate: suggested,
	}, nil
}
