package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

// Allocation procedures. Every mutating procedure takes a request key the
// client generates fresh per attempt and reuses only when retrying that
// attempt: a retried key replays the stored result instead of allocating
// twice. All stock movement runs under the per-business stock lock.

const (
	OpAllocateInventoryAndConfirmOrder = "allocate_inventory_and_confirm_order"
	OpAllocateLineItem                 = "allocate_line_item"
	OpRevertLineAllocation             = "revert_line_allocation"
	OpCreateFulfillmentAndReallocate   = "create_fulfillment_and_reallocate"
)

// runAllocationProcedure wraps one procedure in the business stock lock, a DB
// transaction and the idempotency envelope. fn returns the payload that gets
// stored for replay.
func runAllocationProcedure(ctx context.Context, operationName, requestKey string,
	fn func(tx *gorm.DB, businessId string) (interface{}, error)) Result {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return Err(ErrCodeValidation, "business id is required")
	}
	if requestKey == "" {
		return Err(ErrCodeValidation, "request key is required")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stock", "allocationWorkflow.go", operationName)
	if err != nil {
		return Err(ErrCodeConflict, err.Error())
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Err(ErrCodeInternal, tx.Error.Error())
	}
	if err := acquireBusinessStockLock(tx, businessId); err != nil {
		tx.Rollback()
		return Err(ErrCodeConflict, err.Error())
	}
	rollback := func() {
		releaseBusinessStockLock(tx, businessId)
		tx.Rollback()
	}

	replay, err := BeginIdempotency(tx, businessId, operationName, requestKey)
	if err != nil {
		rollback()
		if errors.Is(err, ErrIdempotencyInProgress) {
			return Err(ErrCodeInProgress, "a previous attempt with this request key is still running")
		}
		return Err(ErrCodeInternal, err.Error())
	}
	if replay != nil {
		rollback()
		var stored Result
		if len(replay.Response) > 0 {
			if err := json.Unmarshal(replay.Response, &stored); err == nil {
				return stored
			}
		}
		return Err(ErrCodeInternal, "stored response for this request key is unreadable")
	}

	payload, opErr := fn(tx, businessId)
	if opErr != nil {
		rollback()
		// Best effort, only matters when the key row survived a takeover.
		_ = MarkIdempotencyFailed(db.WithContext(ctx), businessId, operationName, requestKey, opErr)
		return ErrFrom(opErr)
	}

	result := Ok(payload)
	response, err := json.Marshal(result)
	if err != nil {
		rollback()
		return Err(ErrCodeInternal, err.Error())
	}
	if err := MarkIdempotencySucceeded(tx, businessId, operationName, requestKey, response); err != nil {
		rollback()
		return Err(ErrCodeInternal, err.Error())
	}
	releaseBusinessStockLock(tx, businessId)
	if err := tx.Commit().Error; err != nil {
		return Err(ErrCodeInternal, err.Error())
	}
	return result
}

func fetchSalesOrderForAllocation(tx *gorm.DB, businessId string, salesOrderId int) (*models.SalesOrder, error) {
	var salesOrder models.SalesOrder
	err := tx.Preload("Lines").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, salesOrderId).
		First(&salesOrder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewProcedureError(ErrCodeNotFound, "sales order not found")
		}
		return nil, err
	}
	return &salesOrder, nil
}

func fetchLineForAllocation(tx *gorm.DB, businessId string, salesOrderLineId int) (*models.SalesOrderLine, *models.SalesOrder, error) {
	var line models.SalesOrderLine
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&line, salesOrderLineId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NewProcedureError(ErrCodeNotFound, "sales order line not found")
		}
		return nil, nil, err
	}

	var salesOrder models.SalesOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, line.SalesOrderId).
		First(&salesOrder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NewProcedureError(ErrCodeNotFound, "sales order not found")
		}
		return nil, nil, err
	}
	return &line, &salesOrder, nil
}

func checkOrderAllocatable(salesOrder *models.SalesOrder) error {
	if salesOrder.CurrentStatus == models.SalesOrderStatusDraft {
		return NewProcedureError(ErrCodeConflict, "confirm the sales order before allocating")
	}
	if salesOrder.CurrentStatus.IsTerminal() {
		return NewProcedureError(ErrCodeConflict,
			fmt.Sprintf("sales order %s is %s", salesOrder.OrderNumber, salesOrder.CurrentStatus))
	}
	return nil
}

// allocateToLine moves qty from available to committed for the line's
// product and bumps the line's allocation. qty must already be validated.
func allocateToLine(tx *gorm.DB, businessId string, warehouseId int, line *models.SalesOrderLine, qty decimal.Decimal) error {
	if qty.IsZero() {
		return nil
	}
	line.QuantityAllocated = line.QuantityAllocated.Add(qty)
	if err := tx.Save(line).Error; err != nil {
		return err
	}
	return models.UpdateStockSummaryCommittedQty(tx, businessId, warehouseId, line.ProductId, qty)
}

type LineAllocationResult struct {
	SalesOrderLineId  int             `json:"sales_order_line_id"`
	ProductId         int             `json:"product_id"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
	QuantityAllocated decimal.Decimal `json:"quantity_allocated"`
	Outstanding       decimal.Decimal `json:"outstanding"`
}

type OrderAllocationPayload struct {
	SalesOrder *models.SalesOrder     `json:"sales_order"`
	Lines      []LineAllocationResult `json:"lines"`
}

// AllocateInventoryAndConfirmOrder confirms a draft order and reserves as
// much stock as the warehouse has for every line. Lines that cannot be fully
// covered stay partially allocated and the derived status reflects it.
func AllocateInventoryAndConfirmOrder(ctx context.Context, salesOrderId int, requestKey string) Result {
	return runAllocationProcedure(ctx, OpAllocateInventoryAndConfirmOrder, requestKey,
		func(tx *gorm.DB, businessId string) (interface{}, error) {
			salesOrder, err := fetchSalesOrderForAllocation(tx, businessId, salesOrderId)
			if err != nil {
				return nil, err
			}
			if salesOrder.CurrentStatus.IsTerminal() {
				return nil, NewProcedureError(ErrCodeConflict,
					fmt.Sprintf("sales order %s is %s", salesOrder.OrderNumber, salesOrder.CurrentStatus))
			}
			if salesOrder.CurrentStatus == models.SalesOrderStatusDraft {
				if err := tx.Model(salesOrder).Update("CurrentStatus", models.SalesOrderStatusConfirmed).Error; err != nil {
					return nil, err
				}
				salesOrder.CurrentStatus = models.SalesOrderStatusConfirmed
			}

			productIds := make([]int, 0, len(salesOrder.Lines))
			for _, line := range salesOrder.Lines {
				productIds = append(productIds, line.ProductId)
			}
			if err := models.BulkLockStockSummary(tx, businessId, salesOrder.WarehouseId, productIds); err != nil {
				return nil, err
			}

			results := make([]LineAllocationResult, 0, len(salesOrder.Lines))
			for i := range salesOrder.Lines {
				line := &salesOrder.Lines[i]

				outstanding := line.QuantityOrdered.Sub(line.QuantityAllocated).Sub(line.QuantityFulfilled)
				if outstanding.IsNegative() {
					return nil, NewProcedureError(ErrCodeReconciliation,
						fmt.Sprintf("line %d has negative outstanding quantity", line.ID))
				}

				summary, _, err := models.FirstOrCreateStockSummary(tx, businessId, salesOrder.WarehouseId, line.ProductId)
				if err != nil {
					return nil, err
				}
				available := summary.AvailableQty()

				qty := outstanding
				if available.LessThan(qty) {
					qty = available
				}
				if qty.IsNegative() {
					qty = decimal.Zero
				}
				if err := allocateToLine(tx, businessId, salesOrder.WarehouseId, line, qty); err != nil {
					return nil, err
				}
				results = append(results, LineAllocationResult{
					SalesOrderLineId:  line.ID,
					ProductId:         line.ProductId,
					QuantityRequested: outstanding,
					QuantityAllocated: qty,
					Outstanding:       outstanding.Sub(qty),
				})
			}

			refreshed, err := models.RefreshSalesOrderStatus(tx, businessId, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			return &OrderAllocationPayload{SalesOrder: refreshed, Lines: results}, nil
		})
}

type LineAllocationPayload struct {
	SalesOrderLine *models.SalesOrderLine `json:"sales_order_line"`
	OrderStatus    models.SalesOrderStatus `json:"order_status"`
}

// AllocateLineItem reserves an explicit quantity on one line. The quantity
// must fit both the line's outstanding quantity and the stock available in
// the order's warehouse.
func AllocateLineItem(ctx context.Context, salesOrderLineId int, quantity decimal.Decimal, requestKey string) Result {
	return runAllocationProcedure(ctx, OpAllocateLineItem, requestKey,
		func(tx *gorm.DB, businessId string) (interface{}, error) {
			if quantity.LessThanOrEqual(decimal.Zero) {
				return nil, NewProcedureError(ErrCodeValidation, "quantity must be positive")
			}

			line, salesOrder, err := fetchLineForAllocation(tx, businessId, salesOrderLineId)
			if err != nil {
				return nil, err
			}
			if err := checkOrderAllocatable(salesOrder); err != nil {
				return nil, err
			}

			outstanding := line.QuantityOrdered.Sub(line.QuantityAllocated).Sub(line.QuantityFulfilled)
			if outstanding.IsNegative() {
				return nil, NewProcedureError(ErrCodeReconciliation,
					fmt.Sprintf("line %d has negative outstanding quantity", line.ID))
			}
			if quantity.GreaterThan(outstanding) {
				return nil, NewProcedureError(ErrCodeValidation,
					fmt.Sprintf("quantity exceeds outstanding %s for %s", outstanding, line.Name))
			}

			summary, _, err := models.FirstOrCreateStockSummary(tx, businessId, salesOrder.WarehouseId, line.ProductId)
			if err != nil {
				return nil, err
			}
			if quantity.GreaterThan(summary.AvailableQty()) {
				return nil, NewProcedureError(ErrCodeInsufficient,
					fmt.Sprintf("only %s available for %s", summary.AvailableQty(), line.Name))
			}

			if err := allocateToLine(tx, businessId, salesOrder.WarehouseId, line, quantity); err != nil {
				return nil, err
			}

			refreshed, err := models.RefreshSalesOrderStatus(tx, businessId, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			return &LineAllocationPayload{SalesOrderLine: line, OrderStatus: refreshed.CurrentStatus}, nil
		})
}

type RevertAllocationPayload struct {
	SalesOrderLine   *models.SalesOrderLine  `json:"sales_order_line"`
	QuantityReleased decimal.Decimal         `json:"quantity_released"`
	OrderStatus      models.SalesOrderStatus `json:"order_status"`
}

// RevertLineAllocation releases the allocation a line holds back to available
// stock. Quantity held by open fulfillments stays allocated, cancel or ship
// those fulfillments first.
func RevertLineAllocation(ctx context.Context, salesOrderLineId int, requestKey string) Result {
	return runAllocationProcedure(ctx, OpRevertLineAllocation, requestKey,
		func(tx *gorm.DB, businessId string) (interface{}, error) {
			line, salesOrder, err := fetchLineForAllocation(tx, businessId, salesOrderLineId)
			if err != nil {
				return nil, err
			}
			if salesOrder.CurrentStatus.IsTerminal() {
				return nil, NewProcedureError(ErrCodeConflict,
					fmt.Sprintf("sales order %s is %s", salesOrder.OrderNumber, salesOrder.CurrentStatus))
			}

			heldByLine, err := models.OpenFulfillmentQtyByLine(tx, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			releasable := line.QuantityAllocated.Sub(heldByLine[line.ID])
			if releasable.IsNegative() {
				return nil, NewProcedureError(ErrCodeReconciliation,
					fmt.Sprintf("line %d holds less allocation than its open fulfillments", line.ID))
			}

			if releasable.IsPositive() {
				if err := models.BulkLockStockSummary(tx, businessId, salesOrder.WarehouseId, []int{line.ProductId}); err != nil {
					return nil, err
				}
				if err := allocateToLine(tx, businessId, salesOrder.WarehouseId, line, releasable.Neg()); err != nil {
					return nil, err
				}
			}

			refreshed, err := models.RefreshSalesOrderStatus(tx, businessId, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			return &RevertAllocationPayload{
				SalesOrderLine:   line,
				QuantityReleased: releasable,
				OrderStatus:      refreshed.CurrentStatus,
			}, nil
		})
}

type FulfillmentPayload struct {
	Fulfillment   *models.Fulfillment    `json:"fulfillment"`
	SalesOrder    *models.SalesOrder     `json:"sales_order"`
	Reallocated   []LineAllocationResult `json:"reallocated"`
	NothingToShip bool                   `json:"nothing_to_ship"`
}

// topUpOrderAllocation re-reads the order's lines and allocates whatever
// outstanding quantity the warehouse can still cover, so the next pick can
// start immediately. Caller holds the stock summary locks.
func topUpOrderAllocation(tx *gorm.DB, businessId string, salesOrderId int) ([]LineAllocationResult, error) {
	salesOrder, err := fetchSalesOrderForAllocation(tx, businessId, salesOrderId)
	if err != nil {
		return nil, err
	}

	reallocated := make([]LineAllocationResult, 0)
	for i := range salesOrder.Lines {
		line := &salesOrder.Lines[i]

		outstanding := line.QuantityOrdered.Sub(line.QuantityAllocated).Sub(line.QuantityFulfilled)
		if outstanding.LessThanOrEqual(decimal.Zero) {
			continue
		}
		summary, _, err := models.FirstOrCreateStockSummary(tx, businessId, salesOrder.WarehouseId, line.ProductId)
		if err != nil {
			return nil, err
		}
		qty := outstanding
		if summary.AvailableQty().LessThan(qty) {
			qty = summary.AvailableQty()
		}
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if err := allocateToLine(tx, businessId, salesOrder.WarehouseId, line, qty); err != nil {
			return nil, err
		}
		reallocated = append(reallocated, LineAllocationResult{
			SalesOrderLineId:  line.ID,
			ProductId:         line.ProductId,
			QuantityRequested: outstanding,
			QuantityAllocated: qty,
			Outstanding:       outstanding.Sub(qty),
		})
	}
	return reallocated, nil
}

// CreateFulfillmentAndReallocate creates a fulfillment that holds part of the
// order's allocation, then tops the order's lines back up from whatever stock
// is still available so the next pick can start immediately.
func CreateFulfillmentAndReallocate(ctx context.Context, input *models.NewFulfillment, requestKey string) Result {
	return runAllocationProcedure(ctx, OpCreateFulfillmentAndReallocate, requestKey,
		func(tx *gorm.DB, businessId string) (interface{}, error) {
			if input == nil {
				return nil, NewProcedureError(ErrCodeValidation, "fulfillment input is required")
			}

			fulfillment, err := models.CreateFulfillmentTx(tx, ctx, businessId, input)
			if err != nil {
				return nil, NewProcedureError(ErrCodeValidation, err.Error())
			}

			salesOrder, err := fetchSalesOrderForAllocation(tx, businessId, input.SalesOrderId)
			if err != nil {
				return nil, err
			}
			productIds := make([]int, 0, len(salesOrder.Lines))
			for _, line := range salesOrder.Lines {
				productIds = append(productIds, line.ProductId)
			}
			if err := models.BulkLockStockSummary(tx, businessId, salesOrder.WarehouseId, productIds); err != nil {
				return nil, err
			}

			reallocated, err := topUpOrderAllocation(tx, businessId, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			refreshed, err := models.RefreshSalesOrderStatus(tx, businessId, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			return &FulfillmentPayload{
				Fulfillment: fulfillment,
				SalesOrder:  refreshed,
				Reallocated: reallocated,
			}, nil
		})
}

// fulfillPlanLine is one line of a fulfill-order plan: how much extra
// allocation to draw from available stock and how much goes on the
// fulfillment.
type fulfillPlanLine struct {
	SalesOrderLineId int
	ProductId        int
	AllocateQty      decimal.Decimal
	FulfillQty       decimal.Decimal
}

// planFulfillment decides per line what ships now. The shippable quantity is
// min(outstanding, allocated + available); the fulfillment draws from the
// allocation not held by another open fulfillment first and tops the line up
// from available stock for the rest. Lines whose shippable quantity is not
// positive are excluded. availableByProduct is drawn down as the plan
// consumes it, so two lines of the same product never double-spend.
func planFulfillment(lines []models.SalesOrderLine,
	heldByLine map[int]decimal.Decimal,
	availableByProduct map[int]decimal.Decimal) []fulfillPlanLine {

	plan := make([]fulfillPlanLine, 0, len(lines))
	for _, line := range lines {
		available := availableByProduct[line.ProductId]
		progress := ReconcileQuantities(
			line.QuantityOrdered,
			line.QuantityAllocated,
			line.QuantityFulfilled,
			heldByLine[line.ID],
			available,
		)
		if progress.Shippable.LessThanOrEqual(decimal.Zero) {
			continue
		}

		free := line.QuantityAllocated.Sub(heldByLine[line.ID])
		if free.IsNegative() {
			free = decimal.Zero
		}
		fulfill := progress.Shippable
		allocate := decimal.Zero
		if fulfill.GreaterThan(free) {
			allocate = fulfill.Sub(free)
			if allocate.GreaterThan(available) {
				allocate = available
				fulfill = free.Add(allocate)
			}
		}
		if fulfill.LessThanOrEqual(decimal.Zero) {
			continue
		}

		availableByProduct[line.ProductId] = available.Sub(allocate)
		plan = append(plan, fulfillPlanLine{
			SalesOrderLineId: line.ID,
			ProductId:        line.ProductId,
			AllocateQty:      allocate,
			FulfillQty:       fulfill,
		})
	}
	return plan
}

func openFulfillmentSnapshot(tx *gorm.DB, businessId string, salesOrder *models.SalesOrder) (map[int]decimal.Decimal, map[int]decimal.Decimal, error) {
	heldByLine, err := models.OpenFulfillmentQtyByLine(tx, salesOrder.ID)
	if err != nil {
		return nil, nil, err
	}
	availableByProduct := make(map[int]decimal.Decimal, len(salesOrder.Lines))
	for _, line := range salesOrder.Lines {
		if _, done := availableByProduct[line.ProductId]; done {
			continue
		}
		summary, _, err := models.FirstOrCreateStockSummary(tx, businessId, salesOrder.WarehouseId, line.ProductId)
		if err != nil {
			return nil, nil, err
		}
		availableByProduct[line.ProductId] = summary.AvailableQty()
	}
	return heldByLine, availableByProduct, nil
}

// FulfillOrder computes the shippable quantity of every line and creates a
// fulfillment from the lines that can ship now, allocating any deficit from
// available stock in the same transaction. When no line can ship, the result
// is an ok "nothing to ship" payload and the procedure never starts, so the
// request key stays unused.
func FulfillOrder(ctx context.Context, salesOrderId int, requestKey string) Result {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return Err(ErrCodeValidation, "business id is required")
	}

	db := config.GetDB()
	var salesOrder models.SalesOrder
	err := db.WithContext(ctx).Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, salesOrderId).
		First(&salesOrder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Err(ErrCodeNotFound, "sales order not found")
		}
		return Err(ErrCodeInternal, err.Error())
	}
	if salesOrder.CurrentStatus == models.SalesOrderStatusDraft {
		return Err(ErrCodeConflict, "confirm the sales order before fulfilling")
	}
	if salesOrder.CurrentStatus.IsTerminal() {
		return Err(ErrCodeConflict,
			fmt.Sprintf("sales order %s is %s", salesOrder.OrderNumber, salesOrder.CurrentStatus))
	}

	// unlocked probe; the authoritative plan is rebuilt under locks below
	heldByLine, availableByProduct, err := openFulfillmentSnapshot(db.WithContext(ctx), businessId, &salesOrder)
	if err != nil {
		return Err(ErrCodeInternal, err.Error())
	}
	if len(planFulfillment(salesOrder.Lines, heldByLine, availableByProduct)) == 0 {
		return Ok(&FulfillmentPayload{SalesOrder: &salesOrder, NothingToShip: true})
	}

	return runAllocationProcedure(ctx, OpCreateFulfillmentAndReallocate, requestKey,
		func(tx *gorm.DB, businessId string) (interface{}, error) {
			salesOrder, err := fetchSalesOrderForAllocation(tx, businessId, salesOrderId)
			if err != nil {
				return nil, err
			}
			if salesOrder.CurrentStatus == models.SalesOrderStatusDraft {
				return nil, NewProcedureError(ErrCodeConflict, "confirm the sales order before fulfilling")
			}
			if salesOrder.CurrentStatus.IsTerminal() {
				return nil, NewProcedureError(ErrCodeConflict,
					fmt.Sprintf("sales order %s is %s", salesOrder.OrderNumber, salesOrder.CurrentStatus))
			}

			productIds := make([]int, 0, len(salesOrder.Lines))
			for _, line := range salesOrder.Lines {
				productIds = append(productIds, line.ProductId)
			}
			if err := models.BulkLockStockSummary(tx, businessId, salesOrder.WarehouseId, productIds); err != nil {
				return nil, err
			}

			heldByLine, availableByProduct, err := openFulfillmentSnapshot(tx, businessId, salesOrder)
			if err != nil {
				return nil, err
			}
			plan := planFulfillment(salesOrder.Lines, heldByLine, availableByProduct)
			if len(plan) == 0 {
				return &FulfillmentPayload{SalesOrder: salesOrder, NothingToShip: true}, nil
			}

			lineByID := make(map[int]*models.SalesOrderLine, len(salesOrder.Lines))
			for i := range salesOrder.Lines {
				lineByID[salesOrder.Lines[i].ID] = &salesOrder.Lines[i]
			}
			newLines := make([]models.NewFulfillmentLine, 0, len(plan))
			for _, planned := range plan {
				if planned.AllocateQty.IsPositive() {
					if err := allocateToLine(tx, businessId, salesOrder.WarehouseId, lineByID[planned.SalesOrderLineId], planned.AllocateQty); err != nil {
						return nil, err
					}
				}
				newLines = append(newLines, models.NewFulfillmentLine{
					SalesOrderLineId: planned.SalesOrderLineId,
					Quantity:         planned.FulfillQty,
				})
			}

			fulfillment, err := models.CreateFulfillmentTx(tx, ctx, businessId, &models.NewFulfillment{
				SalesOrderId: salesOrderId,
				Lines:        newLines,
			})
			if err != nil {
				return nil, NewProcedureError(ErrCodeValidation, err.Error())
			}

			reallocated, err := topUpOrderAllocation(tx, businessId, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			refreshed, err := models.RefreshSalesOrderStatus(tx, businessId, salesOrder.ID)
			if err != nil {
				return nil, err
			}
			return &FulfillmentPayload{
				Fulfillment: fulfillment,
				SalesOrder:  refreshed,
				Reallocated: reallocated,
			}, nil
		})
}

// GetLineFulfillmentQty reports, for every line of the order, the quantity
// held by open fulfillments and the quantity already shipped. Read only, no
// request key needed.
func GetLineFulfillmentQty(ctx context.Context, salesOrderId int) Result {
	counters, err := models.LineFulfillmentQtys(ctx, salesOrderId)
	if err != nil {
		return ErrFrom(err)
	}
	return Ok(counters)
}
