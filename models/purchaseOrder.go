package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"github.com/shopspring/decimal"
)

type PurchaseOrder struct {
	ID                   int                 `gorm:"primary_key" json:"id"`
	BusinessId           string              `gorm:"index;not null" json:"business_id" binding:"required"`
	SupplierId           int                 `gorm:"index;not null" json:"supplier_id" binding:"required"`
	WarehouseId          int                 `gorm:"index;not null" json:"warehouse_id"`
	OrderNumber          string              `gorm:"size:255;not null" json:"order_number"`
	SequenceNo           int64               `gorm:"not null" json:"sequence_no"`
	ReferenceNumber      string              `gorm:"size:255" json:"reference_number"`
	OrderDate            time.Time           `gorm:"not null" json:"order_date" binding:"required"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date"`
	Notes                string              `gorm:"type:text" json:"notes"`
	CurrentStatus        PurchaseOrderStatus `gorm:"type:enum('draft','issued','partially_received','received','closed','cancelled');not null" json:"current_status"`
	OrderTotalAmount     decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"order_total_amount"`
	CreatedAt            time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	Lines                []PurchaseOrderLine `gorm:"foreignKey:PurchaseOrderId" json:"lines"`
}

type PurchaseOrderLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId  int             `gorm:"index;not null" json:"purchase_order_id" binding:"required"`
	ProductId        int             `gorm:"index;not null" json:"product_id"`
	Name             string          `gorm:"size:100" json:"name"`
	Sku              string          `gorm:"size:100" json:"sku"`
	QuantityOrdered  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_ordered" binding:"required"`
	QuantityReceived decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_received"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
}

type NewPurchaseOrder struct {
	SupplierId           int                    `json:"supplier_id" binding:"required"`
	WarehouseId          int                    `json:"warehouse_id"`
	ReferenceNumber      string                 `json:"reference_number"`
	OrderDate            time.Time              `json:"order_date" binding:"required"`
	ExpectedDeliveryDate *time.Time             `json:"expected_delivery_date"`
	Notes                string                 `json:"notes"`
	Lines                []NewPurchaseOrderLine `json:"lines"`
}

type NewPurchaseOrderLine struct {
	LineId          int             `json:"line_id"`
	ProductId       int             `json:"product_id" binding:"required"`
	QuantityOrdered decimal.Decimal `json:"quantity_ordered" binding:"required"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	IsDeletedItem   *bool           `json:"is_deleted_item"`
}

type PurchaseOrderReceiptLine struct {
	LineId   int             `json:"line_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

type PurchaseOrdersConnection struct {
	Edges    []*PurchaseOrdersEdge `json:"edges"`
	PageInfo *PageInfo             `json:"pageInfo"`
}

type PurchaseOrdersEdge Edge[PurchaseOrder]

func (po PurchaseOrder) GetCursor() string {
	return po.CreatedAt.String()
}

// closed and cancelled purchase orders are frozen
func (po PurchaseOrder) CheckTransactionLock(_ context.Context) error {
	if po.CurrentStatus == PurchaseOrderStatusClosed || po.CurrentStatus == PurchaseOrderStatusCancelled {
		return fmt.Errorf("purchase order %s is %s and cannot be changed", po.OrderNumber, po.CurrentStatus)
	}
	return nil
}

func (input NewPurchaseOrder) validate(ctx context.Context, businessId string, _ int) error {

	// exists supplier
	if err := utils.ValidateResourceId[Supplier](ctx, businessId, input.SupplierId); err != nil {
		return errors.New("supplier not found")
	}
	// exists warehouse
	if input.WarehouseId > 0 {
		if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
			return errors.New("warehouse not found")
		}
	}

	seen := make(map[int]bool, len(input.Lines))
	var productIds []int
	for _, line := range input.Lines {
		if line.IsDeletedItem != nil && *line.IsDeletedItem {
			continue
		}
		if line.ProductId <= 0 {
			return errors.New("product is required on every line")
		}
		if seen[line.ProductId] {
			return errors.New("duplicate product on purchase order lines")
		}
		seen[line.ProductId] = true
		if line.QuantityOrdered.LessThanOrEqual(decimal.Zero) {
			return errors.New("ordered quantity must be positive")
		}
		if line.UnitCost.IsNegative() {
			return errors.New("unit cost cannot be negative")
		}
		productIds = append(productIds, line.ProductId)
	}
	if len(productIds) > 0 {
		if err := utils.ValidateResourcesId[Product, int](ctx, businessId, productIds); err != nil {
			return errors.New("product not found")
		}
	}

	return nil
}

func buildPurchaseOrderLine(ctx context.Context, businessId string, input NewPurchaseOrderLine) (*PurchaseOrderLine, error) {
	product, err := utils.FetchModel[Product](ctx, businessId, input.ProductId)
	if err != nil {
		return nil, errors.New("product not found")
	}
	line := PurchaseOrderLine{
		ProductId:       input.ProductId,
		Name:            product.Name,
		Sku:             product.Sku,
		QuantityOrdered: input.QuantityOrdered,
		UnitCost:        input.UnitCost,
		LineTotal:       input.QuantityOrdered.Mul(input.UnitCost),
	}
	return &line, nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	warehouseId := input.WarehouseId
	if warehouseId <= 0 {
		business, err := GetBusinessById(ctx, businessId)
		if err != nil {
			return nil, err
		}
		warehouseId = business.PrimaryWarehouseId
	}

	var lines []PurchaseOrderLine
	var orderTotal decimal.Decimal
	for _, item := range input.Lines {
		if item.IsDeletedItem != nil && *item.IsDeletedItem {
			continue
		}
		line, err := buildPurchaseOrderLine(ctx, businessId, item)
		if err != nil {
			return nil, err
		}
		orderTotal = orderTotal.Add(line.LineTotal)
		lines = append(lines, *line)
	}

	purchaseOrder := PurchaseOrder{
		BusinessId:           businessId,
		SupplierId:           input.SupplierId,
		WarehouseId:          warehouseId,
		ReferenceNumber:      input.ReferenceNumber,
		OrderDate:            input.OrderDate,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		Notes:                input.Notes,
		CurrentStatus:        PurchaseOrderStatusDraft,
		OrderTotalAmount:     orderTotal,
		Lines:                lines,
	}

	tx := db.Begin()
	seqNo, err := utils.GetSequence[PurchaseOrder](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	purchaseOrder.SequenceNo = seqNo
	purchaseOrder.OrderNumber = "PO-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&purchaseOrder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := EnqueueRowChange(tx, businessId, "purchase_orders", purchaseOrder.ID, RowChangeActionInsert, &purchaseOrder); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &purchaseOrder, nil
}

// UpdatePurchaseOrder edits header fields and lines. A line that has
// received quantity cannot be deleted, and its ordered quantity cannot drop
// below what was received. Changes to the ordered quantity of an issued
// order adjust the on-order counter by the difference.
func UpdatePurchaseOrder(ctx context.Context, purchaseOrderId int, input *NewPurchaseOrder) (*PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, purchaseOrderId); err != nil {
		return nil, err
	}
	existingOrder, err := utils.FetchModelForChange[PurchaseOrder](ctx, businessId, purchaseOrderId, "Lines")
	if err != nil {
		return nil, err
	}

	isIssued := existingOrder.CurrentStatus.IsOpen()

	db := config.GetDB()
	tx := db.Begin()

	existingOrder.SupplierId = input.SupplierId
	if input.WarehouseId > 0 {
		if existingOrder.WarehouseId != input.WarehouseId && isIssued {
			tx.Rollback()
			return nil, errors.New("cannot change warehouse on an issued purchase order")
		}
		existingOrder.WarehouseId = input.WarehouseId
	}
	existingOrder.ReferenceNumber = input.ReferenceNumber
	existingOrder.OrderDate = input.OrderDate
	existingOrder.ExpectedDeliveryDate = input.ExpectedDeliveryDate
	existingOrder.Notes = input.Notes

	existingByID := make(map[int]*PurchaseOrderLine, len(existingOrder.Lines))
	for i := range existingOrder.Lines {
		l := &existingOrder.Lines[i]
		existingByID[l.ID] = l
	}

	var orderTotal decimal.Decimal
	for _, item := range input.Lines {
		// delete
		if item.IsDeletedItem != nil && *item.IsDeletedItem {
			if item.LineId <= 0 {
				continue
			}
			line, ok := existingByID[item.LineId]
			if !ok {
				continue
			}
			if line.QuantityReceived.GreaterThan(decimal.Zero) {
				tx.Rollback()
				return nil, errors.New("cannot delete a line with received quantity")
			}
			if isIssued {
				if err := UpdateStockSummaryOrderQty(tx, businessId, existingOrder.WarehouseId, line.ProductId, line.QuantityOrdered.Neg()); err != nil {
					return nil, err
				}
			}
			if err := tx.WithContext(ctx).
				Where("id = ? AND purchase_order_id = ?", item.LineId, purchaseOrderId).
				Delete(&PurchaseOrderLine{}).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			continue
		}

		// create
		if item.LineId <= 0 {
			newLine, err := buildPurchaseOrderLine(ctx, businessId, item)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			newLine.PurchaseOrderId = purchaseOrderId
			if err := tx.WithContext(ctx).Create(newLine).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			if isIssued {
				if err := UpdateStockSummaryOrderQty(tx, businessId, existingOrder.WarehouseId, newLine.ProductId, newLine.QuantityOrdered); err != nil {
					return nil, err
				}
			}
			orderTotal = orderTotal.Add(newLine.LineTotal)
			continue
		}

		// update
		line, ok := existingByID[item.LineId]
		if !ok {
			tx.Rollback()
			return nil, errors.New("purchase order line not found")
		}
		if item.QuantityOrdered.LessThan(line.QuantityReceived) {
			tx.Rollback()
			return nil, errors.New("ordered quantity cannot drop below received quantity")
		}
		if line.ProductId != item.ProductId && (line.QuantityReceived.GreaterThan(decimal.Zero) || isIssued) {
			tx.Rollback()
			return nil, errors.New("cannot change product on an issued or received line")
		}
		if isIssued {
			diff := item.QuantityOrdered.Sub(line.QuantityOrdered)
			if !diff.IsZero() {
				if err := UpdateStockSummaryOrderQty(tx, businessId, existingOrder.WarehouseId, line.ProductId, diff); err != nil {
					return nil, err
				}
			}
		}
		if line.ProductId != item.ProductId {
			product, err := utils.FetchModel[Product](ctx, businessId, item.ProductId)
			if err != nil {
				tx.Rollback()
				return nil, errors.New("product not found")
			}
			line.ProductId = item.ProductId
			line.Name = product.Name
			line.Sku = product.Sku
		}
		line.QuantityOrdered = item.QuantityOrdered
		line.UnitCost = item.UnitCost
		line.LineTotal = item.QuantityOrdered.Mul(item.UnitCost)
		orderTotal = orderTotal.Add(line.LineTotal)

		if err := tx.WithContext(ctx).Save(line).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	existingOrder.OrderTotalAmount = orderTotal

	if err := tx.WithContext(ctx).Save(existingOrder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Preload("Lines").First(&existingOrder, purchaseOrderId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := EnqueueRowChange(tx, businessId, "purchase_orders", purchaseOrderId, RowChangeActionUpdate, existingOrder); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return existingOrder, nil
}

func DeletePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if result.CurrentStatus != PurchaseOrderStatusDraft && result.CurrentStatus != PurchaseOrderStatusCancelled {
		return nil, errors.New("only draft or cancelled purchase orders can be deleted")
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&result).Association("Lines").Unscoped().Clear(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := EnqueueRowChange(tx, businessId, "purchase_orders", id, RowChangeActionDelete, result); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return result, nil
}

// IssuePurchaseOrder moves a draft to issued and puts every line on order.
func IssuePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	po, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if po.CurrentStatus != PurchaseOrderStatusDraft {
		return nil, errors.New("only draft purchase orders can be issued")
	}
	if len(po.Lines) == 0 {
		return nil, errors.New("cannot issue a purchase order without lines")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stock", "purchaseOrder", "IssuePurchaseOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	db := config.GetDB()
	tx := db.Begin()

	for _, line := range po.Lines {
		if err := UpdateStockSummaryOrderQty(tx, businessId, po.WarehouseId, line.ProductId, line.QuantityOrdered); err != nil {
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Model(&po).Updates(map[string]interface{}{
		"CurrentStatus": PurchaseOrderStatusIssued,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	po.CurrentStatus = PurchaseOrderStatusIssued

	if err := EnqueueRowChange(tx, businessId, "purchase_orders", po.ID, RowChangeActionUpdate, po); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return po, nil
}

// ReceivePurchaseOrder books received quantity against issued lines. Each
// received unit leaves the on-order counter and lands in on-hand stock.
func ReceivePurchaseOrder(ctx context.Context, id int, receipts []PurchaseOrderReceiptLine) (*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	po, err := utils.FetchModelForChange[PurchaseOrder](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if !po.CurrentStatus.IsOpen() {
		return nil, fmt.Errorf("cannot receive against a %s purchase order", po.CurrentStatus)
	}
	if len(receipts) == 0 {
		return nil, errors.New("receipt requires at least one line")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stock", "purchaseOrder", "ReceivePurchaseOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	lineByID := make(map[int]*PurchaseOrderLine, len(po.Lines))
	var productIds []int
	for i := range po.Lines {
		l := &po.Lines[i]
		lineByID[l.ID] = l
		productIds = append(productIds, l.ProductId)
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := BulkLockStockSummary(tx, businessId, po.WarehouseId, productIds); err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, receipt := range receipts {
		line, ok := lineByID[receipt.LineId]
		if !ok {
			tx.Rollback()
			return nil, errors.New("purchase order line not found")
		}
		if receipt.Quantity.LessThanOrEqual(decimal.Zero) {
			tx.Rollback()
			return nil, errors.New("received quantity must be positive")
		}
		remaining := line.QuantityOrdered.Sub(line.QuantityReceived)
		if receipt.Quantity.GreaterThan(remaining) {
			tx.Rollback()
			return nil, fmt.Errorf("received quantity exceeds remaining quantity for %s", line.Name)
		}

		line.QuantityReceived = line.QuantityReceived.Add(receipt.Quantity)
		if err := tx.WithContext(ctx).Save(line).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		if err := UpdateStockSummaryOrderQty(tx, businessId, po.WarehouseId, line.ProductId, receipt.Quantity.Neg()); err != nil {
			return nil, err
		}
		if err := UpdateStockSummaryReceivedQty(tx, businessId, po.WarehouseId, line.ProductId, receipt.Quantity); err != nil {
			return nil, err
		}
	}

	fullyReceived := true
	for _, line := range po.Lines {
		if line.QuantityReceived.LessThan(line.QuantityOrdered) {
			fullyReceived = false
			break
		}
	}
	status := PurchaseOrderStatusPartiallyReceived
	if fullyReceived {
		status = PurchaseOrderStatusReceived
	}

	if err := tx.WithContext(ctx).Model(&po).Updates(map[string]interface{}{
		"CurrentStatus": status,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	po.CurrentStatus = status

	if err := EnqueueRowChange(tx, businessId, "purchase_orders", po.ID, RowChangeActionUpdate, po); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return po, nil
}

// ClosePurchaseOrder ends an open purchase order. Quantity never delivered
// is taken off the on-order counter.
func ClosePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	po, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if !po.CurrentStatus.IsOpen() && po.CurrentStatus != PurchaseOrderStatusReceived {
		return nil, fmt.Errorf("cannot close a %s purchase order", po.CurrentStatus)
	}

	db := config.GetDB()
	tx := db.Begin()

	if po.CurrentStatus.IsOpen() {
		for _, line := range po.Lines {
			remaining := line.QuantityOrdered.Sub(line.QuantityReceived)
			if remaining.GreaterThan(decimal.Zero) {
				if err := UpdateStockSummaryOrderQty(tx, businessId, po.WarehouseId, line.ProductId, remaining.Neg()); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := tx.WithContext(ctx).Model(&po).Updates(map[string]interface{}{
		"CurrentStatus": PurchaseOrderStatusClosed,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	po.CurrentStatus = PurchaseOrderStatusClosed

	if err := EnqueueRowChange(tx, businessId, "purchase_orders", po.ID, RowChangeActionUpdate, po); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return po, nil
}

// CancelPurchaseOrder cancels a draft or an issued order that has received
// nothing yet. Cancelling an issued order reverses its on-order quantity.
func CancelPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	po, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if po.CurrentStatus != PurchaseOrderStatusDraft && po.CurrentStatus != PurchaseOrderStatusIssued {
		return nil, fmt.Errorf("cannot cancel a %s purchase order", po.CurrentStatus)
	}
	for _, line := range po.Lines {
		if line.QuantityReceived.GreaterThan(decimal.Zero) {
			return nil, errors.New("cannot cancel a purchase order with received quantity")
		}
	}

	db := config.GetDB()
	tx := db.Begin()

	if po.CurrentStatus == PurchaseOrderStatusIssued {
		for _, line := range po.Lines {
			if err := UpdateStockSummaryOrderQty(tx, businessId, po.WarehouseId, line.ProductId, line.QuantityOrdered.Neg()); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.WithContext(ctx).Model(&po).Updates(map[string]interface{}{
		"CurrentStatus": PurchaseOrderStatusCancelled,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	po.CurrentStatus = PurchaseOrderStatusCancelled

	if err := EnqueueRowChange(tx, businessId, "purchase_orders", po.ID, RowChangeActionUpdate, po); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return po, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Lines")
}

func GetPurchaseOrders(ctx context.Context, supplierId *int, status *PurchaseOrderStatus) ([]*PurchaseOrder, error) {
	db := config.GetDB()
	var results []*PurchaseOrder

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if supplierId != nil && *supplierId > 0 {
		dbCtx = dbCtx.Where("supplier_id = ?", supplierId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}

	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func PaginatePurchaseOrder(ctx context.Context, limit *int, after *string,
	orderNumber *string,
	referenceNumber *string,
	warehouseID *int,
	supplierID *int,
	status *PurchaseOrderStatus,
	startOrderDate *MyDateString,
	endOrderDate *MyDateString) (*PurchaseOrdersConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	business, err := GetBusiness(ctx)
	if err != nil {
		return nil, errors.New("business id is required")
	}
	if err := startOrderDate.StartOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}
	if err := endOrderDate.EndOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)

	if orderNumber != nil && *orderNumber != "" {
		dbCtx.Where("order_number LIKE ?", "%"+*orderNumber+"%")
	}
	if referenceNumber != nil && *referenceNumber != "" {
		dbCtx.Where("reference_number LIKE ?", "%"+*referenceNumber+"%")
	}
	if supplierID != nil && *supplierID > 0 {
		dbCtx.Where("supplier_id = ?", *supplierID)
	}
	if warehouseID != nil && *warehouseID > 0 {
		dbCtx.Where("warehouse_id = ?", *warehouseID)
	}
	if status != nil {
		dbCtx.Where("current_status = ?", *status)
	}
	if startOrderDate != nil && endOrderDate != nil {
		dbCtx.Where("order_date BETWEEN ? AND ?", startOrderDate, endOrderDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[PurchaseOrder](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var purchaseOrdersConnection PurchaseOrdersConnection
	purchaseOrdersConnection.PageInfo = pageInfo
	for _, edge := range edges {
		purchaseOrdersEdge := PurchaseOrdersEdge(edge)
		purchaseOrdersConnection.Edges = append(purchaseOrdersConnection.Edges, &purchaseOrdersEdge)
	}

	return &purchaseOrdersConnection, err
}

// one inbound delivery a product is waiting on
type IncomingSupply struct {
	ProductId            int             `json:"product_id"`
	PurchaseOrderId      int             `json:"purchase_order_id"`
	OrderNumber          string          `json:"order_number"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	QuantityRemaining    decimal.Decimal `json:"quantity_remaining"`
}

// GetIncomingSupply batches one query over the exact product ids requested
// and returns the open purchase order lines still due for each of them.
func GetIncomingSupply(ctx context.Context, productIds []int, warehouseId *int) ([]*IncomingSupply, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	productIds = utils.UniqueSlice(productIds)
	if len(productIds) == 0 {
		return []*IncomingSupply{}, nil
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&PurchaseOrderLine{}).
		Select("purchase_order_lines.product_id, purchase_orders.id AS purchase_order_id, purchase_orders.order_number, purchase_orders.expected_delivery_date, purchase_order_lines.quantity_ordered - purchase_order_lines.quantity_received AS quantity_remaining").
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_lines.purchase_order_id").
		Where("purchase_orders.business_id = ?", businessId).
		Where("purchase_orders.current_status IN ?", []PurchaseOrderStatus{PurchaseOrderStatusIssued, PurchaseOrderStatusPartiallyReceived}).
		Where("purchase_order_lines.product_id IN (?)", productIds).
		Where("purchase_order_lines.quantity_ordered > purchase_order_lines.quantity_received")
	if warehouseId != nil && *warehouseId > 0 {
		dbCtx = dbCtx.Where("purchase_orders.warehouse_id = ?", *warehouseId)
	}

	var results []*IncomingSupply
	if err := dbCtx.Order("purchase_orders.expected_delivery_date").Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
