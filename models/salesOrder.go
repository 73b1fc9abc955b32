package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesOrder struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	BusinessId           string           `gorm:"index;not null" json:"business_id" binding:"required"`
	CustomerId           int              `gorm:"index;not null" json:"customer_id" binding:"required"`
	WarehouseId          int              `gorm:"index;not null" json:"warehouse_id"`
	OrderNumber          string           `gorm:"size:255;not null" json:"order_number"`
	SequenceNo           int64            `gorm:"not null" json:"sequence_no"`
	ReferenceNumber      string           `gorm:"size:255" json:"reference_number"`
	OrderDate            time.Time        `gorm:"not null" json:"order_date" binding:"required"`
	ExpectedShipmentDate *time.Time       `json:"expected_shipment_date"`
	ShippingAddress      string           `gorm:"type:text" json:"shipping_address"`
	BillingAddress       string           `gorm:"type:text" json:"billing_address"`
	Notes                string           `gorm:"type:text" json:"notes"`
	Channel              OrderChannel     `gorm:"type:enum('manual','shopify');default:'manual'" json:"channel"`
	ShopifyOrderId       string           `gorm:"size:50;index" json:"shopify_order_id"`
	CurrentStatus        SalesOrderStatus `gorm:"type:enum('draft','confirmed','requires_items','awaiting_stock','reserved','picking','packed','partially_shipped','shipped','completed','cancelled');not null" json:"current_status"`
	OrderTotalAmount     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"order_total_amount"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	Lines                []SalesOrderLine `gorm:"foreignKey:SalesOrderId" json:"lines"`
}

type SalesOrderLine struct {
	ID                int             `gorm:"primary_key" json:"id"`
	SalesOrderId      int             `gorm:"index;not null" json:"sales_order_id" binding:"required"`
	ProductId         int             `gorm:"index;not null" json:"product_id"`
	Name              string          `gorm:"size:100" json:"name"`
	Sku               string          `gorm:"size:100" json:"sku"`
	QuantityOrdered   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_ordered" binding:"required"`
	QuantityAllocated decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_allocated"`
	QuantityFulfilled decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_fulfilled"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineTotal         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
}

type NewSalesOrder struct {
	CustomerId           int                 `json:"customer_id" binding:"required"`
	WarehouseId          int                 `json:"warehouse_id"`
	ReferenceNumber      string              `json:"reference_number"`
	OrderDate            time.Time           `json:"order_date" binding:"required"`
	ExpectedShipmentDate *time.Time          `json:"expected_shipment_date"`
	ShippingAddress      string              `json:"shipping_address"`
	BillingAddress       string              `json:"billing_address"`
	Notes                string              `json:"notes"`
	Lines                []NewSalesOrderLine `json:"lines"`
}

type NewSalesOrderLine struct {
	LineId          int             `json:"line_id"`
	ProductId       int             `json:"product_id" binding:"required"`
	QuantityOrdered decimal.Decimal `json:"quantity_ordered" binding:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	IsDeletedItem   *bool           `json:"is_deleted_item"`
}

type SalesOrdersConnection struct {
	Edges    []*SalesOrdersEdge `json:"edges"`
	PageInfo *PageInfo          `json:"pageInfo"`
}

type SalesOrdersEdge Edge[SalesOrder]

func (so SalesOrder) GetCursor() string {
	return so.CreatedAt.String()
}

// completed and cancelled orders are frozen
func (so SalesOrder) CheckTransactionLock(_ context.Context) error {
	if so.CurrentStatus.IsTerminal() {
		return fmt.Errorf("sales order %s is %s and cannot be changed", so.OrderNumber, so.CurrentStatus)
	}
	return nil
}

// allowed manual transitions, keyed by the status the order is in now.
// Derived statuses (requires_items, awaiting_stock, reserved, picking,
// packed, partially_shipped, shipped) are recomputed from quantities and
// open fulfillments, the table only gates what a caller may request.
var salesOrderTransitions = map[SalesOrderStatus][]SalesOrderStatus{
	SalesOrderStatusDraft:            {SalesOrderStatusConfirmed, SalesOrderStatusCancelled},
	SalesOrderStatusConfirmed:        {SalesOrderStatusDraft, SalesOrderStatusRequiresItems, SalesOrderStatusAwaitingStock, SalesOrderStatusReserved, SalesOrderStatusPicking, SalesOrderStatusCancelled},
	SalesOrderStatusRequiresItems:    {SalesOrderStatusDraft, SalesOrderStatusConfirmed, SalesOrderStatusAwaitingStock, SalesOrderStatusReserved, SalesOrderStatusCancelled},
	SalesOrderStatusAwaitingStock:    {SalesOrderStatusDraft, SalesOrderStatusConfirmed, SalesOrderStatusRequiresItems, SalesOrderStatusReserved, SalesOrderStatusPicking, SalesOrderStatusCancelled},
	SalesOrderStatusReserved:         {SalesOrderStatusConfirmed, SalesOrderStatusAwaitingStock, SalesOrderStatusPicking, SalesOrderStatusPartiallyShipped, SalesOrderStatusCancelled},
	SalesOrderStatusPicking:          {SalesOrderStatusReserved, SalesOrderStatusPacked, SalesOrderStatusPartiallyShipped, SalesOrderStatusCancelled},
	SalesOrderStatusPacked:           {SalesOrderStatusPicking, SalesOrderStatusPartiallyShipped, SalesOrderStatusShipped, SalesOrderStatusCancelled},
	SalesOrderStatusPartiallyShipped: {SalesOrderStatusPicking, SalesOrderStatusPacked, SalesOrderStatusShipped},
	SalesOrderStatusShipped:          {SalesOrderStatusCompleted},
	SalesOrderStatusCompleted:        {},
	SalesOrderStatusCancelled:        {},
}

func (s SalesOrderStatus) CanTransitionTo(next SalesOrderStatus) bool {
	for _, allowed := range salesOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (so *SalesOrder) hasAnyAllocation() bool {
	for _, line := range so.Lines {
		if line.QuantityAllocated.GreaterThan(decimal.Zero) {
			return true
		}
	}
	return false
}

func (so *SalesOrder) hasAnyFulfillment(tx *gorm.DB) (bool, error) {
	var count int64
	if err := tx.Model(&Fulfillment{}).
		Where("sales_order_id = ?", so.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (input NewSalesOrder) validate(ctx context.Context, businessId string, _ int) error {

	// exists customer
	if err := utils.ValidateResourceId[Customer](ctx, businessId, input.CustomerId); err != nil {
		return errors.New("customer not found")
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
			return errors.New("duplicate product on sales order lines")
		}
		seen[line.ProductId] = true
		if line.QuantityOrdered.LessThanOrEqual(decimal.Zero) {
			return errors.New("ordered quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return errors.New("unit price cannot be negative")
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

// copy name and sku onto the line so the document survives later product edits
func buildSalesOrderLine(ctx context.Context, businessId string, input NewSalesOrderLine) (*SalesOrderLine, error) {
	product, err := utils.FetchModel[Product](ctx, businessId, input.ProductId)
	if err != nil {
		return nil, errors.New("product not found")
	}
	line := SalesOrderLine{
		ProductId:       input.ProductId,
		Name:            product.Name,
		Sku:             product.Sku,
		QuantityOrdered: input.QuantityOrdered,
		UnitPrice:       input.UnitPrice,
		LineTotal:       input.QuantityOrdered.Mul(input.UnitPrice),
	}
	return &line, nil
}

// CreateSalesOrder always writes the order as draft. Confirmation, with its
// allocation side effects, is a separate step so that line edits are
// persisted before any stock is committed.
func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {
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

	customer, err := utils.FetchModel[Customer](ctx, businessId, input.CustomerId)
	if err != nil {
		return nil, errors.New("customer not found")
	}
	shippingAddress := input.ShippingAddress
	if shippingAddress == "" {
		shippingAddress = customer.ShippingAddress
	}
	billingAddress := input.BillingAddress
	if billingAddress == "" {
		billingAddress = customer.BillingAddress
	}

	var lines []SalesOrderLine
	var orderTotal decimal.Decimal
	for _, item := range input.Lines {
		if item.IsDeletedItem != nil && *item.IsDeletedItem {
			continue
		}
		line, err := buildSalesOrderLine(ctx, businessId, item)
		if err != nil {
			return nil, err
		}
		orderTotal = orderTotal.Add(line.LineTotal)
		lines = append(lines, *line)
	}

	salesOrder := SalesOrder{
		BusinessId:           businessId,
		CustomerId:           input.CustomerId,
		WarehouseId:          warehouseId,
		ReferenceNumber:      input.ReferenceNumber,
		OrderDate:            input.OrderDate,
		ExpectedShipmentDate: input.ExpectedShipmentDate,
		ShippingAddress:      shippingAddress,
		BillingAddress:       billingAddress,
		Notes:                input.Notes,
		Channel:              OrderChannelManual,
		CurrentStatus:        SalesOrderStatusDraft,
		OrderTotalAmount:     orderTotal,
		Lines:                lines,
	}

	tx := db.Begin()
	seqNo, err := utils.GetSequence[SalesOrder](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	salesOrder.SequenceNo = seqNo
	salesOrder.OrderNumber = "SO-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&salesOrder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := EnqueueRowChange(tx, businessId, "sales_orders", salesOrder.ID, RowChangeActionInsert, &salesOrder); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &salesOrder, nil
}

// UpdateSalesOrder persists line edits before any allocation touches them.
// A line that already holds allocated or fulfilled quantity cannot be
// deleted, and its ordered quantity cannot drop below what is already
// allocated plus fulfilled.
func UpdateSalesOrder(ctx context.Context, salesOrderId int, input *NewSalesOrder) (*SalesOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, salesOrderId); err != nil {
		return nil, err
	}
	existingOrder, err := utils.FetchModelForChange[SalesOrder](ctx, businessId, salesOrderId, "Lines")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	existingOrder.CustomerId = input.CustomerId
	if input.WarehouseId > 0 {
		if existingOrder.WarehouseId != input.WarehouseId && existingOrder.hasAnyAllocation() {
			tx.Rollback()
			return nil, errors.New("cannot change warehouse while stock is allocated")
		}
		existingOrder.WarehouseId = input.WarehouseId
	}
	existingOrder.ReferenceNumber = input.ReferenceNumber
	existingOrder.OrderDate = input.OrderDate
	existingOrder.ExpectedShipmentDate = input.ExpectedShipmentDate
	existingOrder.ShippingAddress = input.ShippingAddress
	existingOrder.BillingAddress = input.BillingAddress
	existingOrder.Notes = input.Notes

	// stable lookup, range over slice copies would break pointers
	existingByID := make(map[int]*SalesOrderLine, len(existingOrder.Lines))
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
			if line.QuantityAllocated.GreaterThan(decimal.Zero) || line.QuantityFulfilled.GreaterThan(decimal.Zero) {
				tx.Rollback()
				return nil, errors.New("cannot delete a line with allocated or fulfilled quantity")
			}
			if err := tx.WithContext(ctx).
				Where("id = ? AND sales_order_id = ?", item.LineId, salesOrderId).
				Delete(&SalesOrderLine{}).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			continue
		}

		// create
		if item.LineId <= 0 {
			newLine, err := buildSalesOrderLine(ctx, businessId, item)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			newLine.SalesOrderId = salesOrderId
			if err := tx.WithContext(ctx).Create(newLine).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			orderTotal = orderTotal.Add(newLine.LineTotal)
			continue
		}

		// update
		line, ok := existingByID[item.LineId]
		if !ok {
			tx.Rollback()
			return nil, errors.New("sales order line not found")
		}
		floor := line.QuantityAllocated.Add(line.QuantityFulfilled)
		if item.QuantityOrdered.LessThan(floor) {
			tx.Rollback()
			return nil, errors.New("ordered quantity cannot drop below allocated plus fulfilled quantity")
		}
		if line.ProductId != item.ProductId && floor.GreaterThan(decimal.Zero) {
			tx.Rollback()
			return nil, errors.New("cannot change product on a line with allocated or fulfilled quantity")
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
		line.UnitPrice = item.UnitPrice
		line.LineTotal = item.QuantityOrdered.Mul(item.UnitPrice)
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

	// refresh lines so the derived status sees the edits
	if err := tx.WithContext(ctx).Preload("Lines").First(&existingOrder, salesOrderId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if !existingOrder.CurrentStatus.IsTerminal() && existingOrder.CurrentStatus != SalesOrderStatusDraft {
		if _, err := RefreshSalesOrderStatus(tx.WithContext(ctx), businessId, salesOrderId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := EnqueueRowChange(tx, businessId, "sales_orders", salesOrderId, RowChangeActionUpdate, existingOrder); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return existingOrder, nil
}

func DeleteSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[SalesOrder](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if result.CurrentStatus != SalesOrderStatusDraft && result.CurrentStatus != SalesOrderStatusCancelled {
		return nil, errors.New("only draft or cancelled sales orders can be deleted")
	}
	if result.hasAnyAllocation() {
		return nil, errors.New("cannot delete a sales order with allocated stock")
	}

	db := config.GetDB()
	tx := db.Begin()

	fulfilled, err := result.hasAnyFulfillment(tx.WithContext(ctx))
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if fulfilled {
		tx.Rollback()
		return nil, errors.New("cannot delete a sales order with fulfillments")
	}

	if err := tx.WithContext(ctx).Model(&result).Association("Lines").Unscoped().Clear(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := EnqueueRowChange(tx, businessId, "sales_orders", id, RowChangeActionDelete, result); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateStatusSalesOrder applies a caller-requested transition. The server
// owns the transition table, a request the table does not allow fails
// regardless of what the caller believes the current status is.
func UpdateStatusSalesOrder(ctx context.Context, id int, status string) (*SalesOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	nextStatus, err := ParseSalesOrderStatus(status)
	if err != nil {
		return nil, err
	}

	so, err := utils.FetchModel[SalesOrder](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}

	if !so.CurrentStatus.CanTransitionTo(nextStatus) {
		return nil, fmt.Errorf("cannot move sales order from %s to %s", so.CurrentStatus, nextStatus)
	}

	db := config.GetDB()
	tx := db.Begin()

	// reverting to draft or cancelling requires that nothing has been
	// allocated and no fulfillment exists
	if nextStatus == SalesOrderStatusDraft || nextStatus == SalesOrderStatusCancelled {
		if so.hasAnyAllocation() {
			tx.Rollback()
			return nil, errors.New("cannot revert or cancel while stock is allocated")
		}
		fulfilled, err := so.hasAnyFulfillment(tx.WithContext(ctx))
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if fulfilled {
			tx.Rollback()
			return nil, errors.New("cannot revert or cancel a sales order with fulfillments")
		}
	}

	if err := tx.WithContext(ctx).Model(&so).Updates(map[string]interface{}{
		"CurrentStatus": nextStatus,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	so.CurrentStatus = nextStatus

	if err := EnqueueRowChange(tx, businessId, "sales_orders", so.ID, RowChangeActionUpdate, so); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return so, nil
}

func GetSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[SalesOrder](ctx, businessId, id, "Lines")
}

func GetSalesOrders(ctx context.Context, customerId *int, status *SalesOrderStatus) ([]*SalesOrder, error) {
	db := config.GetDB()
	var results []*SalesOrder

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", customerId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}

	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateSalesOrder(ctx context.Context, limit *int, after *string,
	orderNumber *string,
	referenceNumber *string,
	warehouseID *int,
	customerID *int,
	status *SalesOrderStatus,
	channel *OrderChannel,
	startOrderDate *MyDateString,
	endOrderDate *MyDateString) (*SalesOrdersConnection, error) {

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
	if customerID != nil && *customerID > 0 {
		dbCtx.Where("customer_id = ?", *customerID)
	}
	if warehouseID != nil && *warehouseID > 0 {
		dbCtx.Where("warehouse_id = ?", *warehouseID)
	}
	if status != nil {
		dbCtx.Where("current_status = ?", *status)
	}
	if channel != nil {
		dbCtx.Where("channel = ?", *channel)
	}
	if startOrderDate != nil && endOrderDate != nil {
		dbCtx.Where("order_date BETWEEN ? AND ?", startOrderDate, endOrderDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[SalesOrder](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var salesOrdersConnection SalesOrdersConnection
	salesOrdersConnection.PageInfo = pageInfo
	for _, edge := range edges {
		salesOrdersEdge := SalesOrdersEdge(edge)
		salesOrdersConnection.Edges = append(salesOrdersConnection.Edges, &salesOrdersEdge)
	}

	return &salesOrdersConnection, err
}

// RefreshSalesOrderStatus recomputes the derived status from line quantities
// and open fulfillments and writes it back. Draft and terminal orders are
// left alone.
func RefreshSalesOrderStatus(tx *gorm.DB, businessId string, salesOrderId int) (*SalesOrder, error) {

	var salesOrder SalesOrder
	if err := tx.Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, salesOrderId).
		First(&salesOrder).Error; err != nil {
		return nil, err
	}

	if salesOrder.CurrentStatus == SalesOrderStatusDraft || salesOrder.CurrentStatus.IsTerminal() {
		return &salesOrder, nil
	}

	var openFulfillments []Fulfillment
	if err := tx.Model(&Fulfillment{}).
		Where("sales_order_id = ?", salesOrderId).
		Where("current_status IN ?", []FulfillmentStatus{FulfillmentStatusPending, FulfillmentStatusPicking, FulfillmentStatusPacked}).
		Find(&openFulfillments).Error; err != nil {
		return nil, err
	}

	status := deriveSalesOrderStatus(activeLineProducts(tx, salesOrder), salesOrder.Lines, openFulfillments)

	if status != salesOrder.CurrentStatus {
		if err := tx.Model(&salesOrder).Updates(map[string]interface{}{
			"CurrentStatus": status,
		}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		salesOrder.CurrentStatus = status
		if err := EnqueueRowChange(tx, businessId, "sales_orders", salesOrder.ID, RowChangeActionUpdate, &salesOrder); err != nil {
			return nil, err
		}
	}

	return &salesOrder, nil
}

// active products referenced by the order lines
func activeLineProducts(tx *gorm.DB, so SalesOrder) map[int]bool {
	var ids []int
	for _, line := range so.Lines {
		if line.ProductId > 0 {
			ids = append(ids, line.ProductId)
		}
	}
	active := make(map[int]bool, len(ids))
	if len(ids) == 0 {
		return active
	}
	var rows []struct {
		ID       int
		IsActive bool
	}
	if err := tx.Model(&Product{}).
		Select("id, is_active").
		Where("business_id = ? AND id IN (?)", so.BusinessId, ids).
		Scan(&rows).Error; err != nil {
		return active
	}
	for _, r := range rows {
		active[r.ID] = r.IsActive
	}
	return active
}

func deriveSalesOrderStatus(activeProducts map[int]bool, lines []SalesOrderLine, openFulfillments []Fulfillment) SalesOrderStatus {

	allShipped := len(lines) > 0
	anyShipped := false
	fullyAllocated := len(lines) > 0
	anyAllocated := false
	missingProduct := false

	for _, line := range lines {
		if line.ProductId <= 0 || !activeProducts[line.ProductId] {
			missingProduct = true
		}
		if line.QuantityFulfilled.GreaterThanOrEqual(line.QuantityOrdered) {
			if line.QuantityFulfilled.GreaterThan(decimal.Zero) {
				anyShipped = true
			}
		} else {
			allShipped = false
			if line.QuantityFulfilled.GreaterThan(decimal.Zero) {
				anyShipped = true
			}
		}
		remaining := line.QuantityOrdered.Sub(line.QuantityFulfilled)
		if line.QuantityAllocated.GreaterThan(decimal.Zero) {
			anyAllocated = true
		}
		if line.QuantityAllocated.LessThan(remaining) {
			fullyAllocated = false
		}
	}

	switch {
	case missingProduct:
		return SalesOrderStatusRequiresItems
	case allShipped:
		return SalesOrderStatusShipped
	case anyShipped:
		return SalesOrderStatusPartiallyShipped
	case len(openFulfillments) > 0:
		allPacked := true
		for _, f := range openFulfillments {
			if f.CurrentStatus != FulfillmentStatusPacked {
				allPacked = false
				break
			}
		}
		if allPacked {
			return SalesOrderStatusPacked
		}
		return SalesOrderStatusPicking
	case fullyAllocated:
		return SalesOrderStatusReserved
	case anyAllocated:
		return SalesOrderStatusAwaitingStock
	default:
		return SalesOrderStatusConfirmed
	}
}
