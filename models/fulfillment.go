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

type Fulfillment struct {
	ID                int               `gorm:"primary_key" json:"id"`
	BusinessId        string            `gorm:"index;not null" json:"business_id" binding:"required"`
	SalesOrderId      int               `gorm:"index;not null" json:"sales_order_id" binding:"required"`
	WarehouseId       int               `gorm:"index;not null" json:"warehouse_id"`
	FulfillmentNumber string            `gorm:"size:255;not null" json:"fulfillment_number"`
	SequenceNo        int64             `gorm:"not null" json:"sequence_no"`
	TrackingNumber    string            `gorm:"size:100" json:"tracking_number"`
	Carrier           string            `gorm:"size:100" json:"carrier"`
	Notes             string            `gorm:"type:text" json:"notes"`
	CurrentStatus     FulfillmentStatus `gorm:"type:enum('pending','picking','packed','shipped','cancelled');not null" json:"current_status"`
	ShippedAt         *time.Time        `json:"shipped_at"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	Lines             []FulfillmentLine `gorm:"foreignKey:FulfillmentId" json:"lines"`
}

type FulfillmentLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	FulfillmentId    int             `gorm:"index;not null" json:"fulfillment_id" binding:"required"`
	SalesOrderLineId int             `gorm:"index;not null" json:"sales_order_line_id" binding:"required"`
	ProductId        int             `gorm:"index;not null" json:"product_id"`
	Quantity         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity" binding:"required"`
}

type NewFulfillment struct {
	SalesOrderId   int                  `json:"sales_order_id" binding:"required"`
	TrackingNumber string               `json:"tracking_number"`
	Carrier        string               `json:"carrier"`
	Notes          string               `json:"notes"`
	Lines          []NewFulfillmentLine `json:"lines" binding:"required"`
}

type NewFulfillmentLine struct {
	SalesOrderLineId int             `json:"sales_order_line_id" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
}

type FulfillmentsConnection struct {
	Edges    []*FulfillmentsEdge `json:"edges"`
	PageInfo *PageInfo           `json:"pageInfo"`
}

type FulfillmentsEdge Edge[Fulfillment]

func (f Fulfillment) GetCursor() string {
	return f.CreatedAt.String()
}

// shipped and cancelled fulfillments are frozen
func (f Fulfillment) CheckTransactionLock(_ context.Context) error {
	if !f.CurrentStatus.IsOpen() {
		return fmt.Errorf("fulfillment %s is %s and cannot be changed", f.FulfillmentNumber, f.CurrentStatus)
	}
	return nil
}

var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentStatusPending:   {FulfillmentStatusPicking, FulfillmentStatusPacked, FulfillmentStatusShipped, FulfillmentStatusCancelled},
	FulfillmentStatusPicking:   {FulfillmentStatusPending, FulfillmentStatusPacked, FulfillmentStatusShipped, FulfillmentStatusCancelled},
	FulfillmentStatusPacked:    {FulfillmentStatusPicking, FulfillmentStatusShipped, FulfillmentStatusCancelled},
	FulfillmentStatusShipped:   {},
	FulfillmentStatusCancelled: {},
}

func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	for _, allowed := range fulfillmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OpenFulfillmentQtyByLine sums the quantity held by open fulfillments,
// keyed by sales order line id. Shipped and cancelled fulfillments no
// longer hold anything.
func OpenFulfillmentQtyByLine(tx *gorm.DB, salesOrderId int) (map[int]decimal.Decimal, error) {
	var rows []struct {
		SalesOrderLineId int
		Quantity         decimal.Decimal
	}
	err := tx.Model(&FulfillmentLine{}).
		Select("fulfillment_lines.sales_order_line_id, COALESCE(SUM(fulfillment_lines.quantity),0) AS quantity").
		Joins("JOIN fulfillments ON fulfillments.id = fulfillment_lines.fulfillment_id").
		Where("fulfillments.sales_order_id = ?", salesOrderId).
		Where("fulfillments.current_status IN ?", []FulfillmentStatus{FulfillmentStatusPending, FulfillmentStatusPicking, FulfillmentStatusPacked}).
		Group("fulfillment_lines.sales_order_line_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byLine := make(map[int]decimal.Decimal, len(rows))
	for _, row := range rows {
		byLine[row.SalesOrderLineId] = row.Quantity
	}
	return byLine, nil
}

// LineFulfillmentQty is one sales order line's fulfillment counters: the
// quantity held by open fulfillments and the quantity already shipped.
type LineFulfillmentQty struct {
	SalesOrderLineId int             `json:"line_id"`
	QtyInFulfillment decimal.Decimal `json:"qty_in_fulfillment"`
	QtyShipped       decimal.Decimal `json:"qty_shipped"`
}

// LineFulfillmentQtys returns both counters for every line of the order,
// lines without fulfillment activity included with zeros.
func LineFulfillmentQtys(ctx context.Context, salesOrderId int) ([]LineFulfillmentQty, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var salesOrder SalesOrder
	if err := db.WithContext(ctx).Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, salesOrderId).
		First(&salesOrder).Error; err != nil {
		return nil, errors.New("sales order not found")
	}

	var rows []struct {
		SalesOrderLineId int
		QtyInFulfillment decimal.Decimal
		QtyShipped       decimal.Decimal
	}
	err := db.WithContext(ctx).Model(&FulfillmentLine{}).
		Select("fulfillment_lines.sales_order_line_id, "+
			"COALESCE(SUM(CASE WHEN fulfillments.current_status IN (?) THEN fulfillment_lines.quantity ELSE 0 END),0) AS qty_in_fulfillment, "+
			"COALESCE(SUM(CASE WHEN fulfillments.current_status = ? THEN fulfillment_lines.quantity ELSE 0 END),0) AS qty_shipped",
			[]FulfillmentStatus{FulfillmentStatusPending, FulfillmentStatusPicking, FulfillmentStatusPacked},
			FulfillmentStatusShipped).
		Joins("JOIN fulfillments ON fulfillments.id = fulfillment_lines.fulfillment_id").
		Where("fulfillments.sales_order_id = ?", salesOrderId).
		Group("fulfillment_lines.sales_order_line_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byLine := make(map[int]LineFulfillmentQty, len(rows))
	for _, row := range rows {
		byLine[row.SalesOrderLineId] = LineFulfillmentQty{
			SalesOrderLineId: row.SalesOrderLineId,
			QtyInFulfillment: row.QtyInFulfillment,
			QtyShipped:       row.QtyShipped,
		}
	}

	results := make([]LineFulfillmentQty, 0, len(salesOrder.Lines))
	for _, line := range salesOrder.Lines {
		counters, ok := byLine[line.ID]
		if !ok {
			counters = LineFulfillmentQty{
				SalesOrderLineId: line.ID,
				QtyInFulfillment: decimal.Zero,
				QtyShipped:       decimal.Zero,
			}
		}
		results = append(results, counters)
	}
	return results, nil
}

// CreateFulfillmentTx builds a pending fulfillment inside the caller's
// transaction. A fulfillment only draws from quantity that is allocated and
// not already held by another open fulfillment, it never touches the stock
// summary itself. Stock moves when the fulfillment ships.
func CreateFulfillmentTx(tx *gorm.DB, ctx context.Context, businessId string, input *NewFulfillment) (*Fulfillment, error) {

	var salesOrder SalesOrder
	if err := tx.Preload("Lines").
		Where("business_id = ? AND id = ?", businessId, input.SalesOrderId).
		First(&salesOrder).Error; err != nil {
		return nil, errors.New("sales order not found")
	}

	if salesOrder.CurrentStatus == SalesOrderStatusDraft {
		return nil, errors.New("cannot fulfill a draft sales order")
	}
	if salesOrder.CurrentStatus.IsTerminal() {
		return nil, fmt.Errorf("cannot fulfill a %s sales order", salesOrder.CurrentStatus)
	}

	if len(input.Lines) == 0 {
		return nil, errors.New("fulfillment requires at least one line")
	}

	orderLineByID := make(map[int]*SalesOrderLine, len(salesOrder.Lines))
	for i := range salesOrder.Lines {
		l := &salesOrder.Lines[i]
		orderLineByID[l.ID] = l
	}

	heldByLine, err := OpenFulfillmentQtyByLine(tx, input.SalesOrderId)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(input.Lines))
	var lines []FulfillmentLine
	for _, item := range input.Lines {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, errors.New("fulfillment quantity must be positive")
		}
		if seen[item.SalesOrderLineId] {
			return nil, errors.New("duplicate sales order line on fulfillment")
		}
		seen[item.SalesOrderLineId] = true

		orderLine, ok := orderLineByID[item.SalesOrderLineId]
		if !ok {
			return nil, errors.New("sales order line not found")
		}
		free := orderLine.QuantityAllocated.Sub(heldByLine[item.SalesOrderLineId])
		if item.Quantity.GreaterThan(free) {
			return nil, fmt.Errorf("fulfillment quantity exceeds unheld allocation for %s", orderLine.Name)
		}
		lines = append(lines, FulfillmentLine{
			SalesOrderLineId: item.SalesOrderLineId,
			ProductId:        orderLine.ProductId,
			Quantity:         item.Quantity,
		})
	}

	fulfillment := Fulfillment{
		BusinessId:     businessId,
		SalesOrderId:   input.SalesOrderId,
		WarehouseId:    salesOrder.WarehouseId,
		TrackingNumber: input.TrackingNumber,
		Carrier:        input.Carrier,
		Notes:          input.Notes,
		CurrentStatus:  FulfillmentStatusPending,
		Lines:          lines,
	}

	seqNo, err := utils.GetSequence[Fulfillment](ctx, businessId)
	if err != nil {
		return nil, err
	}
	fulfillment.SequenceNo = seqNo
	fulfillment.FulfillmentNumber = "FF-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&fulfillment).Error; err != nil {
		return nil, err
	}

	if err := EnqueueRowChange(tx, businessId, "fulfillments", fulfillment.ID, RowChangeActionInsert, &fulfillment); err != nil {
		return nil, err
	}

	return &fulfillment, nil
}

// UpdateStatusFulfillment moves a fulfillment through picking and packing.
// Shipping goes through ShipFulfillment because it has stock side effects.
func UpdateStatusFulfillment(ctx context.Context, id int, status string) (*Fulfillment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	nextStatus := FulfillmentStatus(status)
	switch nextStatus {
	case FulfillmentStatusPending, FulfillmentStatusPicking, FulfillmentStatusPacked, FulfillmentStatusCancelled:
	case FulfillmentStatusShipped:
		return nil, errors.New("use the ship operation to ship a fulfillment")
	default:
		return nil, errors.New("invalid fulfillment status")
	}

	fulfillment, err := utils.FetchModelForChange[Fulfillment](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if !fulfillment.CurrentStatus.CanTransitionTo(nextStatus) {
		return nil, fmt.Errorf("cannot move fulfillment from %s to %s", fulfillment.CurrentStatus, nextStatus)
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Model(&fulfillment).Updates(map[string]interface{}{
		"CurrentStatus": nextStatus,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	fulfillment.CurrentStatus = nextStatus

	if _, err := RefreshSalesOrderStatus(tx.WithContext(ctx), businessId, fulfillment.SalesOrderId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := EnqueueRowChange(tx, businessId, "fulfillments", fulfillment.ID, RowChangeActionUpdate, fulfillment); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return fulfillment, nil
}

// ShipFulfillment releases the allocation it holds, moves the quantity from
// committed to shipped on the stock summary and onto the order lines, and
// stamps the fulfillment shipped.
func ShipFulfillment(ctx context.Context, id int) (*Fulfillment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stock", "fulfillment", "ShipFulfillment")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	fulfillment, err := utils.FetchModelForChange[Fulfillment](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	for _, line := range fulfillment.Lines {
		var orderLine SalesOrderLine
		if err := tx.WithContext(ctx).First(&orderLine, line.SalesOrderLineId).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if line.Quantity.GreaterThan(orderLine.QuantityAllocated) {
			tx.Rollback()
			return nil, fmt.Errorf("fulfillment quantity exceeds allocation for %s", orderLine.Name)
		}
		orderLine.QuantityAllocated = orderLine.QuantityAllocated.Sub(line.Quantity)
		orderLine.QuantityFulfilled = orderLine.QuantityFulfilled.Add(line.Quantity)
		if err := tx.WithContext(ctx).Save(&orderLine).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := UpdateStockSummaryShippedQty(tx, businessId, fulfillment.WarehouseId, line.ProductId, line.Quantity); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&fulfillment).Updates(map[string]interface{}{
		"CurrentStatus": FulfillmentStatusShipped,
		"ShippedAt":     &now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	fulfillment.CurrentStatus = FulfillmentStatusShipped
	fulfillment.ShippedAt = &now

	if _, err := RefreshSalesOrderStatus(tx.WithContext(ctx), businessId, fulfillment.SalesOrderId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := EnqueueRowChange(tx, businessId, "fulfillments", fulfillment.ID, RowChangeActionUpdate, fulfillment); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return fulfillment, nil
}

func GetFulfillment(ctx context.Context, id int) (*Fulfillment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Fulfillment](ctx, businessId, id, "Lines")
}

func GetFulfillments(ctx context.Context, salesOrderId int) ([]*Fulfillment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Fulfillment
	err := db.WithContext(ctx).Preload("Lines").
		Where("business_id = ?", businessId).
		Where("sales_order_id = ?", salesOrderId).
		Order("created_at").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateFulfillment(ctx context.Context, limit *int, after *string,
	fulfillmentNumber *string,
	salesOrderID *int,
	status *FulfillmentStatus) (*FulfillmentsConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)

	if fulfillmentNumber != nil && *fulfillmentNumber != "" {
		dbCtx.Where("fulfillment_number LIKE ?", "%"+*fulfillmentNumber+"%")
	}
	if salesOrderID != nil && *salesOrderID > 0 {
		dbCtx.Where("sales_order_id = ?", *salesOrderID)
	}
	if status != nil {
		dbCtx.Where("current_status = ?", *status)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Fulfillment](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var fulfillmentsConnection FulfillmentsConnection
	fulfillmentsConnection.PageInfo = pageInfo
	for _, edge := range edges {
		fulfillmentsEdge := FulfillmentsEdge(edge)
		fulfillmentsConnection.Edges = append(fulfillmentsConnection.Edges, &fulfillmentsEdge)
	}

	return &fulfillmentsConnection, err
}
