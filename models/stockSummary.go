package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockSummary struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;not null;uniqueIndex:uniq_stock" json:"business_id"`
	WarehouseId  int             `gorm:"index;not null;uniqueIndex:uniq_stock" json:"warehouse_id"`
	ProductId    int             `gorm:"index;not null;uniqueIndex:uniq_stock" json:"product_id"`
	OpeningQty   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_qty"`
	OrderQty     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"order_qty"`
	ReceivedQty  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"received_qty"`
	CommittedQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"committed_qty"`
	ShippedQty   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipped_qty"`
	CurrentQty   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_qty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// on-hand minus committed, what a new allocation can actually take
func (s StockSummary) AvailableQty() decimal.Decimal {
	return s.CurrentQty.Sub(s.CommittedQty)
}

func FirstOrCreateStockSummary(tx *gorm.DB, businessId string, warehouseId int, productId int) (*StockSummary, bool, error) {
	isNew := false
	stockSummary := StockSummary{
		BusinessId:  businessId,
		ProductId:   productId,
		WarehouseId: warehouseId,
	}
	// FirstOrCreate will try to find a record matching the conditions, and if it doesn't find one, it will create a new record
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND product_id = ? AND warehouse_id = ?",
			businessId, productId, warehouseId).
		FirstOrCreate(&stockSummary)
	if result.Error != nil {
		tx.Rollback()
		return nil, isNew, result.Error
	}
	if result.RowsAffected == 1 {
		isNew = true
	}

	return &stockSummary, isNew, nil
}

// lock summary rows for all products of a document up front, in one statement,
// so concurrent postings cannot deadlock on row order
func BulkLockStockSummary(tx *gorm.DB, businessId string, warehouseId int, productIds []int) error {
	var stockSummary []StockSummary
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND product_id IN (?) AND warehouse_id = ?",
			businessId, productIds, warehouseId).
		Find(&stockSummary).Error; err != nil {
		return err
	}
	return nil
}

// opening stock, counts straight into on-hand
func UpdateStockSummaryOpeningQty(tx *gorm.DB, businessId string, warehouseId int, productId int, quantity decimal.Decimal) error {
	if productId > 0 {
		stockSummary, _, err := FirstOrCreateStockSummary(tx, businessId, warehouseId, productId)
		if err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Exec("UPDATE stock_summaries SET opening_qty = opening_qty + ?, current_qty = current_qty + ? WHERE id = ? ", quantity, quantity, stockSummary.ID).Error; err != nil {
			tx.Rollback()
			return err
		}
		ProcessStockIntegration(tx, businessId, productId)
	}
	return nil
}

// on-order from issued purchase orders, pass a negative quantity when receiving or cancelling
func UpdateStockSummaryOrderQty(tx *gorm.DB, businessId string, warehouseId int, productId int, quantity decimal.Decimal) error {
	if productId > 0 {
		stockSummary, _, err := FirstOrCreateStockSummary(tx, businessId, warehouseId, productId)
		if err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Exec("UPDATE stock_summaries SET order_qty = order_qty + ? WHERE id = ? ", quantity, stockSummary.ID).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return nil
}

// goods received into the warehouse
func UpdateStockSummaryReceivedQty(tx *gorm.DB, businessId string, warehouseId int, productId int, quantity decimal.Decimal) error {
	if productId > 0 {
		stockSummary, _, err := FirstOrCreateStockSummary(tx, businessId, warehouseId, productId)
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Exec("UPDATE stock_summaries SET received_qty = received_qty + ?, current_qty = current_qty + ? WHERE id = ? ", quantity, quantity, stockSummary.ID).Error; err != nil {
			tx.Rollback()
			return err
		}
		ProcessStockIntegration(tx, businessId, productId)
	}

	return nil
}

// reserve on-hand stock against a sales order line, pass a negative quantity to release
func UpdateStockSummaryCommittedQty(tx *gorm.DB, businessId string, warehouseId int, productId int, quantity decimal.Decimal) error {
	if productId > 0 {
		stockSummary, _, err := FirstOrCreateStockSummary(tx, businessId, warehouseId, productId)
		if err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Exec("UPDATE stock_summaries SET committed_qty = committed_qty + ? WHERE id = ? ", quantity, stockSummary.ID).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return nil
}

// ship previously committed stock out of the warehouse
func UpdateStockSummaryShippedQty(tx *gorm.DB, businessId string, warehouseId int, productId int, quantity decimal.Decimal) error {
	if productId > 0 {
		stockSummary, _, err := FirstOrCreateStockSummary(tx, businessId, warehouseId, productId)
		if err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Exec("UPDATE stock_summaries SET shipped_qty = shipped_qty + ?, committed_qty = committed_qty - ?, current_qty = current_qty - ? WHERE id = ? ", quantity, quantity, quantity, stockSummary.ID).Error; err != nil {
			tx.Rollback()
			return err
		}
		ProcessStockIntegration(tx, businessId, productId)
	}

	return nil
}

func GetAvailableStocks(ctx context.Context, warehouseId int) ([]*StockSummary, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	// check if warehouse exists and belong to the business
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, warehouseId); err != nil {
		return nil, errors.New("warehouse not found")
	}

	var stockSummaries []*StockSummary
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("warehouse_id = ?", warehouseId).
		Not("current_qty = 0").
		Find(&stockSummaries).Error; err != nil {
		return nil, err
	}
	return stockSummaries, nil
}

func GetStockInHand(ctx context.Context, productId int) (decimal.Decimal, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return decimal.Zero, errors.New("business id is required")
	}

	var stockInHand decimal.Decimal
	db := config.GetDB()

	err := db.WithContext(ctx).
		Model(&StockSummary{}).
		Select("COALESCE(SUM(current_qty), 0)").
		Where("business_id = ?", businessId).
		Where("product_id = ?", productId).
		Scan(&stockInHand).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	return stockInHand, nil
}

// per-product position aggregated over warehouses
type StockPosition struct {
	ProductId    int             `json:"product_id"`
	CurrentQty   decimal.Decimal `json:"current_qty"`
	CommittedQty decimal.Decimal `json:"committed_qty"`
	OrderQty     decimal.Decimal `json:"order_qty"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	NetRequired  decimal.Decimal `json:"net_required"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Severity     StockSeverity   `json:"severity"`
}

func (p *StockPosition) computeSeverity() {
	p.AvailableQty = p.CurrentQty.Sub(p.CommittedQty)
	switch {
	case p.AvailableQty.LessThanOrEqual(decimal.Zero):
		p.Severity = StockSeverityDanger
	case p.AvailableQty.LessThanOrEqual(p.ReorderLevel):
		p.Severity = StockSeverityWarn
	default:
		p.Severity = StockSeveritySuccess
	}
}

// computeNetRequired derives the demand that neither available stock nor
// incoming purchase orders cover, floored at zero. Call after
// computeSeverity, which settles AvailableQty.
func (p *StockPosition) computeNetRequired(openDemand decimal.Decimal) {
	required := openDemand.Sub(p.AvailableQty).Sub(p.OrderQty)
	if required.IsNegative() {
		required = decimal.Zero
	}
	p.NetRequired = required
}

// GetStockPositions batches one query over the exact product ids requested.
// Products without summary rows get zero positions, never missing entries.
func GetStockPositions(ctx context.Context, productIds []int, warehouseId *int) ([]*StockPosition, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	productIds = utils.UniqueSlice(productIds)
	if len(productIds) == 0 {
		return []*StockPosition{}, nil
	}

	if err := utils.ValidateResourcesId[Product, int](ctx, businessId, productIds); err != nil {
		return nil, errors.New("product not found")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&StockSummary{}).
		Select("product_id, COALESCE(SUM(current_qty),0) AS current_qty, COALESCE(SUM(committed_qty),0) AS committed_qty, COALESCE(SUM(order_qty),0) AS order_qty").
		Where("business_id = ?", businessId).
		Where("product_id IN (?)", productIds)
	if warehouseId != nil && *warehouseId > 0 {
		dbCtx = dbCtx.Where("warehouse_id = ?", *warehouseId)
	}
	var rows []*StockPosition
	if err := dbCtx.Group("product_id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	byProduct := make(map[int]*StockPosition, len(rows))
	for _, row := range rows {
		byProduct[row.ProductId] = row
	}

	var reorderRows []struct {
		ID           int
		ReorderLevel decimal.Decimal
	}
	if err := db.WithContext(ctx).Model(&Product{}).
		Select("id, reorder_level").
		Where("business_id = ? AND id IN (?)", businessId, productIds).
		Scan(&reorderRows).Error; err != nil {
		return nil, err
	}
	reorderByProduct := make(map[int]decimal.Decimal, len(reorderRows))
	for _, r := range reorderRows {
		reorderByProduct[r.ID] = r.ReorderLevel
	}

	// open sales order demand still outstanding, per product
	demandQuery := db.WithContext(ctx).Model(&SalesOrderLine{}).
		Select("sales_order_lines.product_id, COALESCE(SUM(sales_order_lines.quantity_ordered - sales_order_lines.quantity_allocated - sales_order_lines.quantity_fulfilled),0) AS demand").
		Joins("JOIN sales_orders ON sales_orders.id = sales_order_lines.sales_order_id").
		Where("sales_orders.business_id = ?", businessId).
		Where("sales_order_lines.product_id IN (?)", productIds).
		Where("sales_orders.current_status NOT IN ?", []SalesOrderStatus{
			SalesOrderStatusDraft, SalesOrderStatusCompleted, SalesOrderStatusCancelled,
		})
	if warehouseId != nil && *warehouseId > 0 {
		demandQuery = demandQuery.Where("sales_orders.warehouse_id = ?", *warehouseId)
	}
	var demandRows []struct {
		ProductId int
		Demand    decimal.Decimal
	}
	if err := demandQuery.Group("sales_order_lines.product_id").Scan(&demandRows).Error; err != nil {
		return nil, err
	}
	demandByProduct := make(map[int]decimal.Decimal, len(demandRows))
	for _, r := range demandRows {
		demandByProduct[r.ProductId] = r.Demand
	}

	results := make([]*StockPosition, 0, len(productIds))
	for _, productId := range productIds {
		position, ok := byProduct[productId]
		if !ok {
			position = &StockPosition{ProductId: productId}
		}
		position.ReorderLevel = reorderByProduct[productId]
		position.computeSeverity()
		position.computeNetRequired(demandByProduct[productId])
		results = append(results, position)
	}
	return results, nil
}

// notify the sales channel when on-hand stock moves
func ProcessStockIntegration(tx *gorm.DB, businessId string, productId int) error {
	return PublishShopifyStockSync(tx, businessId, productId)
}
