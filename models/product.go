package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type Product struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Name             string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description      string          `gorm:"type:text" json:"description"`
	Unit             string          `gorm:"size:20;default:'pcs'" json:"unit"`
	SupplierId       int             `json:"supplier_id"`
	Sku              string          `gorm:"size:100;not null" json:"sku" binding:"required"`
	Barcode          string          `gorm:"index;size:100" json:"barcode"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	ReorderLevel     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	ShopifyProductId string          `gorm:"index;size:50" json:"shopify_product_id"`
	ShopifyVariantId string          `gorm:"index;size:50" json:"shopify_variant_id"`
	IsActive         *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name             string            `json:"name" binding:"required"`
	Description      string            `json:"description"`
	Unit             string            `json:"unit"`
	SupplierId       int               `json:"supplier_id"`
	Sku              string            `json:"sku" binding:"required"`
	Barcode          string            `json:"barcode"`
	UnitPrice        decimal.Decimal   `json:"unit_price"`
	CostPrice        decimal.Decimal   `json:"cost_price"`
	ReorderLevel     decimal.Decimal   `json:"reorder_level"`
	ShopifyProductId string            `json:"shopify_product_id"`
	ShopifyVariantId string            `json:"shopify_variant_id"`
	OpeningStocks    []NewOpeningStock `json:"opening_stocks"`
}

type NewOpeningStock struct {
	WarehouseId int             `json:"warehouse_id"`
	Qty         decimal.Decimal `json:"qty"`
}

type ProductsEdge Edge[Product]

type ProductsConnection struct {
	PageInfo *PageInfo
	Edges    []*ProductsEdge
}

// implements Node
func (p Product) GetCursor() string {
	return p.CreatedAt.String()
}

// validate input for both create & update. (id = 0 for create)

func (input *NewProduct) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[Product](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Product](ctx, businessId, "sku", input.Sku, id); err != nil {
		return err
	}

	// exists supplier
	if input.SupplierId > 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, businessId, input.SupplierId); err != nil {
			return errors.New("supplier not found")
		}
	}

	if input.UnitPrice.IsNegative() || input.CostPrice.IsNegative() || input.ReorderLevel.IsNegative() {
		return errors.New("prices and reorder level cannot be negative")
	}

	// exists warehouse
	if len(input.OpeningStocks) > 0 {
		var warehouseIds []int
		for _, openingStock := range input.OpeningStocks {
			if openingStock.WarehouseId <= 0 {
				return errors.New("warehouse is required for opening stock")
			}
			if openingStock.Qty.LessThanOrEqual(decimal.Zero) {
				return errors.New("opening stock qty must be positive")
			}
			if slices.Contains(warehouseIds, openingStock.WarehouseId) {
				return errors.New("duplicate warehouse")
			}
			warehouseIds = append(warehouseIds, openingStock.WarehouseId)
		}
		if err := utils.ValidateResourcesId[Warehouse](ctx, businessId, warehouseIds); err != nil {
			return errors.New("warehouse not found")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	// validate product
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = "pcs"
	}

	product := Product{
		BusinessId:       businessId,
		Name:             input.Name,
		Description:      input.Description,
		Unit:             unit,
		SupplierId:       input.SupplierId,
		Sku:              input.Sku,
		Barcode:          input.Barcode,
		UnitPrice:        input.UnitPrice,
		CostPrice:        input.CostPrice,
		ReorderLevel:     input.ReorderLevel,
		ShopifyProductId: input.ShopifyProductId,
		ShopifyVariantId: input.ShopifyVariantId,
		IsActive:         utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()

	err := tx.WithContext(ctx).Create(&product).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// record opening stock per warehouse
	for _, openingStock := range input.OpeningStocks {
		if err := UpdateStockSummaryOpeningQty(tx, businessId, openingStock.WarehouseId, product.ID, openingStock.Qty); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	_ = product.RemoveAllRedis()

	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// id exists
	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	// validate product
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()

	// opening stock can only be set once
	if len(input.OpeningStocks) > 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&StockSummary{}).
			Where("product_id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("cannot create opening stock as stock(s) exist")
		}
	}

	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&product).Updates(map[string]interface{}{
		"Name":             input.Name,
		"Description":      input.Description,
		"Unit":             input.Unit,
		"SupplierId":       input.SupplierId,
		"Sku":              input.Sku,
		"Barcode":          input.Barcode,
		"UnitPrice":        input.UnitPrice,
		"CostPrice":        input.CostPrice,
		"ReorderLevel":     input.ReorderLevel,
		"ShopifyProductId": input.ShopifyProductId,
		"ShopifyVariantId": input.ShopifyVariantId,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, openingStock := range input.OpeningStocks {
		if err := UpdateStockSummaryOpeningQty(tx, businessId, openingStock.WarehouseId, product.ID, openingStock.Qty); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*product); err != nil {
		return nil, err
	}

	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[StockSummary](ctx, "", "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("stock already exists")
	}
	count, err = utils.ResourceCountWhere[SalesOrderLine](ctx, "", "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("transaction already exists")
	}
	count, err = utils.ResourceCountWhere[PurchaseOrderLine](ctx, "", "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("transaction already exists")
	}
	count, err = utils.ResourceCountWhere[FulfillmentLine](ctx, "", "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("transaction already exists")
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}

	return result, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return GetResource[Product](ctx, id)
}

func GetProducts(ctx context.Context, name *string) ([]*Product, error) {
	db := config.GetDB()
	var results []*Product

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	err := dbCtx.Order("name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetProductIDsBySupplierID(supplierId int) ([]int, error) {

	db := config.GetDB()
	var productIDs []int
	result := db.Model(&Product{}).
		Where("supplier_id = ?", supplierId).
		Pluck("id", &productIDs)

	if result.Error != nil {
		return nil, result.Error
	}

	return productIDs, nil
}

func ToggleActiveProduct(ctx context.Context, id int, isActive bool) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return ToggleActiveModel[Product](ctx, businessId, id, isActive)
}

func PaginateProduct(ctx context.Context, limit *int, after *string, name *string, sku *string) (*ProductsConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db := config.GetDB()
	dbCtx := db.WithContext(ctxWithTimeout).Model(&Product{}).Where("business_id = ?", businessId)

	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if sku != nil && *sku != "" {
		dbCtx.Where("sku = ?", *sku)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Product](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var productConnection ProductsConnection
	productConnection.PageInfo = pageInfo
	for _, edge := range edges {
		productEdge := ProductsEdge(edge)
		productConnection.Edges = append(productConnection.Edges, &productEdge)
	}

	return &productConnection, nil
}

type ProductImportRow struct {
	Name          string
	Description   string
	Unit          string
	Sku           string
	Barcode       string
	UnitPrice     decimal.Decimal
	CostPrice     decimal.Decimal
	ReorderLevel  decimal.Decimal
	WarehouseName string
	OpeningQty    decimal.Decimal
}

func populateProductImportRow(row []string) (ProductImportRow, error) {
	unitPrice, err := utils.ParseDecimal(row[5])
	if err != nil {
		return ProductImportRow{}, fmt.Errorf("could not parse unit price: %v", err)
	}

	costPrice, err := utils.ParseDecimal(row[6])
	if err != nil {
		return ProductImportRow{}, fmt.Errorf("could not parse cost price: %v", err)
	}

	reorderLevel := decimal.Zero
	if len(row) > 7 && strings.TrimSpace(row[7]) != "" {
		reorderLevel, err = utils.ParseDecimal(row[7])
		if err != nil {
			return ProductImportRow{}, fmt.Errorf("could not parse reorder level: %v", err)
		}
	}

	importRow := ProductImportRow{
		Name:         row[0],
		Description:  row[1],
		Unit:         row[2],
		Sku:          row[3],
		Barcode:      row[4],
		UnitPrice:    unitPrice,
		CostPrice:    costPrice,
		ReorderLevel: reorderLevel,
	}
	if len(row) > 8 {
		importRow.WarehouseName = row[8]
	}
	if len(row) > 9 && strings.TrimSpace(row[9]) != "" {
		openingQty, err := utils.ParseDecimal(row[9])
		if err != nil {
			return ProductImportRow{}, fmt.Errorf("could not parse opening quantity: %v", err)
		}
		importRow.OpeningQty = openingQty
	}
	return importRow, nil
}

func validateProductImportData(rows [][]string) error {
	for idx, row := range rows[1:] {
		importRow, err := populateProductImportRow(row)
		if err != nil {
			return fmt.Errorf("error in row %d: %v", idx+2, err)
		}
		if len(importRow.Name) == 0 {
			return fmt.Errorf("product name is null in row %d", idx+2)
		}
		if len(importRow.Sku) == 0 {
			return fmt.Errorf("sku is null in row %d", idx+2)
		}
		if !importRow.OpeningQty.IsZero() && len(importRow.WarehouseName) == 0 {
			return fmt.Errorf("warehouse name is required for opening stock in row %d", idx+2)
		}
	}
	return nil
}

func readExcelFile(file io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	return f, nil
}

func ImportProductsFromXlsx(ctx context.Context, filename string, file io.Reader) (string, error) {
	if file == nil {
		return "", errors.New("nil file provided")
	}

	if !strings.HasSuffix(filename, ".xlsx") {
		return "", fmt.Errorf("invalid file type: only .xlsx files are allowed")
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", errors.New("business id is required")
	}

	// keep a copy of the uploaded file for audit
	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("could not read file: %v", err)
	}
	objectName := "importProducts/" + businessId + "_" + utils.GenerateUniqueFilename() + ".xlsx"
	if err := utils.UploadBytesToGCS(ctx, objectName, content,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return "", err
	}

	f, err := readExcelFile(strings.NewReader(string(content)))
	if err != nil {
		return "", err
	}

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return "", fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) < 2 {
		return "", errors.New("no rows to import")
	}

	if err := validateProductImportData(rows); err != nil {
		return "", err
	}

	lock, err := utils.BusinessLock(ctx, businessId, "lock", "product.go", "ImportProductsFromXlsx")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	db := config.GetDB()
	tx := db.Begin()

	duplicateRows := make([]string, 0)

	for idx, row := range rows[1:] {

		importRow, err := populateProductImportRow(row)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("error in row %d: %v", idx+2, err)
		}

		// skip existing products by name or sku
		var existingProduct Product
		err = tx.WithContext(ctx).
			Where("business_id = ? AND (name = ? OR sku = ?)", businessId, importRow.Name, importRow.Sku).
			First(&existingProduct).Error
		if err == nil {
			duplicateRows = append(duplicateRows, fmt.Sprintf("Row %d: Duplicate found for product with Name: %s", idx+2, importRow.Name))
			continue
		} else if err != gorm.ErrRecordNotFound {
			tx.Rollback()
			return "", fmt.Errorf("error checking for duplicates in row %d: %v", idx+2, err)
		}

		unit := importRow.Unit
		if unit == "" {
			unit = "pcs"
		}

		product := Product{
			BusinessId:   businessId,
			Name:         importRow.Name,
			Description:  importRow.Description,
			Unit:         unit,
			Sku:          importRow.Sku,
			Barcode:      importRow.Barcode,
			UnitPrice:    importRow.UnitPrice,
			CostPrice:    importRow.CostPrice,
			ReorderLevel: importRow.ReorderLevel,
			IsActive:     utils.NewTrue(),
		}

		if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
			tx.Rollback()
			return "", fmt.Errorf("could not create product: %v", err)
		}

		if !importRow.OpeningQty.IsZero() {
			var warehouse Warehouse
			err = tx.WithContext(ctx).
				Where("business_id = ? AND name = ?", businessId, importRow.WarehouseName).
				First(&warehouse).Error
			if err != nil {
				tx.Rollback()
				return "", fmt.Errorf("warehouse not found in row %d: %v", idx+2, err)
			}
			if err := UpdateStockSummaryOpeningQty(tx, businessId, warehouse.ID, product.ID, importRow.OpeningQty); err != nil {
				tx.Rollback()
				return "", err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}

	if len(duplicateRows) > 0 {
		return fmt.Sprintf("imported successfully with duplicates: %v", duplicateRows), nil
	}

	return "imported successfully", nil
}

// returns a download url for an xlsx export of current stock positions
func ExportStockPositionsXlsx(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", errors.New("business id is required")
	}

	db := config.GetDB()
	type exportRow struct {
		ProductName  string
		Sku          string
		WarehouseId  int
		CurrentQty   decimal.Decimal
		CommittedQty decimal.Decimal
		OrderQty     decimal.Decimal
		ShippedQty   decimal.Decimal
	}
	var exportRows []exportRow
	err := db.WithContext(ctx).Model(&StockSummary{}).
		Select("products.name AS product_name, products.sku AS sku, stock_summaries.warehouse_id, stock_summaries.current_qty, stock_summaries.committed_qty, stock_summaries.order_qty, stock_summaries.shipped_qty").
		Joins("JOIN products ON products.id = stock_summaries.product_id").
		Where("stock_summaries.business_id = ?", businessId).
		Order("products.name").
		Scan(&exportRows).Error
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	headers := []string{"Product", "SKU", "Warehouse", "Current Qty", "Committed Qty", "On Order Qty", "Shipped Qty", "Available Qty"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return "", err
		}
	}
	for i, r := range exportRows {
		available := r.CurrentQty.Sub(r.CommittedQty)
		values := []interface{}{
			r.ProductName, r.Sku, r.WarehouseId,
			r.CurrentQty.String(), r.CommittedQty.String(),
			r.OrderQty.String(), r.ShippedQty.String(), available.String(),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return "", err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", err
	}

	objectName := "exports/" + businessId + "_stock_" + utils.GenerateUniqueFilename() + ".xlsx"
	if err := utils.UploadBytesToGCS(ctx, objectName, buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return "", err
	}

	return utils.BuildObjectAccessURL(objectName), nil
}

// readExcelFileFromURL keeps the URL-based import path working for re-runs
// against previously uploaded files.
func readExcelFileFromURL(fileURL string) (*excelize.File, error) {
	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from URL: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: received status code %d", resp.StatusCode)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}

	return f, nil
}
