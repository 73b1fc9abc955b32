package shopifysync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

type shopifyCustomer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	UpdatedAt string `json:"updated_at"`
	Note      string `json:"note"`

	DefaultAddress *shopifyAddress `json:"default_address"`
}

type shopifyAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

func (a *shopifyAddress) flatten() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Address1, a.Address2, a.City, a.Province, a.Zip, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

type shopifyProduct struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	BodyHTML  string           `json:"body_html"`
	Status    string           `json:"status"`
	UpdatedAt string           `json:"updated_at"`
	Variants  []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	ID              int64       `json:"id"`
	ProductId       int64       `json:"product_id"`
	Title           string      `json:"title"`
	Sku             string      `json:"sku"`
	Barcode         string      `json:"barcode"`
	Price           json.Number `json:"price"`
	InventoryItemId int64       `json:"inventory_item_id"`
}

type shopifyOrder struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
	CancelledAt     *string           `json:"cancelled_at"`
	Note            string            `json:"note"`
	Customer        *shopifyCustomer  `json:"customer"`
	ShippingAddress *shopifyAddress   `json:"shipping_address"`
	BillingAddress  *shopifyAddress   `json:"billing_address"`
	LineItems       []shopifyLineItem `json:"line_items"`
}

type shopifyLineItem struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Sku       string      `json:"sku"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
	ProductId int64       `json:"product_id"`
	VariantId int64       `json:"variant_id"`
}

func processSyncRun(ctx context.Context, payload SyncPubSubPayload) error {
	if payload.RunId == 0 || payload.BusinessId == "" {
		return errors.New("invalid payload")
	}

	ctx = utils.SetBusinessIdInContext(ctx, payload.BusinessId)
	db := config.GetDB().WithContext(ctx)

	var run models.IntegrationSyncRun
	if err := db.Where("id = ? AND business_id = ?", payload.RunId, payload.BusinessId).Take(&run).Error; err != nil {
		return err
	}

	if run.Status == models.SyncRunStatusSuccess || run.Status == models.SyncRunStatusFailed || run.Status == models.SyncRunStatusPartial {
		return nil
	}

	var conn models.IntegrationConnection
	if err := db.Where("id = ? AND business_id = ?", run.ConnectionId, payload.BusinessId).Take(&conn).Error; err != nil {
		return err
	}
	if conn.Status != models.IntegrationStatusConnected {
		return errors.New("shopify not connected")
	}

	modules := DecodeModules(run.ModulesJSON)
	cursorState := DecodeCursorState(conn.CursorStateJSON)

	now := time.Now()
	startedAt := run.StartedAt
	if startedAt == nil {
		startedAt = &now
	}

	if err := db.Model(&run).Updates(map[string]interface{}{
		"status":     models.SyncRunStatusRunning,
		"started_at": startedAt,
	}).Error; err != nil {
		return err
	}

	client, err := newShopifyClient(conn.StoreId, conn.AuthSecretRef)
	if err != nil {
		return err
	}

	stats := map[string]int{
		"products":  0,
		"customers": 0,
		"orders":    0,
	}
	errorCount := 0

	if modules.Products {
		count, cursor, err := syncProducts(ctx, db, run.ID, payload.BusinessId, conn, client, cursorState.Products)
		if err != nil {
			errorCount++
			_ = createSyncError(ctx, db, run.ID, payload.BusinessId, "products", "", "sync_failed", err.Error(), nil, true)
		} else {
			stats["products"] = count
			cursorState.Products = cursor
		}
	}

	if modules.Customers {
		count, cursor, err := syncCustomers(ctx, db, run.ID, payload.BusinessId, conn, client, cursorState.Customers)
		if err != nil {
			errorCount++
			_ = createSyncError(ctx, db, run.ID, payload.BusinessId, "customers", "", "sync_failed", err.Error(), nil, true)
		} else {
			stats["customers"] = count
			cursorState.Customers = cursor
		}
	}

	if modules.Orders {
		count, cursor, err := syncOrders(ctx, db, run.ID, payload.BusinessId, conn, client, cursorState.Orders)
		if err != nil {
			errorCount++
			_ = createSyncError(ctx, db, run.ID, payload.BusinessId, "orders", "", "sync_failed", err.Error(), nil, true)
		} else {
			stats["orders"] = count
			cursorState.Orders = cursor
		}
	}

	finishedAt := time.Now()
	durationMs := finishedAt.Sub(*startedAt).Milliseconds()
	status := models.SyncRunStatusSuccess
	totalSynced := stats["products"] + stats["customers"] + stats["orders"]
	if errorCount > 0 && totalSynced == 0 {
		status = models.SyncRunStatusFailed
	} else if errorCount > 0 {
		status = models.SyncRunStatusPartial
	}

	statsJSON, _ := json.Marshal(stats)
	cursorJSON := EncodeCursorState(cursorState)
	if err := db.Model(&run).Updates(map[string]interface{}{
		"status":            status,
		"finished_at":       finishedAt,
		"duration_ms":       durationMs,
		"records_synced":    totalSynced,
		"error_count":       errorCount,
		"stats_json":        statsJSON,
		"cursor_state_json": cursorJSON,
	}).Error; err != nil {
		return err
	}

	connUpdates := map[string]interface{}{
		"last_sync_at":      finishedAt,
		"cursor_state_json": cursorJSON,
	}
	if status == models.SyncRunStatusSuccess {
		connUpdates["last_success_sync_at"] = finishedAt
	}
	if err := db.Model(&models.IntegrationConnection{}).
		Where("id = ? AND business_id = ?", conn.ID, payload.BusinessId).
		Updates(connUpdates).Error; err != nil {
		return err
	}

	return nil
}

func initialUpdatedSince(cursor CursorEntry, conn models.IntegrationConnection) string {
	updatedSince := strings.TrimSpace(cursor.UpdatedSince)
	if updatedSince == "" && conn.LastSuccessSyncAt != nil {
		updatedSince = conn.LastSuccessSyncAt.UTC().Format(time.RFC3339)
	}
	if updatedSince == "" {
		updatedSince = time.Now().Add(-30 * 24 * time.Hour).UTC().Format(time.RFC3339)
	}
	return updatedSince
}

func listParams(updatedSince, pageInfo string) url.Values {
	params := url.Values{}
	params.Set("limit", "250")
	if pageInfo != "" {
		// Shopify rejects filters when paging with page_info.
		params.Set("page_info", pageInfo)
		return params
	}
	params.Set("updated_at_min", updatedSince)
	return params
}

func syncProducts(ctx context.Context, db *gorm.DB, runID uint, businessId string, conn models.IntegrationConnection, client *shopifyClient, cursor CursorEntry) (int, CursorEntry, error) {
	updatedSince := initialUpdatedSince(cursor, conn)
	pageInfo := strings.TrimSpace(cursor.PageInfo)
	total := 0

	for {
		body, next, err := client.getList(ctx, "/products.json", listParams(updatedSince, pageInfo))
		if err != nil {
			return total, CursorEntry{UpdatedSince: updatedSince, PageInfo: pageInfo}, err
		}

		var page struct {
			Products []shopifyProduct `json:"products"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return total, CursorEntry{UpdatedSince: updatedSince, PageInfo: pageInfo}, err
		}

		for _, product := range page.Products {
			for _, variant := range product.Variants {
				extID := strconv.FormatInt(variant.ID, 10)

				name := strings.TrimSpace(product.Title)
				if v := strings.TrimSpace(variant.Title); v != "" && !strings.EqualFold(v, "Default Title") {
					name = name + " / " + v
				}
				if name == "" {
					name = "Shopify Product " + extID
				}

				sku := strings.TrimSpace(variant.Sku)
				if sku == "" {
					sku = "SHOPIFY-" + extID
				}

				input := &models.NewProduct{
					Name:             name,
					Description:      strings.TrimSpace(product.BodyHTML),
					Sku:              sku,
					Barcode:          strings.TrimSpace(variant.Barcode),
					UnitPrice:        decimalFromNumber(variant.Price),
					ShopifyProductId: strconv.FormatInt(product.ID, 10),
					ShopifyVariantId: extID,
				}

				internalID, err := upsertProduct(ctx, db, businessId, conn.ID, extID, input)
				if err != nil {
					_ = createSyncError(ctx, db, runID, businessId, "product", extID, "sync_failed", err.Error(), nil, true)
					continue
				}
				total++
				_ = touchMapping(ctx, db, businessId, conn.ID, "product", extID, internalID, product.UpdatedAt)
			}
		}

		if next == "" {
			return total, CursorEntry{UpdatedSince: time.Now().UTC().Format(time.RFC3339)}, nil
		}
		pageInfo = next
	}
}

func syncCustomers(ctx context.Context, db *gorm.DB, runID uint, businessId string, conn models.IntegrationConnection, client *shopifyClient, cursor CursorEntry) (int, CursorEntry, error) {
	updatedSince := initialUpdatedSince(cursor, conn)
	pageInfo := strings.TrimSpace(cursor.PageInfo)
	total := 0

	for {
		body, next, err := client.getList(ctx, "/customers.json", listParams(updatedSince, pageInfo))
		if err != nil {
			return total, CursorEntry{UpdatedSince: updatedSince, PageInfo: pageInfo}, err
		}

		var page struct {
			Customers []shopifyCustomer `json:"customers"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return total, CursorEntry{UpdatedSince: updatedSince, PageInfo: pageInfo}, err
		}

		for _, cust := range page.Customers {
			extID := strconv.FormatInt(cust.ID, 10)

			name := strings.TrimSpace(strings.TrimSpace(cust.FirstName) + " " + strings.TrimSpace(cust.LastName))
			if name == "" {
				name = "Shopify Customer " + extID
			}
			phone := strings.TrimSpace(cust.Phone)
			if phone == "" && cust.DefaultAddress != nil {
				phone = strings.TrimSpace(cust.DefaultAddress.Phone)
			}

			input := &models.NewCustomer{
				Name:              name,
				Email:             strings.TrimSpace(cust.Email),
				Phone:             phone,
				ShippingAddress:   cust.DefaultAddress.flatten(),
				BillingAddress:    cust.DefaultAddress.flatten(),
				Notes:             strings.TrimSpace(cust.Note),
				ShopifyCustomerId: extID,
			}

			internalID, err := upsertCustomer(ctx, db, businessId, conn.ID, extID, input)
			if err != nil {
				_ = createSyncError(ctx, db, runID, businessId, "customer", extID, "sync_failed", err.Error(), nil, true)
				continue
			}
			total++
			_ = touchMapping(ctx, db, businessId, conn.ID, "customer", extID, internalID, cust.UpdatedAt)
		}

		if next == "" {
			return total, CursorEntry{UpdatedSince: time.Now().UTC().Format(time.RFC3339)}, nil
		}
		pageInfo = next
	}
}

func syncOrders(ctx context.Context, db *gorm.DB, runID uint, businessId string, conn models.IntegrationConnection, client *shopifyClient, cursor CursorEntry) (int, CursorEntry, error) {
	updatedSince := initialUpdatedSince(cursor, conn)
	pageInfo := strings.TrimSpace(cursor.PageInfo)
	total := 0

	for {
		params := listParams(updatedSince, pageInfo)
		if pageInfo == "" {
			params.Set("status", "open")
		}
		body, next, err := client.getList(ctx, "/orders.json", params)
		if err != nil {
			return total, CursorEntry{UpdatedSince: updatedSince, PageInfo: pageInfo}, err
		}

		var page struct {
			Orders []shopifyOrder `json:"orders"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return total, CursorEntry{UpdatedSince: updatedSince, PageInfo: pageInfo}, err
		}

		for _, order := range page.Orders {
			extID := strconv.FormatInt(order.ID, 10)

			if order.CancelledAt != nil {
				continue
			}

			existing, err := findMapping(ctx, db, businessId, conn.ID, "order", extID)
			if err != nil {
				_ = createSyncError(ctx, db, runID, businessId, "order", extID, "mapping_error", err.Error(), nil, true)
				continue
			}
			if existing != nil {
				total++
				continue
			}

			if err := importOrder(ctx, db, runID, businessId, conn, order, extID); err != nil {
				_ = createSyncError(ctx, db, runID, businessId, "order", extID, "create_failed", err.Error(), nil, true)
				continue
			}
			total++
		}

		if next == "" {
			return total, CursorEntry{UpdatedSince: time.Now().UTC().Format(time.RFC3339)}, nil
		}
		pageInfo = next
	}
}

func importOrder(ctx context.Context, db *gorm.DB, runID uint, businessId string, conn models.IntegrationConnection, order shopifyOrder, extID string) error {
	customerID, err := resolveCustomerForOrder(ctx, db, businessId, conn.ID, order.Customer)
	if err != nil {
		return err
	}

	var lines []models.NewSalesOrderLine
	for _, item := range order.LineItems {
		if item.VariantId == 0 {
			_ = createSyncError(ctx, db, runID, businessId, "order_line", strconv.FormatInt(item.ID, 10),
				"variant_missing", "line item has no variant", nil, false)
			continue
		}
		mapping, err := findMapping(ctx, db, businessId, conn.ID, "product", strconv.FormatInt(item.VariantId, 10))
		if err != nil || mapping == nil {
			_ = createSyncError(ctx, db, runID, businessId, "order_line", strconv.FormatInt(item.ID, 10),
				"product_unmapped", "variant not synced yet", nil, true)
			continue
		}
		productID, err := strconv.Atoi(mapping.InternalId)
		if err != nil {
			continue
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		if qty.LessThanOrEqual(decimal.Zero) {
			qty = decimal.NewFromInt(1)
		}
		lines = append(lines, models.NewSalesOrderLine{
			ProductId:       productID,
			QuantityOrdered: qty,
			UnitPrice:       decimalFromNumber(item.Price),
		})
	}
	if len(lines) == 0 {
		return errors.New("no importable line items")
	}

	input := &models.NewSalesOrder{
		CustomerId:      customerID,
		OrderDate:       parseTimeOrNow(order.CreatedAt),
		ReferenceNumber: strings.TrimSpace(order.Name),
		ShippingAddress: order.ShippingAddress.flatten(),
		BillingAddress:  order.BillingAddress.flatten(),
		Notes:           strings.TrimSpace(order.Note),
		Lines:           lines,
	}

	salesOrder, err := models.CreateSalesOrder(ctx, input)
	if err != nil {
		return err
	}

	if err := db.Model(&models.SalesOrder{}).
		Where("id = ? AND business_id = ?", salesOrder.ID, businessId).
		Updates(map[string]interface{}{
			"channel":          models.OrderChannelShopify,
			"shopify_order_id": extID,
		}).Error; err != nil {
		return err
	}

	// Imported orders are already placed on the channel, confirm immediately.
	if _, err := models.UpdateStatusSalesOrder(ctx, salesOrder.ID, string(models.SalesOrderStatusConfirmed)); err != nil {
		return err
	}

	return createMapping(ctx, db, businessId, conn.ID, "order", extID, strconv.Itoa(salesOrder.ID))
}

func resolveCustomerForOrder(ctx context.Context, db *gorm.DB, businessId string, connectionId uint, cust *shopifyCustomer) (int, error) {
	if cust != nil && cust.ID != 0 {
		extID := strconv.FormatInt(cust.ID, 10)
		if mapping, err := findMapping(ctx, db, businessId, connectionId, "customer", extID); err == nil && mapping != nil {
			if id, err := strconv.Atoi(mapping.InternalId); err == nil {
				return id, nil
			}
		}
		name := strings.TrimSpace(strings.TrimSpace(cust.FirstName) + " " + strings.TrimSpace(cust.LastName))
		if name == "" {
			name = "Shopify Customer " + extID
		}
		input := &models.NewCustomer{
			Name:              name,
			Email:             strings.TrimSpace(cust.Email),
			Phone:             strings.TrimSpace(cust.Phone),
			ShippingAddress:   cust.DefaultAddress.flatten(),
			BillingAddress:    cust.DefaultAddress.flatten(),
			ShopifyCustomerId: extID,
		}
		internalID, err := upsertCustomer(ctx, db, businessId, connectionId, extID, input)
		if err != nil {
			return 0, err
		}
		return strconv.Atoi(internalID)
	}
	return getOrCreateGuestCustomer(ctx, db, businessId)
}

func getOrCreateGuestCustomer(ctx context.Context, db *gorm.DB, businessId string) (int, error) {
	var existing models.Customer
	if err := db.WithContext(ctx).
		Where("business_id = ? AND name = ?", businessId, "Shopify Guest").
		Take(&existing).Error; err == nil {
		return existing.ID, nil
	}

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Shopify Guest"})
	if err != nil {
		return 0, err
	}
	return customer.ID, nil
}

func upsertCustomer(ctx context.Context, db *gorm.DB, businessId string, connectionId uint, externalId string, input *models.NewCustomer) (string, error) {
	mapping, err := findMapping(ctx, db, businessId, connectionId, "customer", externalId)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	if mapping != nil {
		internalID, err := strconv.Atoi(mapping.InternalId)
		if err != nil {
			return "", err
		}
		if _, err := models.UpdateCustomer(ctx, internalID, input); err != nil {
			return "", err
		}
		return mapping.InternalId, nil
	}

	customer, err := models.CreateCustomer(ctx, input)
	if err != nil {
		return "", err
	}

	internalID := strconv.Itoa(customer.ID)
	if err := createMapping(ctx, db, businessId, connectionId, "customer", externalId, internalID); err != nil {
		return "", err
	}
	return internalID, nil
}

func upsertProduct(ctx context.Context, db *gorm.DB, businessId string, connectionId uint, externalId string, input *models.NewProduct) (string, error) {
	mapping, err := findMapping(ctx, db, businessId, connectionId, "product", externalId)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	if mapping != nil {
		internalID, err := strconv.Atoi(mapping.InternalId)
		if err != nil {
			return "", err
		}
		if _, err := models.UpdateProduct(ctx, internalID, input); err != nil {
			return "", err
		}
		return mapping.InternalId, nil
	}

	product, err := models.CreateProduct(ctx, input)
	if err != nil {
		return "", err
	}

	internalID := strconv.Itoa(product.ID)
	if err := createMapping(ctx, db, businessId, connectionId, "product", externalId, internalID); err != nil {
		return "", err
	}
	return internalID, nil
}

// processStockUpdate pushes one product's available quantity to Shopify via
// the inventory levels endpoint.
func processStockUpdate(ctx context.Context, payload StockUpdatePayload) error {
	ctx = utils.SetBusinessIdInContext(ctx, payload.BusinessId)
	db := config.GetDB().WithContext(ctx)

	var conn models.IntegrationConnection
	if err := db.Where("id = ? AND business_id = ?", payload.ConnectionId, payload.BusinessId).Take(&conn).Error; err != nil {
		return err
	}
	if conn.Status != models.IntegrationStatusConnected {
		return nil
	}

	client, err := newShopifyClient(conn.StoreId, conn.AuthSecretRef)
	if err != nil {
		return err
	}

	var variantResp struct {
		Variant shopifyVariant `json:"variant"`
	}
	if err := client.getJSON(ctx, "/variants/"+payload.ShopifyVariantId+".json", &variantResp); err != nil {
		return err
	}
	if variantResp.Variant.InventoryItemId == 0 {
		return fmt.Errorf("variant %s has no inventory item", payload.ShopifyVariantId)
	}

	locationID, err := resolveLocationID(ctx, client)
	if err != nil {
		return err
	}

	available := int64(0)
	if d, err := decimal.NewFromString(payload.Available); err == nil {
		available = d.IntPart()
	}
	if available < 0 {
		available = 0
	}

	return client.postJSON(ctx, "/inventory_levels/set.json", map[string]interface{}{
		"location_id":       locationID,
		"inventory_item_id": variantResp.Variant.InventoryItemId,
		"available":         available,
	}, nil)
}

func resolveLocationID(ctx context.Context, client *shopifyClient) (int64, error) {
	if v := strings.TrimSpace(os.Getenv("SHOPIFY_LOCATION_ID")); v != "" {
		return strconv.ParseInt(v, 10, 64)
	}

	var resp struct {
		Locations []struct {
			ID     int64 `json:"id"`
			Active bool  `json:"active"`
		} `json:"locations"`
	}
	if err := client.getJSON(ctx, "/locations.json", &resp); err != nil {
		return 0, err
	}
	for _, loc := range resp.Locations {
		if loc.Active {
			return loc.ID, nil
		}
	}
	return 0, errors.New("no active shopify location")
}

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}

func parseTimeOrNow(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now()
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Now()
}

func findMapping(ctx context.Context, db *gorm.DB, businessId string, connectionId uint, entityType string, externalId string) (*models.IntegrationEntityMapping, error) {
	var mapping models.IntegrationEntityMapping
	err := db.WithContext(ctx).
		Where("business_id = ? AND connection_id = ? AND provider = ? AND entity_type = ? AND external_id = ?",
			businessId, connectionId, models.IntegrationProviderShopify, entityType, externalId).
		Take(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

func createMapping(ctx context.Context, db *gorm.DB, businessId string, connectionId uint, entityType string, externalId string, internalId string) error {
	mapping := models.IntegrationEntityMapping{
		BusinessId:   businessId,
		ConnectionId: connectionId,
		Provider:     models.IntegrationProviderShopify,
		EntityType:   entityType,
		ExternalId:   externalId,
		InternalId:   internalId,
	}
	return db.WithContext(ctx).Create(&mapping).Error
}

func touchMapping(ctx context.Context, db *gorm.DB, businessId string, connectionId uint, entityType string, externalId string, internalId string, updatedAt string) error {
	var metadata map[string]string
	if strings.TrimSpace(updatedAt) != "" {
		metadata = map[string]string{"updated_at": updatedAt}
	}
	metadataJSON, _ := json.Marshal(metadata)
	return db.WithContext(ctx).
		Model(&models.IntegrationEntityMapping{}).
		Where("business_id = ? AND connection_id = ? AND provider = ? AND entity_type = ? AND external_id = ?",
			businessId, connectionId, models.IntegrationProviderShopify, entityType, externalId).
		Updates(map[string]interface{}{
			"internal_id":   internalId,
			"last_seen_at":  time.Now(),
			"metadata_json": metadataJSON,
		}).Error
}

func createSyncError(ctx context.Context, db *gorm.DB, runId uint, businessId string, entityType string, externalId string, code string, message string, payload []byte, retryable bool) error {
	errRec := models.IntegrationSyncError{
		SyncRunId:   runId,
		BusinessId:  businessId,
		EntityType:  entityType,
		ExternalId:  externalId,
		ErrorCode:   code,
		Message:     message,
		PayloadJSON: payload,
		Retryable:   retryable,
	}
	return db.WithContext(ctx).Create(&errRec).Error
}
