package api

import (
	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/realtime"
	"bitbucket.org/mmdatafocus/warehub_backend/shopifysync"
)

// RegisterRoutes mounts every application endpoint on the router. Session
// and identity middleware are installed by the caller before this runs.
func RegisterRoutes(r *gin.Engine) {
	// auth
	r.POST("/auth/register", RegisterHandler())
	r.POST("/auth/login", LoginHandler())
	r.POST("/auth/logout", LogoutHandler())
	r.POST("/auth/change-password", ChangePasswordHandler())
	r.GET("/users", ListUsersHandler())
	r.POST("/users", CreateUserHandler())

	// masters
	r.POST("/customers", CreateCustomerHandler())
	r.GET("/customers", ListCustomersHandler())
	r.GET("/customers/:id", GetCustomerHandler())
	r.PUT("/customers/:id", UpdateCustomerHandler())
	r.DELETE("/customers/:id", DeleteCustomerHandler())
	r.POST("/customers/:id/toggle-active", ToggleActiveCustomerHandler())

	r.POST("/suppliers", CreateSupplierHandler())
	r.GET("/suppliers", ListSuppliersHandler())
	r.GET("/suppliers/:id", GetSupplierHandler())
	r.PUT("/suppliers/:id", UpdateSupplierHandler())
	r.DELETE("/suppliers/:id", DeleteSupplierHandler())
	r.POST("/suppliers/:id/toggle-active", ToggleActiveSupplierHandler())

	r.POST("/warehouses", CreateWarehouseHandler())
	r.GET("/warehouses", ListWarehousesHandler())
	r.PUT("/warehouses/:id", UpdateWarehouseHandler())
	r.DELETE("/warehouses/:id", DeleteWarehouseHandler())
	r.POST("/warehouses/:id/toggle-active", ToggleActiveWarehouseHandler())

	r.POST("/products", CreateProductHandler())
	r.GET("/products", ListProductsHandler())
	r.GET("/products/:id", GetProductHandler())
	r.PUT("/products/:id", UpdateProductHandler())
	r.DELETE("/products/:id", DeleteProductHandler())
	r.POST("/products/:id/toggle-active", ToggleActiveProductHandler())
	r.POST("/products/import", ImportProductsHandler())

	// sales orders
	r.POST("/sales-orders", CreateSalesOrderHandler())
	r.GET("/sales-orders", ListSalesOrdersHandler())
	r.GET("/sales-orders/:id", GetSalesOrderHandler())
	r.GET("/sales-orders/:id/detail", GetSalesOrderDetailHandler())
	r.PUT("/sales-orders/:id", UpdateSalesOrderHandler())
	r.DELETE("/sales-orders/:id", DeleteSalesOrderHandler())
	r.POST("/sales-orders/:id/status", UpdateSalesOrderStatusHandler())

	// allocation gateway
	r.POST("/sales-orders/:id/allocate", AllocateAndConfirmOrderHandler())
	r.POST("/sales-orders/:id/fulfill", FulfillOrderHandler())
	r.GET("/sales-orders/:id/fulfillment-qty", GetLineFulfillmentQtyHandler())
	r.POST("/sales-order-lines/:lineId/allocate", AllocateLineItemHandler())
	r.POST("/sales-order-lines/:lineId/revert-allocation", RevertLineAllocationHandler())
	r.POST("/fulfillments", CreateFulfillmentHandler())

	// fulfillments
	r.GET("/fulfillments", ListFulfillmentsHandler())
	r.GET("/fulfillments/:id", GetFulfillmentHandler())
	r.POST("/fulfillments/:id/status", UpdateFulfillmentStatusHandler())
	r.POST("/fulfillments/:id/ship", ShipFulfillmentHandler())

	// purchase orders
	r.POST("/purchase-orders", CreatePurchaseOrderHandler())
	r.GET("/purchase-orders", ListPurchaseOrdersHandler())
	r.GET("/purchase-orders/:id", GetPurchaseOrderHandler())
	r.PUT("/purchase-orders/:id", UpdatePurchaseOrderHandler())
	r.DELETE("/purchase-orders/:id", DeletePurchaseOrderHandler())
	r.POST("/purchase-orders/:id/issue", IssuePurchaseOrderHandler())
	r.POST("/purchase-orders/:id/receive", ReceivePurchaseOrderHandler())
	r.POST("/purchase-orders/:id/close", ClosePurchaseOrderHandler())
	r.POST("/purchase-orders/:id/cancel", CancelPurchaseOrderHandler())

	// stock
	r.GET("/stocks/available/:warehouseId", GetAvailableStocksHandler())
	r.GET("/stocks/positions", GetStockPositionsHandler())
	r.GET("/stocks/incoming-supply", GetIncomingSupplyHandler())
	r.GET("/stocks/in-hand/:productId", GetStockInHandHandler())
	r.GET("/stocks/export", ExportStockPositionsHandler())

	// realtime row-change feed
	r.GET("/stream/row-changes", realtime.StreamHandler())

	// shopify channel
	r.GET("/integrations/shopify/status", shopifysync.StatusHandler())
	r.POST("/integrations/shopify/connect", shopifysync.ConnectHandler())
	r.POST("/integrations/shopify/disconnect", shopifysync.DisconnectHandler())
	r.PUT("/integrations/shopify/settings", shopifysync.UpdateSettingsHandler())
	r.POST("/integrations/shopify/sync", shopifysync.TriggerSyncHandler())
	r.GET("/integrations/shopify/sync-history", shopifysync.SyncHistoryHandler())
	r.GET("/integrations/shopify/sync-runs/:id", shopifysync.SyncRunDetailHandler())
	r.POST("/integrations/shopify/sync-runs/:id/retry", shopifysync.RetrySyncRunHandler())

	// pub/sub push endpoints
	r.POST("/pubsub/shopify-sync", shopifysync.PubSubPushHandler())
	r.POST("/pubsub/shopify-stock", shopifysync.StockUpdatePushHandler())
}
