package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

// idsQuery parses a comma separated list of product ids.
func idsQuery(c *gin.Context, name string) ([]int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			abortError(c, http.StatusBadRequest, name+" must be a comma separated list of ids")
			return nil, false
		}
		ids = append(ids, n)
	}
	return ids, true
}

func GetAvailableStocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		warehouseId, ok := idParam(c, "warehouseId")
		if !ok {
			return
		}
		stocks, err := models.GetAvailableStocks(c.Request.Context(), warehouseId)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, stocks)
	}
}

// GetStockPositionsHandler returns per-product positions (on hand,
// committed, available, severity) for the requested product ids.
func GetStockPositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		productIds, ok := idsQuery(c, "product_ids")
		if !ok {
			return
		}
		if len(productIds) == 0 {
			abortError(c, http.StatusBadRequest, "product_ids is required")
			return
		}
		warehouseId, ok := intQuery(c, "warehouse_id")
		if !ok {
			return
		}
		positions, err := models.GetStockPositions(c.Request.Context(), productIds, warehouseId)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, positions)
	}
}

// GetIncomingSupplyHandler returns open purchase order quantities per
// product, the expected inbound stock.
func GetIncomingSupplyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		productIds, ok := idsQuery(c, "product_ids")
		if !ok {
			return
		}
		if len(productIds) == 0 {
			abortError(c, http.StatusBadRequest, "product_ids is required")
			return
		}
		warehouseId, ok := intQuery(c, "warehouse_id")
		if !ok {
			return
		}
		supply, err := models.GetIncomingSupply(c.Request.Context(), productIds, warehouseId)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, supply)
	}
}

func GetStockInHandHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		productId, ok := idParam(c, "productId")
		if !ok {
			return
		}
		qty, err := models.GetStockInHand(c.Request.Context(), productId)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product_id": productId, "quantity": qty})
	}
}
