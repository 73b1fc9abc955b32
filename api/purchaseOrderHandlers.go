package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

func CreatePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.NewPurchaseOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		order, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func UpdatePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewPurchaseOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		order, err := models.UpdatePurchaseOrder(c.Request.Context(), id, &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func DeletePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := models.DeletePurchaseOrder(c.Request.Context(), id)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func GetPurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := models.GetPurchaseOrder(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func ListPurchaseOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}
		warehouseId, ok := intQuery(c, "warehouse_id")
		if !ok {
			return
		}
		supplierId, ok := intQuery(c, "supplier_id")
		if !ok {
			return
		}
		startDate, ok := dateQuery(c, "start_order_date")
		if !ok {
			return
		}
		endDate, ok := dateQuery(c, "end_order_date")
		if !ok {
			return
		}
		var status *models.PurchaseOrderStatus
		if raw := c.Query("status"); raw != "" {
			s := models.PurchaseOrderStatus(raw)
			status = &s
		}
		conn, err := models.PaginatePurchaseOrder(c.Request.Context(), limit, strQuery(c, "after"),
			strQuery(c, "order_number"), strQuery(c, "reference_number"),
			warehouseId, supplierId, status, startDate, endDate)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func IssuePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := models.IssuePurchaseOrder(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type receivePurchaseOrderRequest struct {
	Receipts []models.PurchaseOrderReceiptLine `json:"receipts" binding:"required"`
}

func ReceivePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req receivePurchaseOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		order, err := models.ReceivePurchaseOrder(c.Request.Context(), id, req.Receipts)
		if err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func ClosePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := models.ClosePurchaseOrder(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func CancelPurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := models.CancelPurchaseOrder(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
