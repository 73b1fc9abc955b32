package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/workflow"
)

func CreateSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.NewSalesOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		order, err := models.CreateSalesOrder(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func UpdateSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewSalesOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		order, err := models.UpdateSalesOrder(c.Request.Context(), id, &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func DeleteSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := models.DeleteSalesOrder(c.Request.Context(), id)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func GetSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := models.GetSalesOrder(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GetSalesOrderDetailHandler serves the composed detail view: reconciled
// line progress, fulfillments, stock positions and incoming supply for
// exactly the products on the order.
func GetSalesOrderDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		detail, err := workflow.GetSalesOrderDetail(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func ListSalesOrdersHandler() gin.HandlerFunc {
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
		customerId, ok := intQuery(c, "customer_id")
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
		var status *models.SalesOrderStatus
		if raw := c.Query("status"); raw != "" {
			s := models.SalesOrderStatus(raw)
			status = &s
		}
		var channel *models.OrderChannel
		if raw := c.Query("channel"); raw != "" {
			ch := models.OrderChannel(raw)
			channel = &ch
		}
		conn, err := models.PaginateSalesOrder(c.Request.Context(), limit, strQuery(c, "after"),
			strQuery(c, "order_number"), strQuery(c, "reference_number"),
			warehouseId, customerId, status, channel, startDate, endDate)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func UpdateSalesOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		order, err := models.UpdateStatusSalesOrder(c.Request.Context(), id, req.Status)
		if err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
