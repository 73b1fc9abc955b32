package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

func GetFulfillmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		fulfillment, err := models.GetFulfillment(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		c.JSON(http.StatusOK, fulfillment)
	}
}

func ListFulfillmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}
		salesOrderId, ok := intQuery(c, "sales_order_id")
		if !ok {
			return
		}
		var status *models.FulfillmentStatus
		if raw := c.Query("status"); raw != "" {
			s := models.FulfillmentStatus(raw)
			status = &s
		}
		conn, err := models.PaginateFulfillment(c.Request.Context(), limit, strQuery(c, "after"),
			strQuery(c, "fulfillment_number"), salesOrderId, status)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func UpdateFulfillmentStatusHandler() gin.HandlerFunc {
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
		fulfillment, err := models.UpdateStatusFulfillment(c.Request.Context(), id, req.Status)
		if err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		c.JSON(http.StatusOK, fulfillment)
	}
}

// ShipFulfillmentHandler moves the held allocation into shipped quantity
// on both the order lines and the stock summary.
func ShipFulfillmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		fulfillment, err := models.ShipFulfillment(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		c.JSON(http.StatusOK, fulfillment)
	}
}
