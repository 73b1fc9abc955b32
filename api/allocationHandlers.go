package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/workflow"
)

// Allocation gateway endpoints. Every mutating procedure requires an
// Idempotency-Key header; retrying with the same key replays the stored
// result instead of re-running the allocation.

func requireRequestKey(c *gin.Context) (string, bool) {
	key := requestKey(c)
	if key == "" {
		abortError(c, http.StatusBadRequest, "Idempotency-Key header is required")
		return "", false
	}
	return key, true
}

func AllocateAndConfirmOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		key, ok := requireRequestKey(c)
		if !ok {
			return
		}
		writeResult(c, workflow.AllocateInventoryAndConfirmOrder(c.Request.Context(), id, key))
	}
}

type allocateLineRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

func AllocateLineItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		lineId, ok := idParam(c, "lineId")
		if !ok {
			return
		}
		key, ok := requireRequestKey(c)
		if !ok {
			return
		}
		var req allocateLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		writeResult(c, workflow.AllocateLineItem(c.Request.Context(), lineId, req.Quantity, key))
	}
}

func RevertLineAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		lineId, ok := idParam(c, "lineId")
		if !ok {
			return
		}
		key, ok := requireRequestKey(c)
		if !ok {
			return
		}
		writeResult(c, workflow.RevertLineAllocation(c.Request.Context(), lineId, key))
	}
}

func CreateFulfillmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		key, ok := requireRequestKey(c)
		if !ok {
			return
		}
		var input models.NewFulfillment
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		writeResult(c, workflow.CreateFulfillmentAndReallocate(c.Request.Context(), &input, key))
	}
}

func FulfillOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		key, ok := requireRequestKey(c)
		if !ok {
			return
		}
		writeResult(c, workflow.FulfillOrder(c.Request.Context(), id, key))
	}
}

func GetLineFulfillmentQtyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		writeResult(c, workflow.GetLineFulfillmentQty(c.Request.Context(), id))
	}
}
