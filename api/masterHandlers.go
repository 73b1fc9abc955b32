package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

func dateQuery(c *gin.Context, name string) (*models.MyDateString, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02T15:04:05", raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		abortError(c, http.StatusBadRequest, name+" must be a date like 2006-01-02")
		return nil, false
	}
	d := models.MyDateString(t)
	return &d, true
}

func boolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	default:
		return nil
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// --- customers ---

func CreateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		customer, err := models.CreateCustomer(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	}
}

func UpdateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func DeleteCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		customer, err := models.DeleteCustomer(c.Request.Context(), id)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func GetCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		customer, err := models.GetCustomer(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func ListCustomersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}
		conn, err := models.PaginateCustomer(c.Request.Context(), limit, strQuery(c, "after"),
			strQuery(c, "name"), strQuery(c, "phone"), strQuery(c, "mobile"),
			strQuery(c, "email"), boolQuery(c, "is_active"))
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func ToggleActiveCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		customer, err := models.ToggleActiveCustomer(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

// --- suppliers ---

func CreateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		supplier, err := models.CreateSupplier(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, supplier)
	}
}

func UpdateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		supplier, err := models.UpdateSupplier(c.Request.Context(), id, &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

func DeleteSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		supplier, err := models.DeleteSupplier(c.Request.Context(), id)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

func GetSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		supplier, err := models.GetSupplier(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

func ListSuppliersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}
		conn, err := models.PaginateSupplier(c.Request.Context(), limit, strQuery(c, "after"),
			strQuery(c, "name"), strQuery(c, "phone"), strQuery(c, "email"),
			boolQuery(c, "is_active"))
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func ToggleActiveSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		supplier, err := models.ToggleActiveSupplier(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

// --- warehouses ---

func CreateWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.NewWarehouse
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		warehouse, err := models.CreateWarehouse(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, warehouse)
	}
}

func UpdateWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewWarehouse
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		warehouse, err := models.UpdateWarehouse(c.Request.Context(), id, &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}

func DeleteWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		warehouse, err := models.DeleteWarehouse(c.Request.Context(), id)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}

func ListWarehousesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		warehouses, err := models.ListWarehouse(c.Request.Context(), strQuery(c, "name"))
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, warehouses)
	}
}

func ToggleActiveWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		warehouse, err := models.ToggleActiveWarehouse(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}
