package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

func CreateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func UpdateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBadRequest(c, err)
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func DeleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func GetProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func ListProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}
		conn, err := models.PaginateProduct(c.Request.Context(), limit, strQuery(c, "after"),
			strQuery(c, "name"), strQuery(c, "sku"))
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func ToggleActiveProductHandler() gin.HandlerFunc {
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
		product, err := models.ToggleActiveProduct(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// ImportProductsHandler takes a multipart xlsx upload and bulk-creates
// products.
func ImportProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			abortError(c, http.StatusBadRequest, "file is required")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		defer file.Close()

		message, err := models.ImportProductsFromXlsx(c.Request.Context(), fileHeader.Filename, file)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// ExportStockPositionsHandler writes the current stock positions into an
// xlsx workbook and returns its download URL.
func ExportStockPositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		url, err := models.ExportStockPositionsXlsx(c.Request.Context())
		if err != nil {
			abortBadRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}
