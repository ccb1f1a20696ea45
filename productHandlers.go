package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/models"
)

func (a *app) listProductsHandler(c *gin.Context) {
	filter := models.ProductFilter{
		ActiveOnly: c.Query("active_only") == "true",
		Search:     c.Query("search"),
	}
	if v := c.Query("category"); v != "" {
		category := models.ProductCategory(v)
		if !category.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product category"})
			return
		}
		filter.Category = &category
	}
	page, err := models.ListProducts(c.Request.Context(), a.db, filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *app) lowStockHandler(c *gin.Context) {
	products, err := models.ListLowStockProducts(c.Request.Context(), a.db, queryInt(c, "limit", a.cfg.LowStockPageSize))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (a *app) getProductHandler(c *gin.Context) {
	product, err := models.GetProduct(c.Request.Context(), a.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *app) createProductHandler(c *gin.Context) {
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), a.db, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (a *app) updateProductHandler(c *gin.Context) {
	var patch models.ProductPatch
	if !bindJSON(c, &patch) {
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), a.db, c.Param("id"), &patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *app) listStockMovementsHandler(c *gin.Context) {
	filter := models.StockMovementFilter{ProductId: c.Query("product_id")}
	if v := c.Query("type"); v != "" {
		mt := models.MovementType(v)
		if !mt.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement type"})
			return
		}
		filter.Type = &mt
	}
	from, _, err := queryDate(c, "from", a.cfg.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	to, ok, err := queryDate(c, "to", a.cfg.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	if ok {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	filter.From, filter.To = from, to
	page, err := models.ListStockMovements(c.Request.Context(), a.db, filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *app) recordStockMovementHandler(c *gin.Context) {
	var input models.NewStockMovement
	if !bindJSON(c, &input) {
		return
	}
	movement, err := models.RecordStockMovement(c.Request.Context(), a.db, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (a *app) createSalesHandler(c *gin.Context) {
	var input models.NewSalesRecords
	if !bindJSON(c, &input) {
		return
	}
	records, err := models.CreateSalesRecords(c.Request.Context(), a.db, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, records)
}

func (a *app) listShiftSalesHandler(c *gin.Context) {
	records, err := models.ListSalesRecordsByShift(c.Request.Context(), a.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// importSalesHandler takes a multipart "file" (.csv or .xlsx) of POS sales for one shift.
func (a *app) importSalesHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes+1024*1024)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required (max 5MB)"})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondInternal(c, err)
		return
	}
	defer file.Close()

	rows, err := models.ParseSalesImport(header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := models.ImportSalesRecords(c.Request.Context(), a.db, c.Param("id"), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
