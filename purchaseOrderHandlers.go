package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/models"
)

func (a *app) listSuppliersHandler(c *gin.Context) {
	suppliers, err := models.ListSuppliers(c.Request.Context(), a.db)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

func (a *app) getSupplierHandler(c *gin.Context) {
	supplier, err := models.GetSupplier(c.Request.Context(), a.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (a *app) createSupplierHandler(c *gin.Context) {
	var input models.NewSupplier
	if !bindJSON(c, &input) {
		return
	}
	supplier, err := models.CreateSupplier(c.Request.Context(), a.db, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func (a *app) updateSupplierHandler(c *gin.Context) {
	var patch models.SupplierPatch
	if !bindJSON(c, &patch) {
		return
	}
	supplier, err := models.UpdateSupplier(c.Request.Context(), a.db, c.Param("id"), &patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (a *app) deleteSupplierHandler(c *gin.Context) {
	if err := models.DeleteSupplier(c.Request.Context(), a.db, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) listPurchaseOrdersHandler(c *gin.Context) {
	var status *models.PurchaseOrderStatus
	if v := c.Query("status"); v != "" {
		s := models.PurchaseOrderStatus(v)
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase order status"})
			return
		}
		status = &s
	}
	page, err := models.ListPurchaseOrders(c.Request.Context(), a.db, status, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *app) getPurchaseOrderHandler(c *gin.Context) {
	order, err := models.GetPurchaseOrder(c.Request.Context(), a.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *app) createPurchaseOrderHandler(c *gin.Context) {
	var input models.NewPurchaseOrder
	if !bindJSON(c, &input) {
		return
	}
	order, err := models.CreatePurchaseOrder(c.Request.Context(), a.db, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (a *app) updatePurchaseOrderHandler(c *gin.Context) {
	var patch models.PurchaseOrderPatch
	if !bindJSON(c, &patch) {
		return
	}
	order, err := models.UpdatePurchaseOrder(c.Request.Context(), a.db, c.Param("id"), &patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *app) receivePurchaseOrderHandler(c *gin.Context) {
	order, err := models.ReceivePurchaseOrder(c.Request.Context(), a.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
