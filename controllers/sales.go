package controllers

import (
	"net/http"

	"bvstock/services"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) CreateSale(c *gin.Context) {
	var input services.SaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	sale, err := ctl.Sales.Create(c.Request.Context(), input)
	if err != nil {
		ctl.respondError(c, err, "record sale")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Sale recorded successfully", "sale": sale})
}

func (ctl *Controller) ListSales(c *gin.Context) {
	sales, err := ctl.Sales.List(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err, "fetch sales")
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (ctl *Controller) UpdateSale(c *gin.Context) {
	id, ok := parseID(c, "sale")
	if !ok {
		return
	}

	var input services.SaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	sale, err := ctl.Sales.Update(c.Request.Context(), id, input)
	if err != nil {
		ctl.respondError(c, err, "update sale")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sale updated successfully", "updatedSale": sale})
}

func (ctl *Controller) DeleteSale(c *gin.Context) {
	id, ok := parseID(c, "sale")
	if !ok {
		return
	}
	if err := ctl.Sales.Delete(c.Request.Context(), id); err != nil {
		ctl.respondError(c, err, "delete sale")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sale deleted successfully"})
}
