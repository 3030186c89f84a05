package controllers

import (
	"net/http"

	"bvstock/models"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) ListCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, models.Catalog())
}

func (ctl *Controller) GetCatalogEntry(c *gin.Context) {
	entry, ok := models.LookupCatalog(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
