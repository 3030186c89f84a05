package controllers

import (
	"net/http"
	"strconv"

	"bvstock/config"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const salesSheet = "Sheet1"

var salesHeader = []string{"Date", "Distributor", "Phone", "Product", "Quantity", "BV", "Total BV"}

func (ctl *Controller) Summary(c *gin.Context) {
	sum, err := ctl.Store.Summary(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err, "build summary")
		return
	}
	c.JSON(http.StatusOK, sum)
}

// LowStock lists items under ?threshold=, defaulting to the configured one.
func (ctl *Controller) LowStock(c *gin.Context) {
	threshold := ctl.LowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threshold"})
			return
		}
		threshold = n
	}

	items, err := ctl.Store.LowStock(c.Request.Context(), threshold)
	if err != nil {
		ctl.respondError(c, err, "fetch low stock")
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "items": items})
}

// ExportSales streams every sale, newest first, as an xlsx workbook.
func (ctl *Controller) ExportSales(c *gin.Context) {
	sales, err := ctl.Sales.List(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err, "export sales")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, h := range salesHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(salesSheet, cell, h)
	}
	for i, s := range sales {
		var name, phone string
		if s.Distributor != nil {
			name, phone = s.Distributor.Name, s.Distributor.Phone
		}
		row := []any{s.CreatedAt.Format("2006-01-02 15:04"), name, phone, s.Product, s.Quantity, s.BV, s.TotalBV}
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(salesSheet, cell, v)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=sales.xlsx")
	if err := f.Write(c.Writer); err != nil {
		config.LogError(ctl.Logger, "controllers", "ExportSales", "writing workbook", nil, err)
	}
}
