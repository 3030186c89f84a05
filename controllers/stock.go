package controllers

import (
	"errors"
	"net/http"
	"strings"

	"bvstock/models"
	"bvstock/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stockInput struct {
	Name     *string  `json:"name"`
	Quantity *int     `json:"quantity"`
	BV       *float64 `json:"bv"`
}

func (ctl *Controller) CreateStock(c *gin.Context) {
	var input stockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" || input.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and quantity are required"})
		return
	}
	if *input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must not be negative"})
		return
	}

	item := models.StockItem{
		Name:     strings.TrimSpace(*input.Name),
		Quantity: *input.Quantity,
		AddedBy:  currentUserID(c),
	}
	if input.BV != nil {
		if *input.BV < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "BV must not be negative"})
			return
		}
		item.BV = *input.BV
	}

	if err := ctl.Store.CreateStock(c.Request.Context(), &item); err != nil {
		ctl.respondError(c, err, "create stock item")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (ctl *Controller) ListStock(c *gin.Context) {
	items, err := ctl.Store.ListStock(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		ctl.respondError(c, err, "fetch stock")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (ctl *Controller) GetStock(c *gin.Context) {
	id, ok := parseID(c, "stock")
	if !ok {
		return
	}
	item, err := ctl.Store.GetStock(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "fetch stock item")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (ctl *Controller) UpdateStock(c *gin.Context) {
	id, ok := parseID(c, "stock")
	if !ok {
		return
	}

	var upd models.StockUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	if upd.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name must not be blank"})
			return
		}
		upd.Name = &name
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must not be negative"})
		return
	}
	if upd.BV != nil && *upd.BV < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BV must not be negative"})
		return
	}

	item, err := ctl.Store.UpdateStock(c.Request.Context(), id, upd)
	if err != nil {
		ctl.respondError(c, err, "update stock item")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (ctl *Controller) DeleteStock(c *gin.Context) {
	id, ok := parseID(c, "stock")
	if !ok {
		return
	}
	if err := ctl.Store.DeleteStock(c.Request.Context(), id); err != nil {
		ctl.respondError(c, err, "delete stock item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock deleted successfully"})
}

// Restock adds to an existing item matched by name regardless of case, or
// creates it.
func (ctl *Controller) Restock(c *gin.Context) {
	var input stockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" || input.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and quantity are required"})
		return
	}
	if *input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be a positive number"})
		return
	}
	if input.BV != nil && *input.BV < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BV must not be negative"})
		return
	}

	item, created, err := ctl.Store.RestockByName(c.Request.Context(), strings.TrimSpace(*input.Name), *input.Quantity, input.BV)
	if err != nil {
		ctl.respondError(c, err, "restock item")
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"message": "Stock item created", "stock": item})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock quantity updated", "stock": item})
}

func (ctl *Controller) UploadStockPhoto(c *gin.Context) {
	id, ok := parseID(c, "stock")
	if !ok {
		return
	}
	if ctl.Photos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo storage is not configured"})
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo is required"})
		return
	}
	if file.Size > utils.MaxPhotoSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds the 5MB limit"})
		return
	}
	if _, err := ctl.Store.GetStock(c.Request.Context(), id); err != nil {
		ctl.respondError(c, err, "upload photo")
		return
	}

	mainURL, previewURL, err := ctl.Photos.Upload(c.Request.Context(), file, id.Hex())
	if err != nil {
		if errors.Is(err, utils.ErrUnsupportedPhoto) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only JPEG and PNG photos are supported"})
			return
		}
		ctl.respondError(c, err, "upload photo")
		return
	}

	item, err := ctl.Store.SetStockPhoto(c.Request.Context(), id, mainURL, previewURL)
	if err != nil {
		ctl.respondError(c, err, "upload photo")
		return
	}
	c.JSON(http.StatusOK, item)
}

func currentUserID(c *gin.Context) *primitive.ObjectID {
	raw := c.GetString("userID")
	if raw == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil
	}
	return &id
}
