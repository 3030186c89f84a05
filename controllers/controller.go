package controllers

import (
	"context"
	"mime/multipart"
	"net/http"

	"bvstock/services"
	"bvstock/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PhotoUploader interface {
	Upload(ctx context.Context, file *multipart.FileHeader, stockID string) (string, string, error)
}

// Controller carries the dependencies shared by every handler.
type Controller struct {
	Store             store.Store
	Sales             *services.SaleService
	Photos            PhotoUploader
	Logger            *logrus.Logger
	PhoneRegion       string
	LowStockThreshold int
	SecureCookies     bool
}

func parseID(c *gin.Context, entity string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + entity + " ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func clientIP(c *gin.Context) string {
	if ip := c.Request.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
