package controllers

import (
	"net/http"
	"strings"

	"bvstock/models"
	"bvstock/utils"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) CreateDistributor(c *gin.Context) {
	var d models.Distributor
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	d.Name = strings.TrimSpace(d.Name)

	d.Phone = utils.NormalizePhone(d.Phone, ctl.PhoneRegion)

	if err := ctl.Store.CreateDistributor(c.Request.Context(), &d); err != nil {
		ctl.respondError(c, err, "create distributor")
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (ctl *Controller) ListDistributors(c *gin.Context) {
	list, err := ctl.Store.ListDistributors(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err, "fetch distributors")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (ctl *Controller) GetDistributor(c *gin.Context) {
	id, ok := parseID(c, "distributor")
	if !ok {
		return
	}
	d, err := ctl.Store.GetDistributor(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "fetch distributor")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (ctl *Controller) UpdateDistributor(c *gin.Context) {
	id, ok := parseID(c, "distributor")
	if !ok {
		return
	}

	var upd models.DistributorUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}
		upd.Name = &name
	}
	if upd.Phone != nil {
		phone := utils.NormalizePhone(*upd.Phone, ctl.PhoneRegion)
		upd.Phone = &phone
	}

	d, err := ctl.Store.UpdateDistributor(c.Request.Context(), id, upd)
	if err != nil {
		ctl.respondError(c, err, "update distributor")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (ctl *Controller) DeleteDistributor(c *gin.Context) {
	id, ok := parseID(c, "distributor")
	if !ok {
		return
	}
	if err := ctl.Store.DeleteDistributor(c.Request.Context(), id); err != nil {
		ctl.respondError(c, err, "delete distributor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Distributor deleted"})
}
