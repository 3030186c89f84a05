package controllers

import (
	"net/http"
	"strings"

	"bvstock/models"
	"bvstock/utils"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) ListUsers(c *gin.Context) {
	users, err := ctl.Store.ListUsers(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err, "fetch users")
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	c.JSON(http.StatusOK, users)
}

func (ctl *Controller) CreateUser(c *gin.Context) {
	var u models.User
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	u.Username = strings.TrimSpace(u.Username)

	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		ctl.respondError(c, err, "hash password")
		return
	}
	u.Password = hashed

	if err := ctl.Store.CreateUser(c.Request.Context(), &u); err != nil {
		ctl.respondError(c, err, "create user")
		return
	}
	u.Password = ""
	c.JSON(http.StatusCreated, u)
}
