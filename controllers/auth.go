package controllers

import (
	"errors"
	"net/http"
	"time"

	"bvstock/models"
	"bvstock/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const tokenCookieAge = 3600 * 24

type loginInput struct {
	Username string `json:"username" binding:"required,notblank"`
	Password string `json:"password" binding:"required"`
}

func (ctl *Controller) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	ctx := c.Request.Context()
	user, err := ctl.Store.FindUserByUsername(ctx, input.Username)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		ctl.respondError(c, err, "log in")
		return
	}
	if err := utils.VerifyPassword(user.Password, input.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		ctl.respondError(c, err, "generate token")
		return
	}

	session := models.Session{
		UserID:    user.ID,
		Role:      user.Role,
		IP:        clientIP(c),
		Device:    c.Request.UserAgent(),
		Timestamp: time.Now().UTC(),
	}
	if err := ctl.Store.RecordSession(ctx, &session); err != nil {
		ctl.respondError(c, err, "record session")
		return
	}

	c.SetCookie("token", token, tokenCookieAge, "/", "", ctl.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"userID":   user.ID.Hex(),
		"role":     user.Role,
		"fullName": user.FullName,
	})
}

func (ctl *Controller) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", ctl.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the caller resolved from the token.
func (ctl *Controller) Me(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
		return
	}
	user, err := ctl.Store.GetUser(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "fetch user")
		return
	}
	user.Password = ""
	c.JSON(http.StatusOK, user)
}
