package handler

import (
	"net/http"
	"strconv"

	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserHandler interface {
	Me(c *gin.Context)
	GetByID(c *gin.Context)
	UpdateProfile(c *gin.Context)
	ChangePassword(c *gin.Context)
	Search(c *gin.Context)
}

type userHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) UserHandler {
	return &userHandler{users: users, logger: logger}
}

func (h *userHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *userHandler) GetByID(c *gin.Context) {
	targetID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}
	profile, err := h.users.GetProfile(c.Request.Context(), CurrentUserID(c), targetID)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *userHandler) UpdateProfile(c *gin.Context) {
	var patch service.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), CurrentUserID(c), patch)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *userHandler) ChangePassword(c *gin.Context) {
	var in struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), CurrentUserID(c), in.CurrentPassword, in.NewPassword); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *userHandler) Search(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	results, err := h.users.Search(c.Request.Context(), CurrentUserID(c), c.Query("q"), limit)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": results})
}
