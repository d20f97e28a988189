package handler

import (
	"net/http"

	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler interface {
	List(c *gin.Context)
	SetRead(c *gin.Context)
	MarkAllRead(c *gin.Context)
	Delete(c *gin.Context)
}

type notificationHandler struct {
	notifications service.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifications service.NotificationService, logger *zap.Logger) NotificationHandler {
	return &notificationHandler{notifications: notifications, logger: logger}
}

func (h *notificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	page, err := h.notifications.List(c.Request.Context(), CurrentUserID(c), unreadOnly, parsePagination(c))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *notificationHandler) SetRead(c *gin.Context) {
	notificationID, ok := pathID(c, "notificationId")
	if !ok {
		return
	}
	var in struct {
		Read *bool `json:"read" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.notifications.SetRead(c.Request.Context(), CurrentUserID(c), notificationID, *in.Read); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (h *notificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), CurrentUserID(c)); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all read"})
}

func (h *notificationHandler) Delete(c *gin.Context) {
	notificationID, ok := pathID(c, "notificationId")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), CurrentUserID(c), notificationID); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
