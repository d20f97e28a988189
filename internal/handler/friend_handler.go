package handler

import (
	"net/http"

	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type FriendHandler interface {
	ListFriends(c *gin.Context)
	CheckFriendship(c *gin.Context)
	Unfriend(c *gin.Context)
	SendRequest(c *gin.Context)
	ListSent(c *gin.Context)
	ListReceived(c *gin.Context)
	AcceptRequest(c *gin.Context)
	DeclineRequest(c *gin.Context)
	CancelRequest(c *gin.Context)
}

type friendHandler struct {
	friends service.FriendService
	logger  *zap.Logger
}

func NewFriendHandler(friends service.FriendService, logger *zap.Logger) FriendHandler {
	return &friendHandler{friends: friends, logger: logger}
}

func (h *friendHandler) ListFriends(c *gin.Context) {
	profiles, err := h.friends.ListFriends(c.Request.Context(), CurrentUserID(c), c.Query("q"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": profiles})
}

func (h *friendHandler) CheckFriendship(c *gin.Context) {
	ok, err := h.friends.CheckFriendship(c.Request.Context(), CurrentUserID(c), c.Param("userId"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isFriend": ok})
}

func (h *friendHandler) Unfriend(c *gin.Context) {
	if err := h.friends.Unfriend(c.Request.Context(), CurrentUserID(c), c.Param("userId")); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unfriended"})
}

func (h *friendHandler) SendRequest(c *gin.Context) {
	var in struct {
		To      string `json:"to" binding:"required"`
		Message string `json:"message" binding:"max=280"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	req, err := h.friends.SendRequest(c.Request.Context(), CurrentUserID(c), in.To, in.Message)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": req})
}

func (h *friendHandler) ListSent(c *gin.Context) {
	views, total, err := h.friends.ListSent(c.Request.Context(), CurrentUserID(c), parsePagination(c))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": views, "total": total})
}

func (h *friendHandler) ListReceived(c *gin.Context) {
	views, total, err := h.friends.ListReceived(c.Request.Context(), CurrentUserID(c), parsePagination(c))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": views, "total": total})
}

func (h *friendHandler) AcceptRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("requestId"))
	if err != nil {
		badRequest(c, "invalid request id")
		return
	}
	friend, err := h.friends.AcceptRequest(c.Request.Context(), CurrentUserID(c), requestID)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friend": friend})
}

func (h *friendHandler) DeclineRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("requestId"))
	if err != nil {
		badRequest(c, "invalid request id")
		return
	}
	if err := h.friends.DeclineRequest(c.Request.Context(), CurrentUserID(c), requestID); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "declined"})
}

func (h *friendHandler) CancelRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("requestId"))
	if err != nil {
		badRequest(c, "invalid request id")
		return
	}
	if err := h.friends.CancelRequest(c.Request.Context(), CurrentUserID(c), requestID); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancelled"})
}
