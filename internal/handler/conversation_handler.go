package handler

import (
	"net/http"

	"Ripple/internal/repo"
	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ConversationHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	GetOrCreateDirect(c *gin.Context)
	CreateGroup(c *gin.Context)
	RenameGroup(c *gin.Context)
	AddMembers(c *gin.Context)
	RemoveMember(c *gin.Context)
	MarkRead(c *gin.Context)
	DeleteOrLeave(c *gin.Context)
}

type conversationHandler struct {
	conversations service.ConversationService
	logger        *zap.Logger
}

func NewConversationHandler(conversations service.ConversationService, logger *zap.Logger) ConversationHandler {
	return &conversationHandler{conversations: conversations, logger: logger}
}

func (h *conversationHandler) List(c *gin.Context) {
	query := repo.ConversationQuery{
		Type:             c.Query("type"),
		Search:           c.Query("q"),
		PaginationParams: parsePagination(c),
	}
	views, total, err := h.conversations.List(c.Request.Context(), CurrentUserID(c), query)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": views, "total": total})
}

func (h *conversationHandler) Get(c *gin.Context) {
	convID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}
	view, err := h.conversations.Get(c.Request.Context(), CurrentUserID(c), convID)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": view})
}

func (h *conversationHandler) GetOrCreateDirect(c *gin.Context) {
	var in struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.conversations.GetOrCreateDirect(c.Request.Context(), CurrentUserID(c), in.UserID)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": view})
}

func (h *conversationHandler) CreateGroup(c *gin.Context) {
	var in service.CreateGroupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.conversations.CreateGroup(c.Request.Context(), CurrentUserID(c), in)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": view})
}

func (h *conversationHandler) RenameGroup(c *gin.Context) {
	convID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}
	var in struct {
		Name string `json:"name" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.conversations.RenameGroup(c.Request.Context(), CurrentUserID(c), convID, in.Name); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "renamed"})
}

func (h *conversationHandler) AddMembers(c *gin.Context) {
	convID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}
	var in struct {
		MemberIDs []string `json:"memberIds" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.conversations.AddMembers(c.Request.Context(), CurrentUserID(c), convID, in.MemberIDs); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "members added"})
}

func (h *conversationHandler) RemoveMember(c *gin.Context) {
	convID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}
	if err := h.conversations.RemoveMember(c.Request.Context(), CurrentUserID(c), convID, c.Param("userId")); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

func (h *conversationHandler) MarkRead(c *gin.Context) {
	convID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}
	if err := h.conversations.MarkRead(c.Request.Context(), CurrentUserID(c), convID); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}

func (h *conversationHandler) DeleteOrLeave(c *gin.Context) {
	convID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}
	if err := h.conversations.DeleteOrLeave(c.Request.Context(), CurrentUserID(c), convID); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func pathID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		badRequest(c, "invalid "+param)
		return primitive.NilObjectID, false
	}
	return id, true
}
