package handler

import (
	"net/http"
	"time"

	"Ripple/internal/repo"
	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MessageHandler interface {
	List(c *gin.Context)
	Send(c *gin.Context)
	Edit(c *gin.Context)
	Recall(c *gin.Context)
	ToggleReaction(c *gin.Context)
	Search(c *gin.Context)
}

type messageHandler struct {
	messages service.MessageService
	logger   *zap.Logger
}

func NewMessageHandler(messages service.MessageService, logger *zap.Logger) MessageHandler {
	return &messageHandler{messages: messages, logger: logger}
}

func (h *messageHandler) List(c *gin.Context) {
	convID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}
	query := repo.MessageQuery{PaginationParams: parsePagination(c)}
	if before := c.Query("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			badRequest(c, "before must be RFC3339")
			return
		}
		query.Before = t
	}
	msgs, total, err := h.messages.List(c.Request.Context(), CurrentUserID(c), convID, query)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "total": total})
}

func (h *messageHandler) Send(c *gin.Context) {
	var in service.SendMessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.messages.Send(c.Request.Context(), CurrentUserID(c), in)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *messageHandler) Edit(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	var in struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.messages.Edit(c.Request.Context(), CurrentUserID(c), messageID, in.Content)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *messageHandler) Recall(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	if err := h.messages.Recall(c.Request.Context(), CurrentUserID(c), messageID); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recalled"})
}

func (h *messageHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	var in struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.messages.ToggleReaction(c.Request.Context(), CurrentUserID(c), messageID, in.Emoji)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *messageHandler) Search(c *gin.Context) {
	msgs, total, err := h.messages.Search(c.Request.Context(), CurrentUserID(c), c.Query("q"), parsePagination(c))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "total": total})
}
