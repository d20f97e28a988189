package approuters

import (
	"Ripple/internal/configuration"
	"Ripple/internal/handler"

	"github.com/gin-gonic/gin"
)

func ConversationRouters(router *gin.Engine, container *configuration.Container) {
	convRoute := router.Group("/api/home/conversations", handler.RequireAuth(container.Tokens))
	{
		convRoute.GET("", container.ConversationHandler.List)
		convRoute.POST("/direct", container.ConversationHandler.GetOrCreateDirect)
		convRoute.POST("/group", container.ConversationHandler.CreateGroup)
		convRoute.GET("/:conversationId", container.ConversationHandler.Get)
		convRoute.PATCH("/:conversationId/name", container.ConversationHandler.RenameGroup)
		convRoute.POST("/:conversationId/members", container.ConversationHandler.AddMembers)
		convRoute.DELETE("/:conversationId/members/:userId", container.ConversationHandler.RemoveMember)
		convRoute.POST("/:conversationId/read", container.ConversationHandler.MarkRead)
		convRoute.DELETE("/:conversationId", container.ConversationHandler.DeleteOrLeave)
		convRoute.GET("/:conversationId/messages", container.MessageHandler.List)
	}
}
