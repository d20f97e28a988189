package approuters

import (
	"Ripple/internal/configuration"
	"Ripple/internal/handler"

	"github.com/gin-gonic/gin"
)

func MessageRouters(router *gin.Engine, container *configuration.Container) {
	messageRoute := router.Group("/api/home/messages", handler.RequireAuth(container.Tokens))
	{
		messageRoute.POST("", container.MessageHandler.Send)
		messageRoute.GET("/search", container.MessageHandler.Search)
		messageRoute.PATCH("/:messageId", container.MessageHandler.Edit)
		messageRoute.POST("/:messageId/recall", container.MessageHandler.Recall)
		messageRoute.POST("/:messageId/reactions", container.MessageHandler.ToggleReaction)
	}
}
