package approuters

import (
	"Ripple/internal/configuration"
	"Ripple/internal/handler"

	"github.com/gin-gonic/gin"
)

func NotificationRouters(router *gin.Engine, container *configuration.Container) {
	notificationRoute := router.Group("/api/home/notifications", handler.RequireAuth(container.Tokens))
	{
		notificationRoute.GET("", container.NotificationHandler.List)
		notificationRoute.PATCH("/:notificationId", container.NotificationHandler.SetRead)
		notificationRoute.POST("/read-all", container.NotificationHandler.MarkAllRead)
		notificationRoute.DELETE("/:notificationId", container.NotificationHandler.Delete)
	}
}
