package approuters

import (
	"Ripple/internal/configuration"
	"Ripple/internal/handler"

	"github.com/gin-gonic/gin"
)

func FriendRouters(router *gin.Engine, container *configuration.Container) {
	friendRoute := router.Group("/api/home/friends", handler.RequireAuth(container.Tokens))
	{
		friendRoute.GET("", container.FriendHandler.ListFriends)
		friendRoute.GET("/check/:userId", container.FriendHandler.CheckFriendship)
		friendRoute.DELETE("/:userId", container.FriendHandler.Unfriend)
	}

	requestRoute := router.Group("/api/home/friend-requests", handler.RequireAuth(container.Tokens))
	{
		requestRoute.POST("", container.FriendHandler.SendRequest)
		requestRoute.GET("/sent", container.FriendHandler.ListSent)
		requestRoute.GET("/received", container.FriendHandler.ListReceived)
		requestRoute.POST("/:requestId/accept", container.FriendHandler.AcceptRequest)
		requestRoute.POST("/:requestId/decline", container.FriendHandler.DeclineRequest)
		requestRoute.DELETE("/:requestId", container.FriendHandler.CancelRequest)
	}
}
