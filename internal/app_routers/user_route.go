package approuters

import (
	"Ripple/internal/configuration"
	"Ripple/internal/handler"

	"github.com/gin-gonic/gin"
)

func UserRouters(router *gin.Engine, container *configuration.Container) {
	userRoute := router.Group("/api/home/users", handler.RequireAuth(container.Tokens))
	{
		userRoute.GET("/me", container.UserHandler.Me)
		userRoute.PATCH("/me", container.UserHandler.UpdateProfile)
		userRoute.POST("/me/change-password", container.UserHandler.ChangePassword)
		userRoute.GET("/search", container.UserHandler.Search)
		userRoute.GET("/:userId", container.UserHandler.GetByID)
	}
}
