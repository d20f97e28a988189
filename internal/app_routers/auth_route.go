package approuters

import (
	"Ripple/internal/configuration"

	"github.com/gin-gonic/gin"
)

func AuthRouters(router *gin.Engine, container *configuration.Container) {
	authRoute := router.Group("/api/auth")
	{
		authRoute.POST("/register", container.AuthHandler.Register)
		authRoute.POST("/login", container.AuthHandler.Login)
		authRoute.POST("/refresh", container.AuthHandler.Refresh)
		authRoute.POST("/logout", container.AuthHandler.Logout)
		authRoute.POST("/forgot-password", container.AuthHandler.ForgotPassword)
		authRoute.POST("/verify-otp", container.AuthHandler.VerifyOTP)
		authRoute.POST("/reset-password", container.AuthHandler.ResetPassword)
	}
}
