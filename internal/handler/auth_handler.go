package handler

import (
	"net/http"

	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	refreshCookie = "refresh_token"
	cookieMaxAge  = 7 * 24 * 60 * 60
)

type AuthHandler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Refresh(c *gin.Context)
	Logout(c *gin.Context)
	ForgotPassword(c *gin.Context)
	VerifyOTP(c *gin.Context)
	ResetPassword(c *gin.Context)
}

type authHandler struct {
	auth   service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth service.AuthService, logger *zap.Logger) AuthHandler {
	return &authHandler{auth: auth, logger: logger}
}

func (h *authHandler) Register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *authHandler) Login(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	h.setRefreshCookie(c, res.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"user":        res.User,
		"accessToken": res.AccessToken,
	})
}

func (h *authHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(refreshCookie)
	if err != nil || refresh == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), refresh)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	h.setRefreshCookie(c, res.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"user":        res.User,
		"accessToken": res.AccessToken,
	})
}

func (h *authHandler) Logout(c *gin.Context) {
	refresh, _ := c.Cookie(refreshCookie)
	if err := h.auth.Logout(c.Request.Context(), refresh); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *authHandler) ForgotPassword(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), in.Email); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the address exists, a code was sent"})
}

func (h *authHandler) VerifyOTP(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	resetToken, err := h.auth.VerifyOTP(c.Request.Context(), in.Email, in.OTP)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resetToken": resetToken})
}

func (h *authHandler) ResetPassword(c *gin.Context) {
	var in struct {
		ResetToken string `json:"resetToken" binding:"required"`
		Password   string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), in.ResetToken, in.Password); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *authHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(refreshCookie, token, cookieMaxAge, "/api/auth", "", false, true)
}
