package approuters

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Ripple/internal/configuration"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func StartServer(container *configuration.Container) {
	h := container.Hub
	logger := container.Logger

	socketRoute := container.Config.Server.SocketRoute
	if socketRoute == "" {
		socketRoute = "ws"
	}
	socketMux := http.NewServeMux()
	socketMux.HandleFunc("/"+socketRoute, h.ServeWS)

	socketServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", container.Config.Server.SocketPort),
		Handler:      socketMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	appServer := createAppServer(container)

	serverErrors := make(chan error, 2)

	go func() {
		logger.Info("socket server starting", zap.String("addr", socketServer.Addr))
		if err := socketServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("socket server error: %w", err)
		}
	}()

	go func() {
		logger.Info("application server starting", zap.String("addr", appServer.Addr))
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("app server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("stopping hub, closing all websocket connections")
	h.Stop()

	if err := socketServer.Shutdown(ctx); err != nil {
		logger.Warn("socket server shutdown error", zap.Error(err))
	}
	if err := appServer.Shutdown(ctx); err != nil {
		logger.Warn("app server shutdown error", zap.Error(err))
	}

	logger.Info("graceful shutdown complete")
}

func createAppServer(container *configuration.Container) *http.Server {
	router := gin.Default()

	origins := container.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:4200"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to Ripple Application Server!",
		})
	})

	AuthRouters(router, container)
	UserRouters(router, container)
	FriendRouters(router, container)
	ConversationRouters(router, container)
	MessageRouters(router, container)
	NotificationRouters(router, container)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", container.Config.Server.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
