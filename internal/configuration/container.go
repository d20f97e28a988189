package configuration

import (
	"context"
	"fmt"
	"time"

	"Ripple/internal/db"
	"Ripple/internal/handler"
	"Ripple/internal/hub"
	"Ripple/internal/mail"
	"Ripple/internal/model"
	"Ripple/internal/repo"
	"Ripple/internal/service"
	"Ripple/internal/session"
	"Ripple/internal/token"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	AuthHandler         handler.AuthHandler
	UserHandler         handler.UserHandler
	FriendHandler       handler.FriendHandler
	ConversationHandler handler.ConversationHandler
	MessageHandler      handler.MessageHandler
	NotificationHandler handler.NotificationHandler
	Tokens              *token.Manager
	Hub                 *hub.Hub
	Config              Config
	Logger              *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
	redisClient *redis.Client
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	userRepo := repo.NewUserRepository(con, db.NewRepository[model.User](con, config.Mongo.UsersCollection), logger)
	friendRepo := repo.NewFriendRepository(con, db.NewRepository[model.Friend](con, config.Mongo.FriendsCollection), logger)
	requestRepo := repo.NewFriendRequestRepository(con, db.NewRepository[model.FriendRequest](con, config.Mongo.FriendRequestsCollection), logger)
	conversationRepo := repo.NewConversationRepository(con, db.NewRepository[model.Conversation](con, config.Mongo.ConversationsCollection), logger)
	messageRepo := repo.NewMessageRepository(con, db.NewRepository[model.Message](con, config.Mongo.MessagesCollection), logger)
	notificationRepo := repo.NewNotificationRepository(con, db.NewRepository[model.Notification](con, config.Mongo.NotificationsCollection), logger)

	tokens := token.NewManager(config.Auth.JWTSecret, config.AccessTokenTTL())
	sessions := session.NewStore(rdb, config.RefreshTokenTTL())
	mailer := mail.NewLogMailer(logger)

	socketHub := hub.NewHub(tokens, userRepo, config.Server.AllowedOrigins, logger)
	deliverer := socketHub.Router()

	authService := service.NewAuthService(userRepo, tokens, sessions, mailer, logger)
	userService := service.NewUserService(userRepo, friendRepo, requestRepo, logger)
	friendService := service.NewFriendService(friendRepo, requestRepo, userRepo, conversationRepo, notificationRepo, deliverer, logger)
	conversationService := service.NewConversationService(conversationRepo, messageRepo, userRepo, friendRepo, notificationRepo, deliverer, logger)
	messageService := service.NewMessageService(messageRepo, conversationRepo, friendRepo, deliverer, logger)
	notificationService := service.NewNotificationService(notificationRepo, deliverer, logger)

	return &Container{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		FriendHandler:       handler.NewFriendHandler(friendService, logger),
		ConversationHandler: handler.NewConversationHandler(conversationService, logger),
		MessageHandler:      handler.NewMessageHandler(messageService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		Tokens:              tokens,
		Hub:                 socketHub,
		Config:              *config,
		Logger:              logger,
		mongoClient:         con,
		redisClient:         rdb,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}

	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("close mongo: %w", err)
		}
	}

	return nil
}
