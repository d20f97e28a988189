package configuration

import (
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type MongoConfig struct {
	Uri                      string `json:"uri"`
	Database                 string `json:"database"`
	UsersCollection          string `json:"usersCollection"`
	FriendsCollection        string `json:"friendsCollection"`
	FriendRequestsCollection string `json:"friendRequestsCollection"`
	ConversationsCollection  string `json:"conversationsCollection"`
	MessagesCollection       string `json:"messagesCollection"`
	NotificationsCollection  string `json:"notificationsCollection"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AuthConfig struct {
	JWTSecret       string `json:"jwt_secret"`
	AccessTokenTTL  string `json:"access_token_ttl"`
	RefreshTokenTTL string `json:"refresh_token_ttl"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port"`
	SocketPort     int      `json:"socket_port"`
	SocketRoute    string   `json:"socket_route"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type Config struct {
	Mongo  MongoConfig  `json:"mongo"`
	Redis  RedisConfig  `json:"redis"`
	Auth   AuthConfig   `json:"auth"`
	Server ServerConfig `json:"server"`
}

// AccessTokenTTL parses the configured access token lifetime, defaulting to
// 30 minutes.
func (c *Config) AccessTokenTTL() time.Duration {
	return parseDuration(c.Auth.AccessTokenTTL, 30*time.Minute)
}

// RefreshTokenTTL parses the configured refresh session lifetime, defaulting
// to 7 days.
func (c *Config) RefreshTokenTTL() time.Duration {
	return parseDuration(c.Auth.RefreshTokenTTL, 7*24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// LoadConfig reads the JSON config file, then overlays secrets from the
// environment. A .env file is loaded first when present so local runs need
// no exported variables.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	overlayEnv(&config)
	return &config, nil
}

func overlayEnv(config *Config) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		config.Mongo.Uri = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}
