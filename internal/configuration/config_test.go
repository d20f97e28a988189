package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"mongo": {"uri": "mongodb://localhost:27017", "database": "ripple"},
		"redis": {"addr": "localhost:6379", "db": 1},
		"auth": {"jwt_secret": "file-secret", "access_token_ttl": "45m"},
		"server": {"app_port": 9090, "socket_port": 9091, "socket_route": "ws"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.Uri)
	assert.Equal(t, "ripple", cfg.Mongo.Database)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 9090, cfg.Server.AppPort)
	assert.Equal(t, "ws", cfg.Server.SocketRoute)
	assert.Equal(t, 45*time.Minute, cfg.AccessTokenTTL())
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	path := writeConfig(t, `{
		"mongo": {"uri": "mongodb://file-host"},
		"auth": {"jwt_secret": "file-secret"}
	}`)

	t.Setenv("MONGO_URI", "mongodb://env-host")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("REDIS_ADDR", "env-redis:6379")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://env-host", cfg.Mongo.Uri)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestTokenTTLDefaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL())

	cfg.Auth.AccessTokenTTL = "nonsense"
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL(), "unparseable values fall back")
}
