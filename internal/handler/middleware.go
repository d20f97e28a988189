package handler

import (
	"net/http"
	"strings"

	"Ripple/internal/token"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ctxUserID = "userId"

// RequireAuth validates the bearer access token and stores the caller's id
// on the request context.
func RequireAuth(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing access token"})
			return
		}
		userID, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		id, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed token subject"})
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller set by RequireAuth.
func CurrentUserID(c *gin.Context) primitive.ObjectID {
	id, _ := c.Get(ctxUserID)
	oid, _ := id.(primitive.ObjectID)
	return oid
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
