package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextKeyClientID is the Gin context key for the browser client ID.
	ContextKeyClientID = "client_id"
	// ClientCookieName is the cookie that identifies one browser profile.
	ClientCookieName = "annotate_client"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// ClientID assigns each browser a stable random identifier via a long-lived
// cookie. Preferences and in-progress answers are keyed by it, so a returning
// browser picks up where it left off without any login.
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(ClientCookieName)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(ClientCookieName, id, clientCookieMaxAge, "/", "", false, true)
		}
		c.Set(ContextKeyClientID, id)
		c.Next()
	}
}

// GetClientID retrieves the browser client ID from the Gin context.
func GetClientID(c *gin.Context) string {
	val, exists := c.Get(ContextKeyClientID)
	if !exists {
		return ""
	}
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
