package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/client"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/session"
)

const (
	// ContextSessionKey is the gin context key storing the decoded session.
	ContextSessionKey = "currentSession"
	// ContextSessionIDKey stores the session cookie value, the key into the token store.
	ContextSessionIDKey = "sessionID"
)

// Session decodes the caller's token on every request. A bearer header wins over the
// session cookie. Requests without a usable token pass through anonymously; the guard
// decides what they may open.
func Session(manager *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sid, _ := c.Cookie(cookieName)
		if sid != "" {
			c.Set(ContextSessionIDKey, sid)
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && sid != "" {
			token = manager.Token(ctx, sid)
		}
		if token == "" {
			c.Next()
			return
		}

		current, err := manager.Parser().Decode(token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextSessionKey, current)
		c.Request = c.Request.WithContext(client.WithToken(ctx, token))
		c.Next()
	}
}

// CurrentSession returns the session decoded by Session, nil when anonymous.
func CurrentSession(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	current, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return current
}

// SessionID returns the session cookie value, "" when none was sent.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionIDKey)
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
