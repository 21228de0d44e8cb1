package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

// RequireSession guards a route. An empty role only demands a signed-in user.
func RequireSession(required models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := guard.Decide(CurrentSession(c), required)
		if decision.Allowed() {
			c.Next()
			return
		}
		err := appErrors.Clone(appErrors.ErrForbidden, "this page belongs to another role")
		if decision.Outcome == guard.RedirectLogin {
			err = appErrors.Clone(appErrors.ErrUnauthorized, "please sign in")
		}
		SetGuardOutcome(c, decision.Outcome)
		Navigate(c, err, decision.Location)
		c.Abort()
	}
}

// Navigate sends the caller elsewhere: browsers get a 302, API clients an error
// envelope whose meta.redirect names the page. A recorded guard outcome travels along
// in meta.guard.
func Navigate(c *gin.Context, err error, location string) {
	if WantsHTML(c) {
		c.Redirect(http.StatusFound, location)
		return
	}
	outcome := GuardOutcome(c)
	if outcome == "" {
		response.Redirect(c, err, location)
		return
	}
	response.Error(c, err, map[string]interface{}{response.MetaRedirect: location, MetaGuard: string(outcome)})
}

// WantsHTML reports whether the request is a browser navigation.
func WantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html")
}
