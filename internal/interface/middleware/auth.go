package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/house-marketplace/internal/session"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
	"github.com/oksasatya/house-marketplace/pkg/response"
)

const (
	CtxUserIDKey = "userID"
	ctxUserKey   = "sessionUser"

	// SignInPath is where unauthenticated clients are sent.
	SignInPath = "/sign-in"
)

// CurrentUser returns the user set by Auth or OptionalAuth.
func CurrentUser(c *gin.Context) (session.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return session.User{}, false
	}
	u, ok := v.(session.User)
	return u, ok && u.ID != ""
}

func resolve(c *gin.Context, dir *session.Directory, jwt *helpers.JWTManager) (session.User, session.State) {
	token, err := c.Cookie(helpers.AccessCookie)
	if err != nil || token == "" {
		return session.User{}, session.Unauthenticated
	}
	claims, err := jwt.ParseAccessToken(token)
	if err != nil {
		return session.User{}, session.Unauthenticated
	}
	return dir.Resolve(c.Request.Context(), claims.UserID, claims.SessionID)
}

func setUser(c *gin.Context, u session.User) {
	c.Set(CtxUserIDKey, u.ID)
	c.Set(ctxUserKey, u)
	c.Request = c.Request.WithContext(session.WithUser(c.Request.Context(), u))
}

// Auth is the gate for protected routes. The access token must carry the
// session id currently recorded for the user; otherwise the client is
// told to go to the sign-in page.
func Auth(dir *session.Directory, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, st := resolve(c, dir, jwt)
		if st != session.Authenticated {
			response.Redirect(c, http.StatusUnauthorized, "Please sign in to continue", SignInPath, nil)
			return
		}
		setUser(c, u)
		c.Next()
	}
}

// OptionalAuth sets the user when a live session is presented and lets
// anonymous requests through.
func OptionalAuth(dir *session.Directory, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, st := resolve(c, dir, jwt); st == session.Authenticated {
			setUser(c, u)
		}
		c.Next()
	}
}
