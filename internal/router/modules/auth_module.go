package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/house-marketplace/internal/container"
	handlers "github.com/oksasatya/house-marketplace/internal/interface/http"
	"github.com/oksasatya/house-marketplace/internal/interface/middleware"
)

// AuthModule serves sign-up, sign-in and session endpoints under /auth.
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	signInLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)
	resetLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	auth := rg.Group("/auth")
	auth.POST("/sign-up", signInLimiter, m.Handler.SignUp)
	auth.POST("/sign-in", signInLimiter, m.Handler.SignIn)
	auth.POST("/google", signInLimiter, m.Handler.Google)
	auth.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	auth.POST("/forgot-password", resetLimiter, m.Handler.ForgotPassword)
	auth.POST("/reset-password", resetLimiter, m.Handler.ResetPassword)
	auth.POST("/sign-out", middleware.OptionalAuth(container.GetSessions(), container.GetJWT()), m.Handler.SignOut)
}
