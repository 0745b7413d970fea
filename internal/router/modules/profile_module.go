package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/house-marketplace/internal/container"
	handlers "github.com/oksasatya/house-marketplace/internal/interface/http"
	"github.com/oksasatya/house-marketplace/internal/interface/middleware"
)

// ProfileModule serves the signed-in user's profile and own listings.
type ProfileModule struct {
	Users    *handlers.UserHandler
	Listings *handlers.ListingHandler
}

func NewProfileModule(users *handlers.UserHandler, listings *handlers.ListingHandler) *ProfileModule {
	return &ProfileModule{Users: users, Listings: listings}
}

func (m *ProfileModule) Register(rg *gin.RouterGroup) {
	p := rg.Group("/profile")
	p.Use(
		middleware.Auth(container.GetSessions(), container.GetJWT()),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	p.GET("", m.Users.GetProfile)
	p.PUT("", m.Users.UpdateProfile)
	p.GET("/listings", m.Listings.Mine)
}
