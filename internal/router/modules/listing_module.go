package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/house-marketplace/internal/container"
	handlers "github.com/oksasatya/house-marketplace/internal/interface/http"
	"github.com/oksasatya/house-marketplace/internal/interface/middleware"
)

// ListingModule serves browsing (public) and listing management (signed in).
type ListingModule struct {
	Handler *handlers.ListingHandler
}

func NewListingModule(h *handlers.ListingHandler) *ListingModule {
	return &ListingModule{Handler: h}
}

func (m *ListingModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	browse := middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil)

	rg.GET("/category/:type", browse, m.Handler.ByCategory)
	rg.GET("/offers", browse, m.Handler.Offers)
	rg.GET("/listings/search", browse, m.Handler.Search)
	rg.GET("/listings/:id", browse, m.Handler.Get)

	auth := rg.Group("/listings")
	auth.Use(
		middleware.Auth(container.GetSessions(), container.GetJWT()),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	writes := middleware.RateLimit(rdb, 20, time.Minute, middleware.KeyByUserID(), nil)
	{
		auth.POST("", writes, m.Handler.Create)
		auth.GET("/:id/edit", m.Handler.EditForm)
		auth.PUT("/:id", writes, m.Handler.Update)
		auth.DELETE("/:id", writes, m.Handler.Delete)
		auth.POST("/:id/contact", middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByUserID(), nil), m.Handler.Contact)
	}
}
