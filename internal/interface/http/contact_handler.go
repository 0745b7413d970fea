package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/house-marketplace/internal/interface/middleware"
	"github.com/oksasatya/house-marketplace/pkg/notice"
	"github.com/oksasatya/house-marketplace/pkg/response"
	"github.com/oksasatya/house-marketplace/pkg/validation"
)

type contactRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// Contact enqueues an email to the listing owner. Replies reach the sender directly.
func (h *ListingHandler) Contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sender, _ := middleware.CurrentUser(c)
	if err := h.Svc.ContactOwner(c.Request.Context(), sender, c.Param("id"), req.Message); err != nil {
		h.fail(c, err, nil)
		return
	}
	n := notice.New()
	n.Success("Message sent to the owner")
	response.Success[any](c, http.StatusAccepted, gin.H{"enqueued": true}, "message sent", response.Notices(n))
}
