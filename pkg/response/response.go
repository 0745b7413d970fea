package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/house-marketplace/pkg/notice"
)

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// Meta is the conventional shape of APIResponse.Meta. Redirect tells the
// client which page to navigate to; Notices are transient messages.
type Meta struct {
	Redirect string          `json:"redirect,omitempty"`
	Notices  []notice.Notice `json:"notices,omitempty"`
	Extra    map[string]any  `json:"extra,omitempty"`
}

// Notices builds a Meta carrying only the collected notices, or nil when empty.
func Notices(n *notice.List) interface{} {
	items := n.Items()
	if len(items) == 0 {
		return nil
	}
	return Meta{Notices: items}
}

func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
	ctx.JSON(status, resp)
	return resp
}

func Error[T any](ctx *gin.Context, status int, message string, err interface{}) APIResponse[T] {
	return Fail[T](ctx, status, message, err, nil)
}

// Fail writes an error envelope with optional meta.
func Fail[T any](ctx *gin.Context, status int, message string, err interface{}, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Meta:      meta,
		Error:     err,
	}
	ctx.AbortWithStatusJSON(status, resp)
	return resp
}

// Redirect writes an error envelope that tells the client to leave the
// current page. The message is also added as an error notice.
func Redirect(ctx *gin.Context, status int, message, to string, n *notice.List) {
	if n == nil {
		n = notice.New()
	}
	n.Error(message)
	Fail[any](ctx, status, message, nil, Meta{Redirect: to, Notices: n.Items()})
}
