package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/internal/application"
	"github.com/oksasatya/house-marketplace/internal/domain/draft"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/geocode"
	"github.com/oksasatya/house-marketplace/internal/interface/middleware"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
	"github.com/oksasatya/house-marketplace/pkg/notice"
	"github.com/oksasatya/house-marketplace/pkg/response"
	"github.com/oksasatya/house-marketplace/pkg/validation"
)

var errImageTooLarge = errors.New("image too large")

type ListingHandler struct {
	Svc           *application.ListingService
	MaxImageBytes int64
	Logger        *logrus.Logger
}

func NewListingHandler(svc *application.ListingService, maxImageBytes int64, logger *logrus.Logger) *ListingHandler {
	return &ListingHandler{Svc: svc, MaxImageBytes: maxImageBytes, Logger: logger}
}

// listingPath is the page a saved listing is shown on.
func listingPath(l *entity.Listing) string {
	return "/category/" + string(l.Type) + "/" + l.ID
}

// readDraft applies the submitted form fields to d. Field names follow the
// listing JSON names; unknown fields are ignored. Files under "images"
// replace the image selection.
func (h *ListingHandler) readDraft(c *gin.Context, d *draft.Draft) error {
	var (
		values map[string][]string
		files  []*multipart.FileHeader
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return fmt.Errorf("parse form: %w", err)
		}
		values, files = form.Value, form.File["images"]
	} else {
		if err := c.Request.ParseForm(); err != nil {
			return fmt.Errorf("parse form: %w", err)
		}
		values = c.Request.PostForm
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		u, ok, err := draft.ParseField(key, vals[len(vals)-1])
		if err != nil {
			return err
		}
		if ok {
			d.Set(u)
		}
	}

	if len(files) > 0 {
		imgs := make(draft.SetImages, 0, len(files))
		for _, fh := range files {
			fh := fh
			if h.MaxImageBytes > 0 && fh.Size > h.MaxImageBytes {
				return fmt.Errorf("%w: %s", errImageTooLarge, fh.Filename)
			}
			imgs = append(imgs, draft.Image{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Open:        func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
		d.Set(imgs)
	}
	return nil
}

// fail maps listing errors to the response envelope. Every failure also
// carries an error notice.
func (h *ListingHandler) fail(c *gin.Context, err error, n *notice.List) {
	var (
		verrs validator.ValidationErrors
		ferr  *draft.FieldError
	)
	switch {
	case errors.Is(err, application.ErrNotOwner):
		response.Redirect(c, http.StatusForbidden, "You cannot edit that listing", "/", n)
		return
	case errors.Is(err, application.ErrListingNotFound):
		response.Redirect(c, http.StatusNotFound, "Listing does not exist", "/", n)
		return
	}

	status, msg := http.StatusBadRequest, ""
	var details any
	switch {
	case errors.Is(err, draft.ErrDiscountNotLower):
		msg = "Discounted price cannot be higher or equal to regular price"
	case errors.Is(err, draft.ErrDiscountRequired):
		msg = fmt.Sprintf("Enter a discounted price of at least %d for offers", draft.MinDiscountedPrice)
	case errors.Is(err, draft.ErrTooManyImages):
		msg = fmt.Sprintf("Max %d images!", entity.MaxListingImages)
	case errors.Is(err, application.ErrNoImages):
		msg = "Select at least one image"
	case errors.Is(err, errImageTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, "Image must be smaller than "+strconv.FormatInt(h.MaxImageBytes>>20, 10)+"MB"
	case errors.As(err, &verrs):
		msg, details = "Please check the listing details", validation.ToDetails(err)
	case errors.As(err, &ferr):
		msg, details = "Please check the listing details", map[string]string{ferr.Field: "invalid value"}
	case errors.Is(err, geocode.ErrUnresolved):
		status, msg = http.StatusUnprocessableEntity, "Could not get location based on address."
	case errors.Is(err, application.ErrUploadFailed):
		status, msg = http.StatusBadGateway, "Images not uploaded"
	case errors.Is(err, application.ErrEmptyMessage):
		msg = "Message cannot be empty"
	case errors.Is(err, application.ErrOwnContact):
		msg = "You own this listing"
	default:
		helpers.LogError(h.Logger, "listing request failed", err, logrus.Fields{"path": c.FullPath(), "request_id": c.GetString("request_id")})
		status, msg = http.StatusInternalServerError, "Something went wrong"
	}
	if n == nil {
		n = notice.New()
	}
	n.Error(msg)
	response.Fail[any](c, status, msg, details, response.Notices(n))
}

func (h *ListingHandler) Create(c *gin.Context) {
	owner, _ := middleware.CurrentUser(c)
	n := notice.New()
	d := draft.New()
	if err := h.readDraft(c, d); err != nil {
		h.fail(c, err, n)
		return
	}
	l, err := h.Svc.Create(c.Request.Context(), owner, d, n)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	response.Success(c, http.StatusCreated, l, "listing saved", response.Meta{Redirect: listingPath(l), Notices: n.Items()})
}

// EditForm returns the listing and its prefilled draft, only to the owner.
func (h *ListingHandler) EditForm(c *gin.Context) {
	owner, _ := middleware.CurrentUser(c)
	l, err := h.Svc.GetForEdit(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"listing": l, "draft": draft.FromListing(l)}, "listing", nil)
}

func (h *ListingHandler) Update(c *gin.Context) {
	owner, _ := middleware.CurrentUser(c)
	id := c.Param("id")
	n := notice.New()

	existing, err := h.Svc.GetForEdit(c.Request.Context(), owner, id)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	d := draft.FromListing(existing)
	if err := h.readDraft(c, d); err != nil {
		h.fail(c, err, n)
		return
	}
	l, err := h.Svc.Update(c.Request.Context(), owner, existing, d, n)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	response.Success(c, http.StatusOK, l, "listing saved", response.Meta{Redirect: listingPath(l), Notices: n.Items()})
}

func (h *ListingHandler) Delete(c *gin.Context) {
	owner, _ := middleware.CurrentUser(c)
	if err := h.Svc.Delete(c.Request.Context(), owner, c.Param("id")); err != nil {
		h.fail(c, err, nil)
		return
	}
	n := notice.New()
	n.Success("Successfully deleted listing")
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "listing deleted", response.Notices(n))
}

func (h *ListingHandler) Get(c *gin.Context) {
	l, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, l, "listing", nil)
}

func page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return limit, max(offset, 0)
}

func (h *ListingHandler) list(c *gin.Context, listings []entity.Listing, err error) {
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if listings == nil {
		listings = []entity.Listing{}
	}
	limit, offset := page(c)
	response.Success(c, http.StatusOK, listings, "listings", response.Meta{
		Extra: map[string]any{"limit": limit, "offset": offset, "count": len(listings)},
	})
}

func (h *ListingHandler) ByCategory(c *gin.Context) {
	t := entity.ListingType(c.Param("type"))
	if !t.Valid() {
		response.Error[any](c, http.StatusNotFound, "unknown category", nil)
		return
	}
	limit, offset := page(c)
	ls, err := h.Svc.ListByType(c.Request.Context(), t, limit, offset)
	h.list(c, ls, err)
}

func (h *ListingHandler) Offers(c *gin.Context) {
	limit, offset := page(c)
	ls, err := h.Svc.ListOffers(c.Request.Context(), limit, offset)
	h.list(c, ls, err)
}

func (h *ListingHandler) Mine(c *gin.Context) {
	limit, offset := page(c)
	ls, err := h.Svc.ListByOwner(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), limit, offset)
	h.list(c, ls, err)
}

func (h *ListingHandler) Search(c *gin.Context) {
	limit, _ := page(c)
	ls, err := h.Svc.Search(c.Request.Context(), c.Query("q"), limit)
	h.list(c, ls, err)
}
