package draft

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	"github.com/oksasatya/house-marketplace/pkg/validation"
)

var (
	ErrDiscountNotLower = errors.New("discount not lower than regular price")
	ErrDiscountRequired = errors.New("discounted price required for offers")
	ErrTooManyImages    = errors.New("too many images")
)

// MinDiscountedPrice matches the lower bound of the regular price range.
const MinDiscountedPrice = 50

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validation.New()
	_ = v.RegisterValidation("imageext", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(filepath.Ext(fl.Field().String())) {
		case ".jpg", ".jpeg", ".png":
			return true
		}
		return false
	})
	return v
}

// Validate checks the draft at submission time. The offer price and the
// image count are checked first and returned as sentinel errors; other
// constraints come back as validator.ValidationErrors. A missing discounted
// price parses as zero and is rejected like any value under the minimum.
func (d *Draft) Validate() error {
	if d.Offer {
		if d.DiscountedPrice >= d.RegularPrice {
			return ErrDiscountNotLower
		}
		if d.DiscountedPrice < MinDiscountedPrice {
			return ErrDiscountRequired
		}
	}
	if len(d.Images) > entity.MaxListingImages {
		return ErrTooManyImages
	}
	return validate.Struct(d)
}
