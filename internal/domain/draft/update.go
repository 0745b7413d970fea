package draft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
)

// Update is a change to one draft field.
type Update interface {
	apply(d *Draft)
}

type (
	SetType               entity.ListingType
	SetName               string
	SetBedrooms           int
	SetBathrooms          int
	SetParking            bool
	SetFurnished          bool
	SetAddress            string
	SetOffer              bool
	SetRegularPrice       float64
	SetDiscountedPrice    float64
	SetLatitude           float64
	SetLongitude          float64
	SetGeolocationEnabled bool
	// SetImages replaces the whole selection.
	SetImages []Image
)

func (v SetType) apply(d *Draft)               { d.Type = entity.ListingType(v) }
func (v SetName) apply(d *Draft)               { d.Name = string(v) }
func (v SetBedrooms) apply(d *Draft)           { d.Bedrooms = int(v) }
func (v SetBathrooms) apply(d *Draft)          { d.Bathrooms = int(v) }
func (v SetParking) apply(d *Draft)            { d.Parking = bool(v) }
func (v SetFurnished) apply(d *Draft)          { d.Furnished = bool(v) }
func (v SetAddress) apply(d *Draft)            { d.Address = string(v) }
func (v SetOffer) apply(d *Draft)              { d.Offer = bool(v) }
func (v SetRegularPrice) apply(d *Draft)       { d.RegularPrice = float64(v) }
func (v SetDiscountedPrice) apply(d *Draft)    { d.DiscountedPrice = float64(v) }
func (v SetLatitude) apply(d *Draft)           { d.Latitude = float64(v) }
func (v SetLongitude) apply(d *Draft)          { d.Longitude = float64(v) }
func (v SetGeolocationEnabled) apply(d *Draft) { d.GeolocationEnabled = bool(v) }
func (v SetImages) apply(d *Draft)             { d.Images = append([]Image(nil), v...) }

// FieldError reports a raw form value that does not fit its field.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: invalid value %q", e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ParseField turns a raw form value into an Update. Unknown keys return
// ok=false and no error so callers can ignore them. The literal strings
// "true" and "false" are read as booleans.
func ParseField(key, raw string) (u Update, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case "type":
		return SetType(raw), true, nil
	case "name":
		return SetName(raw), true, nil
	case "address":
		return SetAddress(raw), true, nil
	case "bedrooms":
		n, err := parseInt(key, raw)
		return SetBedrooms(n), true, err
	case "bathrooms":
		n, err := parseInt(key, raw)
		return SetBathrooms(n), true, err
	case "parking":
		b, err := parseBool(key, raw)
		return SetParking(b), true, err
	case "furnished":
		b, err := parseBool(key, raw)
		return SetFurnished(b), true, err
	case "offer":
		b, err := parseBool(key, raw)
		return SetOffer(b), true, err
	case "geolocationEnabled":
		b, err := parseBool(key, raw)
		return SetGeolocationEnabled(b), true, err
	case "regularPrice":
		f, err := parseFloat(key, raw)
		return SetRegularPrice(f), true, err
	case "discountedPrice":
		f, err := parseFloat(key, raw)
		return SetDiscountedPrice(f), true, err
	case "latitude":
		f, err := parseFloat(key, raw)
		return SetLatitude(f), true, err
	case "longitude":
		f, err := parseFloat(key, raw)
		return SetLongitude(f), true, err
	}
	return nil, false, nil
}

func parseBool(key, raw string) (bool, error) {
	switch raw {
	case "true":
		return true, nil
	case "false", "":
		return false, nil
	}
	return false, &FieldError{Field: key, Value: raw, Err: strconv.ErrSyntax}
}

func parseInt(key, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &FieldError{Field: key, Value: raw, Err: err}
	}
	return n, nil
}

func parseFloat(key, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &FieldError{Field: key, Value: raw, Err: err}
	}
	return f, nil
}
