// Package draft holds the mutable state of a listing form until it is
// submitted. Fields change only through typed Update values; the set of
// updates is closed, so an unknown field cannot be expressed in code.
package draft

import (
	"io"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
)

// Image is one selected file. Open may be called more than once.
type Image struct {
	Name        string `json:"name" validate:"required,imageext"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Open        func() (io.ReadCloser, error) `json:"-"`
}

// Draft is the form state of a listing being created or edited.
type Draft struct {
	Type               entity.ListingType `json:"type" validate:"required,listingtype"`
	Name               string             `json:"name" validate:"required,min=10,max=32"`
	Bedrooms           int                `json:"bedrooms" validate:"rooms"`
	Bathrooms          int                `json:"bathrooms" validate:"rooms"`
	Parking            bool               `json:"parking"`
	Furnished          bool               `json:"furnished"`
	Address            string             `json:"address" validate:"required"`
	Offer              bool               `json:"offer"`
	RegularPrice       float64            `json:"regularPrice" validate:"price"`
	DiscountedPrice    float64            `json:"discountedPrice"`
	Latitude           float64            `json:"latitude" validate:"latitude"`
	Longitude          float64            `json:"longitude" validate:"longitude"`
	GeolocationEnabled bool               `json:"geolocationEnabled"`
	Images             []Image            `json:"images" validate:"dive"`
}

// New returns a draft with the form defaults.
func New() *Draft {
	return &Draft{
		Type:               entity.ListingRent,
		Bedrooms:           1,
		Bathrooms:          1,
		GeolocationEnabled: true,
	}
}

// FromListing prefills a draft for editing. The stored location label
// becomes the address; images are left empty so the existing ones are kept
// unless the user selects new files.
func FromListing(l *entity.Listing) *Draft {
	d := New()
	d.Type = l.Type
	d.Name = l.Name
	d.Bedrooms = l.Bedrooms
	d.Bathrooms = l.Bathrooms
	d.Parking = l.Parking
	d.Furnished = l.Furnished
	d.Address = l.Location
	d.Offer = l.Offer
	d.RegularPrice = l.RegularPrice
	if l.DiscountedPrice != nil {
		d.DiscountedPrice = *l.DiscountedPrice
	}
	d.Latitude = l.Geolocation.Lat
	d.Longitude = l.Geolocation.Lng
	return d
}

// Set applies a single field update.
func (d *Draft) Set(u Update) {
	if u == nil {
		return
	}
	u.apply(d)
}

// Apply applies updates in order.
func (d *Draft) Apply(us ...Update) {
	for _, u := range us {
		d.Set(u)
	}
}

// Snapshot returns a copy that later updates do not affect.
func (d *Draft) Snapshot() Draft {
	s := *d
	if d.Images != nil {
		s.Images = append([]Image(nil), d.Images...)
	}
	return s
}

// HasImages reports whether a file selection is present.
func (d *Draft) HasImages() bool {
	return len(d.Images) > 0
}
