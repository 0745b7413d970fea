package entity

import "time"

// ListingType is the category a listing is published under.
type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

// Valid reports whether t is one of the known categories.
func (t ListingType) Valid() bool {
	return t == ListingSale || t == ListingRent
}

// MaxListingImages is the upper bound on images attached to a listing.
const MaxListingImages = 6

// Geolocation is a WGS84 coordinate pair.
type Geolocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Listing is a property offered for sale or rent.
//
// DiscountedPrice is nil unless Offer is set; when set it is strictly lower
// than RegularPrice. ImgURLs holds at most MaxListingImages entries and the
// first one is the cover image.
type Listing struct {
	ID              string      `json:"id"`
	UserRef         string      `json:"userRef"`
	Type            ListingType `json:"type"`
	Name            string      `json:"name"`
	Bedrooms        int         `json:"bedrooms"`
	Bathrooms       int         `json:"bathrooms"`
	Parking         bool        `json:"parking"`
	Furnished       bool        `json:"furnished"`
	Location        string      `json:"location"`
	Geolocation     Geolocation `json:"geolocation"`
	Offer           bool        `json:"offer"`
	RegularPrice    float64     `json:"regularPrice"`
	DiscountedPrice *float64    `json:"discountedPrice,omitempty"`
	ImgURLs         []string    `json:"imgUrls"`
	CreatedAt       time.Time   `json:"createdAt"`
	Timestamp       time.Time   `json:"timestamp"`
}

// OwnedBy reports whether uid is the listing owner.
func (l *Listing) OwnedBy(uid string) bool {
	return uid != "" && l.UserRef == uid
}

// CoverURL returns the first image URL or an empty string.
func (l *Listing) CoverURL() string {
	if len(l.ImgURLs) == 0 {
		return ""
	}
	return l.ImgURLs[0]
}
