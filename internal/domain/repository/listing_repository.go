package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// ListFilter narrows a listing query. Zero values mean "any".
type ListFilter struct {
	Type      entity.ListingType
	OfferOnly bool
	OwnerID   string
	Limit     int
	Offset    int
	// ByID pages in ascending id order starting after AfterID, ignoring
	// Offset, so rows updated mid-walk are neither skipped nor repeated.
	ByID    bool
	AfterID string
}

// ListingRepository persists listings. Create assigns ID and timestamps;
// Update overwrites every mutable column and refreshes the timestamp.
type ListingRepository interface {
	Create(ctx context.Context, l *entity.Listing) error
	Update(ctx context.Context, l *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	List(ctx context.Context, f ListFilter) ([]entity.Listing, error)
	Delete(ctx context.Context, id string) error
}
