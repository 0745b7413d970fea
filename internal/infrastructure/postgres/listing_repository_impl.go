package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	"github.com/oksasatya/house-marketplace/internal/domain/repository"
)

type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

const listingColumns = `id::text, user_ref::text, type, name, bedrooms, bathrooms, parking, furnished,
	location, lat, lng, offer, regular_price::float8, discounted_price::float8, img_urls, created_at, updated_at`

func scanListing(row pgx.Row) (*entity.Listing, error) {
	l := &entity.Listing{}
	var typ string
	if err := row.Scan(&l.ID, &l.UserRef, &typ, &l.Name, &l.Bedrooms, &l.Bathrooms, &l.Parking, &l.Furnished,
		&l.Location, &l.Geolocation.Lat, &l.Geolocation.Lng, &l.Offer, &l.RegularPrice, &l.DiscountedPrice,
		&l.ImgURLs, &l.CreatedAt, &l.Timestamp); err != nil {
		return nil, err
	}
	l.Type = entity.ListingType(typ)
	if l.ImgURLs == nil {
		l.ImgURLs = []string{}
	}
	return l, nil
}

// validID keeps malformed ids away from uuid columns, where they would
// surface as a query error instead of a miss.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// discount drops the discounted price unless the listing is on offer.
func discount(l *entity.Listing) *float64 {
	if !l.Offer {
		return nil
	}
	return l.DiscountedPrice
}

func (r *ListingRepository) Create(ctx context.Context, l *entity.Listing) error {
	l.DiscountedPrice = discount(l)
	row := r.pool.QueryRow(ctx, `
		INSERT INTO listings (user_ref, type, name, bedrooms, bathrooms, parking, furnished,
			location, lat, lng, offer, regular_price, discounted_price, img_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id::text, created_at, updated_at
	`, l.UserRef, string(l.Type), l.Name, l.Bedrooms, l.Bathrooms, l.Parking, l.Furnished,
		l.Location, l.Geolocation.Lat, l.Geolocation.Lng, l.Offer, l.RegularPrice, l.DiscountedPrice, l.ImgURLs)
	return row.Scan(&l.ID, &l.CreatedAt, &l.Timestamp)
}

// Update overwrites the listing row. The owner column is part of the
// predicate so a row owned by someone else is reported as not found.
func (r *ListingRepository) Update(ctx context.Context, l *entity.Listing) error {
	if !validID(l.ID) {
		return repository.ErrNotFound
	}
	l.DiscountedPrice = discount(l)
	row := r.pool.QueryRow(ctx, `
		UPDATE listings
		SET type = $1, name = $2, bedrooms = $3, bathrooms = $4, parking = $5, furnished = $6,
			location = $7, lat = $8, lng = $9, offer = $10, regular_price = $11,
			discounted_price = $12, img_urls = $13, updated_at = now()
		WHERE id = $14 AND user_ref = $15
		RETURNING created_at, updated_at
	`, string(l.Type), l.Name, l.Bedrooms, l.Bathrooms, l.Parking, l.Furnished,
		l.Location, l.Geolocation.Lat, l.Geolocation.Lng, l.Offer, l.RegularPrice,
		l.DiscountedPrice, l.ImgURLs, l.ID, l.UserRef)
	if err := row.Scan(&l.CreatedAt, &l.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	l, err := scanListing(r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return l, err
}

func (r *ListingRepository) List(ctx context.Context, f repository.ListFilter) ([]entity.Listing, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		where = append(where, "type = "+arg(string(f.Type)))
	}
	if f.OfferOnly {
		where = append(where, "offer")
	}
	if f.OwnerID != "" {
		where = append(where, "user_ref = "+arg(f.OwnerID))
	}
	if f.ByID && validID(f.AfterID) {
		where = append(where, "id > "+arg(f.AfterID))
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	q := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.ByID {
		q += ` ORDER BY id ASC LIMIT ` + arg(limit)
	} else {
		q += ` ORDER BY updated_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(max(f.Offset, 0))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Listing, 0, limit)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.ListingRepository = (*ListingRepository)(nil)
