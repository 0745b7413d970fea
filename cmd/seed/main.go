package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	"github.com/oksasatya/house-marketplace/internal/domain/repository"
	pginfra "github.com/oksasatya/house-marketplace/internal/infrastructure/postgres"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
)

// Seeds a demo account with a couple of listings. Run after the API has
// applied migrations. Listings are only created for a fresh account.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	listings := pginfra.NewListingRepository(pool)

	email := "demo@example.com"
	password := "password123"

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		fmt.Printf("user exists: id=%s email=%s\n", u.ID, u.Email)
		return
	case !errors.Is(err, repository.ErrNotFound):
		log.Fatalf("failed to look up user: %v", err)
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	u = &entity.User{Email: email, Password: hash, Name: "Demo User", Provider: entity.ProviderPassword}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", u.ID, email, password)

	discounted := 1800.0
	samples := []entity.Listing{
		{
			Type: entity.ListingRent, Name: "Bright two bedroom flat", Bedrooms: 2, Bathrooms: 1,
			Furnished: true, Location: "10 Downing Street, London",
			Geolocation: entity.Geolocation{Lat: 51.5034, Lng: -0.1276},
			Offer:       true, RegularPrice: 2000, DiscountedPrice: &discounted,
			ImgURLs: []string{helpers.PublicURL(cfg.GCSBucket, "images/seed-flat.jpg")},
		},
		{
			Type: entity.ListingSale, Name: "Family house with garden", Bedrooms: 4, Bathrooms: 2,
			Parking: true, Location: "221B Baker Street, London",
			Geolocation:  entity.Geolocation{Lat: 51.5238, Lng: -0.1586},
			RegularPrice: 850000,
			ImgURLs:      []string{helpers.PublicURL(cfg.GCSBucket, "images/seed-house.jpg")},
		},
	}
	for i := range samples {
		l := &samples[i]
		l.UserRef = u.ID
		if err := listings.Create(ctx, l); err != nil {
			log.Fatalf("failed to seed listing %q: %v", l.Name, err)
		}
		fmt.Printf("seeded listing: id=%s type=%s name=%q\n", l.ID, l.Type, l.Name)
	}
}
