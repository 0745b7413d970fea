package router

import (
	"github.com/oksasatya/house-marketplace/internal/application"
	"github.com/oksasatya/house-marketplace/internal/container"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/gcs"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/geocode"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/google"
	pginfra "github.com/oksasatya/house-marketplace/internal/infrastructure/postgres"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/search"
	handlers "github.com/oksasatya/house-marketplace/internal/interface/http"
	"github.com/oksasatya/house-marketplace/internal/router/modules"
)

// Deps are the services built from the container. main also uses them for
// background jobs.
type Deps struct {
	Users    *application.Service
	Listings *application.ListingService
	Index    *search.ListingIndex
	Repo     *pginfra.ListingRepository
}

// BuildDeps wires repositories, adapters and services from the container.
func BuildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	listingRepo := pginfra.NewListingRepository(container.GetPGPool())

	geocoder := &geocode.Cached{
		Next:   geocode.NewPositionStack(cfg.GeocodeBaseURL, cfg.GeocodeAPIKey),
		RDB:    container.GetRedis(),
		TTL:    cfg.GeocodeCacheTTL,
		Logger: logger,
	}
	uploader := application.NewUploader(gcs.NewObjectStore(container.GetGCS(), cfg.GCSBucket, cfg.GCSChunkSize), logger)

	var (
		index     *search.ListingIndex
		listIndex application.ListingIndex
		jobs      application.JobPublisher
	)
	if es := container.GetES(); es != nil {
		index = search.NewListingIndex(es, cfg.ESListingsIndex, logger)
		listIndex = index
	}
	if pub := container.GetRabbitPub(); pub != nil {
		jobs = pub
	}

	users := application.NewService(userRepo, container.GetJWT(), container.GetRedis(), container.GetSessions(),
		google.NewVerifier(cfg.GoogleClientID), jobs, cfg, logger)
	listings := application.NewListingService(listingRepo, userRepo, geocoder, uploader, listIndex, jobs, cfg, logger)

	return Deps{Users: users, Listings: listings, Index: index, Repo: listingRepo}
}

// InitModules registers every feature module on the registry.
func InitModules(r *Registry, deps Deps) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	authH := handlers.NewAuthHandler(deps.Users, logger, cfg.CookieDomain, cfg.CookieSecure)
	userH := handlers.NewUserHandler(deps.Users, logger)
	listingH := handlers.NewListingHandler(deps.Listings, cfg.UploadMaxImageBytes, logger)

	r.Add(modules.NewAuthModule(authH))
	r.Add(modules.NewProfileModule(userH, listingH))
	r.Add(modules.NewListingModule(listingH))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
