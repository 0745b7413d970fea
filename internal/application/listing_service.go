package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/internal/domain/draft"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	repo "github.com/oksasatya/house-marketplace/internal/domain/repository"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/geocode"
	"github.com/oksasatya/house-marketplace/internal/session"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
	"github.com/oksasatya/house-marketplace/pkg/mailer"
	mailtpl "github.com/oksasatya/house-marketplace/pkg/mailer/templates"
	"github.com/oksasatya/house-marketplace/pkg/notice"
)

var (
	ErrListingNotFound = errors.New("listing does not exist")
	ErrNotOwner        = errors.New("you cannot edit that listing")
	ErrNoImages        = errors.New("no images selected")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrOwnContact      = errors.New("cannot contact yourself")
)

// Geocoder resolves a free-text address.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (geocode.Result, error)
}

// ImageUploader stores a batch of images and returns their URLs in order.
// Discard removes a stored batch whose listing write did not happen.
type ImageUploader interface {
	UploadAll(ctx context.Context, ownerID string, images []draft.Image, onProgress func(UploadProgress)) ([]string, error)
	Discard(urls []string)
}

// ListingIndex keeps the search index in step with the store.
type ListingIndex interface {
	Index(ctx context.Context, l *entity.Listing) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]string, error)
}

// JobPublisher enqueues background jobs.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type ListingService struct {
	Listings repo.ListingRepository
	Users    repo.UserRepository
	Geocoder Geocoder
	Uploader ImageUploader
	Index    ListingIndex
	Jobs     JobPublisher
	Cfg      *config.Config
	Logger   *logrus.Logger
}

func NewListingService(listings repo.ListingRepository, users repo.UserRepository, geocoder Geocoder, uploader ImageUploader, index ListingIndex, jobs JobPublisher, cfg *config.Config, logger *logrus.Logger) *ListingService {
	return &ListingService{
		Listings: listings,
		Users:    users,
		Geocoder: geocoder,
		Uploader: uploader,
		Index:    index,
		Jobs:     jobs,
		Cfg:      cfg,
		Logger:   logger,
	}
}

// Create publishes a new listing owned by owner. Validation, geocoding and
// the image batch all run before anything is persisted.
func (s *ListingService) Create(ctx context.Context, owner session.User, d *draft.Draft, notices *notice.List) (*entity.Listing, error) {
	snap := d.Snapshot()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if !snap.HasImages() {
		return nil, ErrNoImages
	}

	l := &entity.Listing{UserRef: owner.ID}
	if err := s.locate(ctx, &snap, l); err != nil {
		return nil, err
	}
	urls, err := s.upload(ctx, owner.ID, snap.Images, notices)
	if err != nil {
		return nil, err
	}
	fill(l, &snap, urls)

	if err := s.Listings.Create(ctx, l); err != nil {
		s.Uploader.Discard(urls)
		return nil, fmt.Errorf("create listing: %w", err)
	}
	notices.Success("Listing saved")
	s.afterWrite(ctx, owner, l, true)
	return l, nil
}

// GetForEdit returns the listing only to its owner.
func (s *ListingService) GetForEdit(ctx context.Context, owner session.User, id string) (*entity.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.OwnedBy(owner.ID) {
		return nil, ErrNotOwner
	}
	return l, nil
}

// Update rewrites existing, as loaded by GetForEdit for the same request.
// Ownership is checked again right before the write. When no new images
// are selected the stored ones stay; when the address is unchanged the
// stored location and coordinates stay. Newly uploaded images are deleted
// if the write does not happen.
func (s *ListingService) Update(ctx context.Context, owner session.User, existing *entity.Listing, d *draft.Draft, notices *notice.List) (*entity.Listing, error) {
	if existing == nil {
		return nil, ErrListingNotFound
	}
	if !existing.OwnedBy(owner.ID) {
		return nil, ErrNotOwner
	}
	snap := d.Snapshot()
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	l := &entity.Listing{ID: existing.ID, UserRef: existing.UserRef, CreatedAt: existing.CreatedAt}
	if snap.GeolocationEnabled && strings.TrimSpace(snap.Address) == existing.Location {
		l.Location, l.Geolocation = existing.Location, existing.Geolocation
	} else if err := s.locate(ctx, &snap, l); err != nil {
		return nil, err
	}
	urls := existing.ImgURLs
	var uploaded []string
	if snap.HasImages() {
		var err error
		if uploaded, err = s.upload(ctx, owner.ID, snap.Images, notices); err != nil {
			return nil, err
		}
		urls = uploaded
	}
	fill(l, &snap, urls)

	current, err := s.Get(ctx, existing.ID)
	if err == nil && !current.OwnedBy(owner.ID) {
		err = ErrNotOwner
	}
	if err == nil {
		if err = s.Listings.Update(ctx, l); errors.Is(err, repo.ErrNotFound) {
			err = ErrListingNotFound
		} else if err != nil {
			err = fmt.Errorf("update listing: %w", err)
		}
	}
	if err != nil {
		s.Uploader.Discard(uploaded)
		return nil, err
	}
	notices.Success("Listing saved")
	s.afterWrite(ctx, owner, l, false)
	return l, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (*entity.Listing, error) {
	l, err := s.Listings.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func (s *ListingService) ListByType(ctx context.Context, t entity.ListingType, limit, offset int) ([]entity.Listing, error) {
	if !t.Valid() {
		return nil, ErrListingNotFound
	}
	return s.Listings.List(ctx, repo.ListFilter{Type: t, Limit: limit, Offset: offset})
}

func (s *ListingService) ListOffers(ctx context.Context, limit, offset int) ([]entity.Listing, error) {
	return s.Listings.List(ctx, repo.ListFilter{OfferOnly: true, Limit: limit, Offset: offset})
}

func (s *ListingService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]entity.Listing, error) {
	return s.Listings.List(ctx, repo.ListFilter{OwnerID: ownerID, Limit: limit, Offset: offset})
}

// Delete removes an owned listing and its search document.
func (s *ListingService) Delete(ctx context.Context, owner session.User, id string) error {
	if _, err := s.GetForEdit(ctx, owner, id); err != nil {
		return err
	}
	if err := s.Listings.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("delete listing: %w", err)
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			helpers.LogWarn(s.Logger, "search delete failed", err, logrus.Fields{"listing_id": id})
		}
	}
	return nil
}

// Search returns listings matching q in relevance order. Ids the index
// knows but the store no longer has are skipped.
func (s *ListingService) Search(ctx context.Context, q string, size int) ([]entity.Listing, error) {
	q = strings.TrimSpace(q)
	if q == "" || s.Index == nil {
		return []entity.Listing{}, nil
	}
	ids, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	out := make([]entity.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := s.Listings.GetByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, nil
}

// ContactOwner emails the listing owner on behalf of sender. Replies go to
// the sender address.
func (s *ListingService) ContactOwner(ctx context.Context, sender session.User, id, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	l, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if l.OwnedBy(sender.ID) {
		return ErrOwnContact
	}
	owner, err := s.Users.GetByID(ctx, l.UserRef)
	if err != nil {
		return fmt.Errorf("load listing owner: %w", err)
	}
	if s.Jobs == nil || s.Cfg == nil {
		return errors.New("email queue not configured")
	}
	job := mailer.EmailJob{
		To:       owner.Email,
		ReplyTo:  sender.Email,
		Template: "universal",
		Data:     mailtpl.NewContactOwnerData(s.Cfg, owner, l, mailtpl.WithSender(sender.Name, sender.Email, message), mailtpl.WithTime(time.Now())),
	}
	job.Subject = helpers.SubjectForUniversal(job.Data)
	return s.Jobs.PublishJSON(ctx, job)
}

// locate fills location and geolocation, either from the geocoder or from
// the coordinates typed by the user.
func (s *ListingService) locate(ctx context.Context, d *draft.Draft, l *entity.Listing) error {
	if !d.GeolocationEnabled {
		l.Location = d.Address
		l.Geolocation = entity.Geolocation{Lat: d.Latitude, Lng: d.Longitude}
		return nil
	}
	res, err := s.Geocoder.Resolve(ctx, d.Address)
	if err != nil {
		return err
	}
	l.Location = res.Label
	l.Geolocation = entity.Geolocation{Lat: res.Lat, Lng: res.Lng}
	return nil
}

func (s *ListingService) upload(ctx context.Context, ownerID string, images []draft.Image, notices *notice.List) ([]string, error) {
	return s.Uploader.UploadAll(ctx, ownerID, images, func(p UploadProgress) {
		switch p.State {
		case StatePaused:
			notices.Info("Upload paused.")
		case StateSuccess:
			notices.Success(p.Name + " upload completed!")
		}
	})
}

func fill(l *entity.Listing, d *draft.Draft, urls []string) {
	l.Type = d.Type
	l.Name = strings.TrimSpace(d.Name)
	l.Bedrooms = d.Bedrooms
	l.Bathrooms = d.Bathrooms
	l.Parking = d.Parking
	l.Furnished = d.Furnished
	l.Offer = d.Offer
	l.RegularPrice = d.RegularPrice
	l.DiscountedPrice = nil
	if d.Offer {
		p := d.DiscountedPrice
		l.DiscountedPrice = &p
	}
	l.ImgURLs = urls
}

// afterWrite runs the side effects of a successful write. Failures are
// logged and never undo the write.
func (s *ListingService) afterWrite(ctx context.Context, owner session.User, l *entity.Listing, created bool) {
	if s.Index != nil {
		if err := s.Index.Index(ctx, l); err != nil {
			helpers.LogWarn(s.Logger, "search index failed", err, logrus.Fields{"listing_id": l.ID})
		}
	}
	if !created || s.Jobs == nil || s.Cfg == nil || !s.Cfg.MailSendEnabled {
		return
	}
	u := &entity.User{ID: owner.ID, Name: owner.Name, Email: owner.Email}
	job := mailer.EmailJob{
		To:       owner.Email,
		Template: "universal",
		Data:     mailtpl.NewListingPublishedData(s.Cfg, u, l, mailtpl.WithTime(time.Now())),
	}
	job.Subject = helpers.SubjectForUniversal(job.Data)
	if err := s.Jobs.PublishJSON(ctx, job); err != nil {
		helpers.LogWarn(s.Logger, "enqueue listing email failed", err, logrus.Fields{"listing_id": l.ID})
	}
}
