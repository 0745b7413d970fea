package templates

import (
	"time"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		utc := time.Now().Add(dur).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

func WithListing(cfg *config.Config, l *entity.Listing) Option {
	return func(d *EmailData) {
		d.ListingName = l.Name
		d.ListingURL = cfg.ListingURL(string(l.Type), l.ID)
		d.ListingCover = l.CoverURL()
	}
}

func WithSender(name, email, message string) Option {
	return func(d *EmailData) {
		d.SenderName = name
		d.SenderEmail = email
		d.Message = message
	}
}

// NewBaseEmailData fills the common fields from config, then applies options.
func NewBaseEmailData(cfg *config.Config, typ string, name, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          recipient,
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		AppName:        cfg.AppName,
		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(cfg *config.Config, u *entity.User, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, Welcome, u.Name, u.Email, opts...))
}

func NewListingPublishedData(cfg *config.Config, owner *entity.User, l *entity.Listing, opts ...Option) map[string]any {
	opts = append([]Option{WithListing(cfg, l)}, opts...)
	return ToMap(NewBaseEmailData(cfg, ListingPublished, owner.Name, owner.Email, opts...))
}

func NewContactOwnerData(cfg *config.Config, owner *entity.User, l *entity.Listing, opts ...Option) map[string]any {
	opts = append([]Option{WithListing(cfg, l)}, opts...)
	return ToMap(NewBaseEmailData(cfg, ContactOwner, owner.Name, owner.Email, opts...))
}

func NewForgotPasswordData(cfg *config.Config, u *entity.User, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, ForgotPassword, u.Name, u.Email, opts...))
}
