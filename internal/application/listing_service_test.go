package application

import (
	"context"
	"errors"
	"testing"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/internal/domain/draft"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/geocode"
	"github.com/oksasatya/house-marketplace/internal/session"
	"github.com/oksasatya/house-marketplace/pkg/mailer"
	"github.com/oksasatya/house-marketplace/pkg/notice"
)

var (
	alice = session.User{ID: "u1", Name: "Alice", Email: "alice@example.com", SessionID: "s1"}
	bob   = session.User{ID: "u2", Name: "Bob", Email: "bob@example.com", SessionID: "s2"}
)

type fixture struct {
	svc      *ListingService
	listings *memListings
	store    *memStore
	geo      *stubGeocoder
	jobs     *memJobs
	index    *memIndex
}

func newFixture() *fixture {
	f := &fixture{
		listings: newMemListings(),
		store:    newMemStore(),
		geo:      &stubGeocoder{res: geocode.Result{Lat: 37.422, Lng: -122.084, Label: "1600 Amphitheatre Pkwy, Mountain View"}},
		jobs:     &memJobs{},
		index:    &memIndex{},
	}
	users := newMemUsers(
		&entity.User{ID: alice.ID, Name: alice.Name, Email: alice.Email},
		&entity.User{ID: bob.ID, Name: bob.Name, Email: bob.Email},
	)
	cfg := &config.Config{AppName: "house-marketplace", PublicBaseURL: "http://localhost:3000", MailSendEnabled: true}
	f.svc = NewListingService(f.listings, users, f.geo, NewUploader(f.store, nil), f.index, f.jobs, cfg, nil)
	return f
}

func rentDraft() *draft.Draft {
	d := draft.New()
	d.Apply(
		draft.SetName("Sunny flat near park"),
		draft.SetAddress("1600 Amphitheatre Pkwy"),
		draft.SetRegularPrice(1000),
		draft.SetImages{img("cover.jpg"), img("kitchen.png")},
	)
	return d
}

func TestCreateRejectsDiscountNotLower(t *testing.T) {
	f := newFixture()
	d := rentDraft()
	d.Apply(draft.SetOffer(true), draft.SetDiscountedPrice(1000))

	_, err := f.svc.Create(context.Background(), alice, d, notice.New())
	if !errors.Is(err, draft.ErrDiscountNotLower) {
		t.Fatalf("expected ErrDiscountNotLower, got %v", err)
	}
	if f.listings.creates != 0 || f.geo.calls != 0 || len(f.store.objects) != 0 {
		t.Fatalf("expected no side effects, creates=%d geocode=%d objects=%d", f.listings.creates, f.geo.calls, len(f.store.objects))
	}
}

func TestCreateOfferWithoutValidDiscount(t *testing.T) {
	for _, tc := range []struct {
		name string
		upd  []draft.Update
	}{
		{"missing", nil},
		{"negative", []draft.Update{draft.SetDiscountedPrice(-500)}},
	} {
		f := newFixture()
		d := rentDraft()
		d.Apply(append([]draft.Update{draft.SetOffer(true)}, tc.upd...)...)

		if _, err := f.svc.Create(context.Background(), alice, d, notice.New()); !errors.Is(err, draft.ErrDiscountRequired) {
			t.Fatalf("%s discount: expected ErrDiscountRequired, got %v", tc.name, err)
		}
		if f.listings.creates != 0 || f.geo.calls != 0 || len(f.store.objects) != 0 {
			t.Fatalf("%s discount: expected no side effects", tc.name)
		}
	}
}

func TestCreateRejectsTooManyImages(t *testing.T) {
	f := newFixture()
	d := rentDraft()
	imgs := make(draft.SetImages, 7)
	for i := range imgs {
		imgs[i] = img("photo.jpg")
	}
	d.Set(imgs)

	if _, err := f.svc.Create(context.Background(), alice, d, notice.New()); !errors.Is(err, draft.ErrTooManyImages) {
		t.Fatalf("expected ErrTooManyImages, got %v", err)
	}
	if f.listings.creates != 0 {
		t.Fatal("expected no persistence call")
	}
}

func TestCreateRequiresImages(t *testing.T) {
	f := newFixture()
	d := rentDraft()
	d.Set(draft.SetImages(nil))
	if _, err := f.svc.Create(context.Background(), alice, d, nil); !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
}

func TestCreateUnresolvedAddress(t *testing.T) {
	f := newFixture()
	f.geo.err = geocode.ErrUnresolved

	_, err := f.svc.Create(context.Background(), alice, rentDraft(), notice.New())
	if !errors.Is(err, geocode.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if f.listings.creates != 0 || len(f.store.objects) != 0 {
		t.Fatal("expected nothing uploaded or persisted")
	}
}

func TestCreateRentRoundTripHasNoDiscount(t *testing.T) {
	f := newFixture()
	d := rentDraft()
	d.Set(draft.SetDiscountedPrice(900))
	n := notice.New()

	l, err := f.svc.Create(context.Background(), alice, d, n)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := f.svc.Get(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Type != entity.ListingRent || got.RegularPrice != 1000 || got.Offer || got.DiscountedPrice != nil {
		t.Fatalf("unexpected stored listing %+v", got)
	}
	if got.UserRef != alice.ID || got.Location != f.geo.res.Label || got.Geolocation.Lat != 37.422 {
		t.Fatalf("unexpected owner or location %+v", got)
	}
	if len(got.ImgURLs) != 2 || got.CoverURL() == "" {
		t.Fatalf("expected two image urls, got %v", got.ImgURLs)
	}
	if _, ok := f.index.docs[l.ID]; !ok {
		t.Fatal("expected listing to be indexed")
	}
	if len(f.jobs.jobs) != 1 || f.jobs.jobs[0].(mailer.EmailJob).To != alice.Email {
		t.Fatalf("expected one email job for the owner, got %v", f.jobs.jobs)
	}

	var saved, completed int
	for _, it := range n.Items() {
		switch it.Message {
		case "Listing saved":
			saved++
		case "cover.jpg upload completed!", "kitchen.png upload completed!":
			completed++
		}
	}
	if saved != 1 || completed != 2 {
		t.Fatalf("unexpected notices %v", n.Items())
	}
}

func TestCreateManualCoordinatesSkipGeocoder(t *testing.T) {
	f := newFixture()
	d := rentDraft()
	d.Apply(draft.SetGeolocationEnabled(false), draft.SetLatitude(51.5), draft.SetLongitude(-0.12))

	l, err := f.svc.Create(context.Background(), alice, d, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.geo.calls != 0 || l.Location != "1600 Amphitheatre Pkwy" || l.Geolocation.Lat != 51.5 || l.Geolocation.Lng != -0.12 {
		t.Fatalf("unexpected location %+v calls=%d", l, f.geo.calls)
	}
}

func TestCreateOfferKeepsDiscount(t *testing.T) {
	f := newFixture()
	d := rentDraft()
	d.Apply(draft.SetOffer(true), draft.SetDiscountedPrice(800))

	l, err := f.svc.Create(context.Background(), alice, d, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.DiscountedPrice == nil || *l.DiscountedPrice != 800 {
		t.Fatalf("expected discount 800, got %v", l.DiscountedPrice)
	}
}

func TestCreateUploadFailureDoesNotPersist(t *testing.T) {
	f := newFixture()
	f.store.failOn = "kitchen.png"

	if _, err := f.svc.Create(context.Background(), alice, rentDraft(), nil); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if f.listings.creates != 0 {
		t.Fatal("expected no persistence call")
	}
}

func TestEditForeignListingRejected(t *testing.T) {
	f := newFixture()
	l, err := f.svc.Create(context.Background(), alice, rentDraft(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.GetForEdit(context.Background(), bob, l.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on edit, got %v", err)
	}
	d := rentDraft()
	d.Set(draft.SetName("Bob took this listing"))
	if _, err := f.svc.Update(context.Background(), bob, l, d, nil); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on update, got %v", err)
	}
	if f.listings.updates != 0 {
		t.Fatal("expected no update call")
	}
	if err := f.svc.Delete(context.Background(), bob, l.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on delete, got %v", err)
	}
}

func TestUpdateKeepsImagesWhenNoneSelected(t *testing.T) {
	f := newFixture()
	l, err := f.svc.Create(context.Background(), alice, rentDraft(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d := draft.FromListing(l)
	d.Apply(draft.SetName("Sunny flat, now furnished"), draft.SetFurnished(true))

	up, err := f.svc.Update(context.Background(), alice, l, d, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !up.Furnished || up.Name != "Sunny flat, now furnished" || len(up.ImgURLs) != 2 || up.ImgURLs[0] != l.ImgURLs[0] {
		t.Fatalf("unexpected update %+v", up)
	}
	if len(f.jobs.jobs) != 1 {
		t.Fatalf("expected no email for updates, got %d jobs", len(f.jobs.jobs))
	}
}

func TestGetMissingListing(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.GetForEdit(context.Background(), alice, "nope"); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
}

func TestDeleteRemovesIndexDocument(t *testing.T) {
	f := newFixture()
	l, _ := f.svc.Create(context.Background(), alice, rentDraft(), nil)
	if err := f.svc.Delete(context.Background(), alice, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := f.index.docs[l.ID]; ok {
		t.Fatal("expected search document to be removed")
	}
	if _, err := f.svc.Get(context.Background(), l.ID); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected listing gone, got %v", err)
	}
}

func TestContactOwner(t *testing.T) {
	f := newFixture()
	l, _ := f.svc.Create(context.Background(), alice, rentDraft(), nil)

	if err := f.svc.ContactOwner(context.Background(), alice, l.ID, "hi"); !errors.Is(err, ErrOwnContact) {
		t.Fatalf("expected ErrOwnContact, got %v", err)
	}
	if err := f.svc.ContactOwner(context.Background(), bob, l.ID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if err := f.svc.ContactOwner(context.Background(), bob, l.ID, "Is it still available?"); err != nil {
		t.Fatalf("contact: %v", err)
	}
	job := f.jobs.jobs[len(f.jobs.jobs)-1].(mailer.EmailJob)
	if job.To != alice.Email || job.ReplyTo != bob.Email || job.Data["Message"] != "Is it still available?" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestSearchSkipsMissingListings(t *testing.T) {
	f := newFixture()
	l, _ := f.svc.Create(context.Background(), alice, rentDraft(), nil)
	f.index.docs["ghost"] = entity.Listing{ID: "ghost"}

	got, err := f.svc.Search(context.Background(), "flat", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != l.ID {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestCreateStoreFailureDiscardsImages(t *testing.T) {
	f := newFixture()
	f.listings.failErr = errors.New("connection reset")

	if _, err := f.svc.Create(context.Background(), alice, rentDraft(), nil); err == nil {
		t.Fatal("expected create error")
	}
	if len(f.store.objects) != 0 || len(f.store.deleted) != 2 {
		t.Fatalf("expected uploaded images deleted, left=%d deleted=%v", len(f.store.objects), f.store.deleted)
	}
}

func TestUpdateOwnerChangedBeforeWriteDiscardsNewImages(t *testing.T) {
	f := newFixture()
	l, err := f.svc.Create(context.Background(), alice, rentDraft(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loaded, err := f.svc.GetForEdit(context.Background(), alice, l.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	row := f.listings.rows[l.ID]
	row.UserRef = bob.ID
	f.listings.rows[l.ID] = row

	d := draft.FromListing(loaded)
	d.Set(draft.SetImages{img("garden.jpg")})
	if _, err := f.svc.Update(context.Background(), alice, loaded, d, nil); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if f.listings.updates != 0 || len(f.store.objects) != 2 || len(f.store.deleted) != 1 {
		t.Fatalf("expected only the new image deleted, updates=%d left=%d deleted=%v", f.listings.updates, len(f.store.objects), f.store.deleted)
	}
}

func TestUpdateKeepsLocationWhenAddressUnchanged(t *testing.T) {
	f := newFixture()
	d := rentDraft()
	d.Apply(draft.SetGeolocationEnabled(false), draft.SetLatitude(51.5), draft.SetLongitude(-0.12))
	l, err := f.svc.Create(context.Background(), alice, d, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	edit := draft.FromListing(l)
	edit.Set(draft.SetBedrooms(3))
	up, err := f.svc.Update(context.Background(), alice, l, edit, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if f.geo.calls != 0 || up.Geolocation != l.Geolocation || up.Location != l.Location {
		t.Fatalf("expected stored location kept, calls=%d got %+v", f.geo.calls, up)
	}

	edit = draft.FromListing(up)
	edit.Set(draft.SetAddress("1 Infinite Loop"))
	up, err = f.svc.Update(context.Background(), alice, up, edit, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if f.geo.calls != 1 || up.Location != f.geo.res.Label {
		t.Fatalf("expected new address geocoded, calls=%d got %+v", f.geo.calls, up)
	}
}
