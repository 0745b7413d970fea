package application

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	repo "github.com/oksasatya/house-marketplace/internal/domain/repository"
	"github.com/oksasatya/house-marketplace/internal/infrastructure/geocode"
)

var errDuplicate = errors.New("duplicate email")

type memListings struct {
	mu      sync.Mutex
	rows    map[string]entity.Listing
	seq     int
	creates int
	updates int
	failErr error
}

func newMemListings() *memListings {
	return &memListings{rows: map[string]entity.Listing{}}
}

func (m *memListings) Create(ctx context.Context, l *entity.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.seq++
	m.creates++
	l.ID = "l" + strconv.Itoa(m.seq)
	l.CreatedAt = time.Now()
	l.Timestamp = l.CreatedAt
	if !l.Offer {
		l.DiscountedPrice = nil
	}
	m.rows[l.ID] = *l
	return nil
}

func (m *memListings) Update(ctx context.Context, l *entity.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	cur, ok := m.rows[l.ID]
	if !ok || cur.UserRef != l.UserRef {
		return repo.ErrNotFound
	}
	m.updates++
	l.Timestamp = time.Now()
	if !l.Offer {
		l.DiscountedPrice = nil
	}
	m.rows[l.ID] = *l
	return nil
}

func (m *memListings) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &l, nil
}

func (m *memListings) List(ctx context.Context, f repo.ListFilter) ([]entity.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Listing
	for _, l := range m.rows {
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		if f.OfferOnly && !l.Offer {
			continue
		}
		if f.OwnerID != "" && l.UserRef != f.OwnerID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memListings) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*entity.User
	seq     int
	updates int
}

func newMemUsers(users ...*entity.User) *memUsers {
	m := &memUsers{byID: map[string]*entity.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(ctx context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return errDuplicate
		}
	}
	m.seq++
	u.ID = "u" + strconv.Itoa(100+m.seq)
	u.CreatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) Update(ctx context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	m.updates++
	cur.Name = u.Name
	return nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Password = hash
	return nil
}

type stubGeocoder struct {
	res   geocode.Result
	err   error
	calls int
}

func (g *stubGeocoder) Resolve(ctx context.Context, address string) (geocode.Result, error) {
	g.calls++
	return g.res, g.err
}

type memJobs struct {
	mu   sync.Mutex
	jobs []any
}

func (j *memJobs) PublishJSON(ctx context.Context, body any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs = append(j.jobs, body)
	return nil
}

type memIndex struct {
	docs map[string]entity.Listing
}

func (x *memIndex) Index(ctx context.Context, l *entity.Listing) error {
	if x.docs == nil {
		x.docs = map[string]entity.Listing{}
	}
	x.docs[l.ID] = *l
	return nil
}

func (x *memIndex) Delete(ctx context.Context, id string) error {
	delete(x.docs, id)
	return nil
}

func (x *memIndex) Search(ctx context.Context, q string, size int) ([]string, error) {
	var ids []string
	for id := range x.docs {
		ids = append(ids, id)
	}
	return ids, nil
}
