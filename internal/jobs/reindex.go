// Package jobs holds scheduled background work of the API process.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	repo "github.com/oksasatya/house-marketplace/internal/domain/repository"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
)

const reindexPage = 100

// BulkIndexer writes a batch of listings to the search index.
type BulkIndexer interface {
	IndexAll(ctx context.Context, listings []entity.Listing) (failed int, err error)
}

// Reindexer rebuilds the search index from the listing store. It heals
// documents lost when a best-effort index call failed after a write.
type Reindexer struct {
	Listings repo.ListingRepository
	Index    BulkIndexer
	Logger   *logrus.Logger

	running sync.Mutex
}

func NewReindexer(listings repo.ListingRepository, index BulkIndexer, logger *logrus.Logger) *Reindexer {
	return &Reindexer{Listings: listings, Index: index, Logger: logger}
}

// Run indexes every listing page by page. Overlapping runs are skipped.
func (r *Reindexer) Run(ctx context.Context) (indexed int, err error) {
	if !r.running.TryLock() {
		return 0, nil
	}
	defer r.running.Unlock()

	start := time.Now()
	var failed int
	var after string
	for {
		page, err := r.Listings.List(ctx, repo.ListFilter{Limit: reindexPage, ByID: true, AfterID: after})
		if err != nil {
			return indexed, err
		}
		if len(page) == 0 {
			break
		}
		n, err := r.Index.IndexAll(ctx, page)
		if err != nil {
			return indexed, err
		}
		failed += n
		indexed += len(page) - n
		after = page[len(page)-1].ID
		if len(page) < reindexPage {
			break
		}
	}
	if r.Logger != nil {
		r.Logger.WithFields(logrus.Fields{
			"indexed":  indexed,
			"failed":   failed,
			"duration": time.Since(start).String(),
		}).Info("search reindex finished")
	}
	return indexed, nil
}

// Schedule registers Run on c under spec. An empty spec disables it.
func (r *Reindexer) Schedule(c *cron.Cron, spec string) error {
	if spec == "" {
		return nil
	}
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			helpers.LogError(r.Logger, "search reindex failed", err, nil)
		}
	})
	return err
}
