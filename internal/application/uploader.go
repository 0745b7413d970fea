package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/house-marketplace/internal/domain/draft"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
)

var ErrUploadFailed = errors.New("images not uploaded")

// TransferState is the state reported by the object store for one upload.
type TransferState string

const (
	StateRunning TransferState = "running"
	StatePaused  TransferState = "paused"
	StateSuccess TransferState = "success"
)

// ObjectStore stores image bytes under objectPath and returns a download URL.
// progress may be called from the uploading goroutine any number of times.
// PathOf maps a URL returned by Put back to its object path.
type ObjectStore interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader, size int64, progress func(transferred int64, state TransferState)) (string, error)
	Delete(ctx context.Context, objectPath string) error
	PathOf(url string) (string, bool)
}

// UploadProgress is one progress report for the image at Index.
type UploadProgress struct {
	Index       int
	Name        string
	Transferred int64
	Total       int64
	State       TransferState
}

type Uploader struct {
	Store  ObjectStore
	Prefix string
	Logger *logrus.Logger
}

func NewUploader(store ObjectStore, logger *logrus.Logger) *Uploader {
	return &Uploader{Store: store, Prefix: "images", Logger: logger}
}

func (u *Uploader) objectPath(ownerID, filename string) string {
	return path.Join(u.Prefix, fmt.Sprintf("%s-%s-%s", ownerID, path.Base(filename), uuid.NewString()))
}

// UploadAll uploads every image concurrently and returns the URLs in input
// order. The batch fails if any image fails; objects already stored by the
// failed batch are then deleted. onProgress may be nil and must be safe for
// concurrent use.
func (u *Uploader) UploadAll(ctx context.Context, ownerID string, images []draft.Image, onProgress func(UploadProgress)) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	urls := make([]string, len(images))
	var (
		mu     sync.Mutex
		stored []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			objectPath := u.objectPath(ownerID, img.Name)
			rc, err := img.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", img.Name, err)
			}
			defer rc.Close()

			report := func(transferred int64, state TransferState) {
				if onProgress != nil {
					onProgress(UploadProgress{Index: i, Name: img.Name, Transferred: transferred, Total: img.Size, State: state})
				}
			}
			url, err := u.Store.Put(gctx, objectPath, img.ContentType, rc, img.Size, report)
			if err != nil {
				return fmt.Errorf("upload %s: %w", img.Name, err)
			}
			mu.Lock()
			stored = append(stored, objectPath)
			mu.Unlock()
			urls[i] = url
			report(img.Size, StateSuccess)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		u.cleanup(stored)
		helpers.LogError(u.Logger, "image upload batch failed", err, logrus.Fields{"owner": ownerID, "images": len(images)})
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return urls, nil
}

// Discard deletes objects from a batch whose listing was never saved.
// URLs the store does not recognise are skipped.
func (u *Uploader) Discard(urls []string) {
	paths := make([]string, 0, len(urls))
	for _, url := range urls {
		if p, ok := u.Store.PathOf(url); ok {
			paths = append(paths, p)
		}
	}
	u.cleanup(paths)
}

func (u *Uploader) cleanup(objectPaths []string) {
	ctx := context.Background()
	for _, p := range objectPaths {
		if err := u.Store.Delete(ctx, p); err != nil {
			helpers.LogWarn(u.Logger, "cleanup of uploaded image failed", err, logrus.Fields{"object": p})
		}
	}
}
