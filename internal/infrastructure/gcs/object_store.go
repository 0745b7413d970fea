// Package gcs binds the image ObjectStore to a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/house-marketplace/internal/application"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
)

// ObjectStore writes objects with the resumable writer; every completed
// chunk is reported as running progress.
type ObjectStore struct {
	Client    *storage.Client
	Bucket    string
	ChunkSize int
}

func NewObjectStore(client *storage.Client, bucket string, chunkSize int) *ObjectStore {
	return &ObjectStore{Client: client, Bucket: bucket, ChunkSize: chunkSize}
}

func (s *ObjectStore) Put(ctx context.Context, objectPath, contentType string, r io.Reader, size int64, progress func(int64, application.TransferState)) (string, error) {
	opts := helpers.UploadOptions{ContentType: contentType, ChunkSize: s.ChunkSize}
	if progress != nil {
		opts.Progress = func(written int64) { progress(written, application.StateRunning) }
	}
	return helpers.UploadObject(ctx, s.Client, s.Bucket, objectPath, r, opts)
}

func (s *ObjectStore) Delete(ctx context.Context, objectPath string) error {
	return helpers.DeleteObject(ctx, s.Client, s.Bucket, objectPath)
}

// PathOf maps a stored URL back to its object path.
func (s *ObjectStore) PathOf(url string) (string, bool) {
	return helpers.ObjectPathFromURL(s.Bucket, url)
}
