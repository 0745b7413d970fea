package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// UploadOptions tunes a single object write.
// ChunkSize > 0 makes the write resumable in chunks of that many bytes;
// Progress receives the number of bytes sent so far after each chunk.
type UploadOptions struct {
	ContentType string
	ChunkSize   int
	Progress    func(written int64)
}

// UploadObject uploads bytes from r into bucket/objectPath and returns the public URL
func UploadObject(ctx context.Context, client *storage.Client, bucket, objectPath string, r io.Reader, opts UploadOptions) (string, error) {
	wc := client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = opts.ContentType
	wc.ChunkSize = opts.ChunkSize
	if opts.Progress != nil {
		wc.ProgressFunc = opts.Progress
	}
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return PublicURL(bucket, objectPath), nil
}

// DeleteObject removes bucket/objectPath; a missing object is not an error.
func DeleteObject(ctx context.Context, client *storage.Client, bucket, objectPath string) error {
	err := client.Bucket(bucket).Object(objectPath).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// PublicURL builds a public URL for an object (assuming public read access or signed URLs)
func PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, escapePath(objectPath))
}

// ObjectPathFromURL reverses PublicURL for objects in bucket.
func ObjectPathFromURL(bucket, rawURL string) (string, bool) {
	prefix := "https://storage.googleapis.com/" + bucket + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	p, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil {
		return "", false
	}
	return p, true
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
