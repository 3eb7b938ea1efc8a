package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// GCS writes page texts to a Google Cloud Storage bucket using ambient
// application-default credentials.
type GCS struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS creates a bucket-backed archive.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{bucket: client.Bucket(bucket), prefix: prefix}, nil
}

// Put uploads one page text as prefix/key.
func (g *GCS) Put(ctx context.Context, key string, text string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("archive key is required")
	}

	objectName := key
	if g.prefix != "" {
		objectName = path.Join(g.prefix, key)
	}

	w := g.bucket.Object(objectName).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := w.Write([]byte(text)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gcs object %q: %w", objectName, err)
	}
	return nil
}
