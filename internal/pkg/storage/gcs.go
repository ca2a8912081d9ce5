package storage

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures the Google Cloud Storage driver. Client, when set,
// is used as is and ClientOptions are ignored.
type GCSOptions struct {
	Client        *gcs.Client
	ClientOptions []option.ClientOption
}

// GCS reads objects from a Google Cloud Storage bucket.
type GCS struct {
	bucket *gcs.BucketHandle
	client *gcs.Client
}

// NewGCS builds a GCS driver for bucket.
func NewGCS(ctx context.Context, bucket string, opts GCSOptions) (*GCS, error) {
	client := opts.Client
	if client == nil {
		c, err := gcs.NewClient(ctx, opts.ClientOptions...)
		if err != nil {
			return nil, fmt.Errorf("storage: gcs client: %w", err)
		}
		client = c
	}
	return &GCS{bucket: client.Bucket(bucket), client: client}, nil
}

func (g *GCS) ReadObject(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	rd, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	defer rd.Close()

	data, err := readCapped(rd)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return data, ObjectInfo{
		Key:         key,
		Size:        rd.Attrs.Size,
		ContentType: rd.Attrs.ContentType,
		UpdatedAt:   rd.Attrs.LastModified,
	}, nil
}

func (g *GCS) Close() error { return g.client.Close() }
