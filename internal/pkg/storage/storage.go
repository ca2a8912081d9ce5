// Package storage fetches email template overrides from an object bucket on
// S3, GCS or MinIO. Objects are managed out of band, so only reads exist.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// MaxObjectSize caps how much of one object ReadObject loads into memory.
const MaxObjectSize = 1 << 20

var (
	ErrObjectTooLarge = errors.New("storage: object too large")
	ErrBucketRequired = errors.New("storage: bucket is required")
	// ErrObjectNotFound is returned by every driver for a missing key.
	ErrObjectNotFound = errors.New("storage: object not found")
)

// Storage reads objects from the bucket it was built for.
type Storage interface {
	io.Closer
	ReadObject(ctx context.Context, key string) ([]byte, ObjectInfo, error)
}

// ObjectInfo is the metadata returned with an object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
	UpdatedAt   time.Time
}

// readCapped reads r fully unless it holds more than MaxObjectSize bytes.
func readCapped(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxObjectSize+1))
	switch {
	case err != nil:
		return nil, err
	case len(data) > MaxObjectSize:
		return nil, ErrObjectTooLarge
	}
	return data, nil
}
