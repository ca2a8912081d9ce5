package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noSuchKey = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>email/missing.html</Key><BucketName>templates</BucketName></Error>`

// bucketServer serves email/welcome.html and answers NoSuchKey for anything else.
func bucketServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/templates/email/welcome.html" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(noSuchKey))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("Last-Modified", "Thu, 15 Oct 2026 09:00:00 GMT")
		_, _ = w.Write([]byte("<p>Welcome</p>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewFromDriver(t *testing.T) {
	_, err := NewFromDriver(context.Background(), DriverS3, FactoryOptions{Bucket: "  "})
	require.ErrorIs(t, err, ErrBucketRequired)

	_, err = NewFromDriver(context.Background(), "ftp", FactoryOptions{Bucket: "templates"})
	require.ErrorIs(t, err, ErrUnknownDriver)

	s, err := NewFromDriver(context.Background(), " MinIO ", FactoryOptions{
		Bucket: "templates",
		MinIO:  MinIOOptions{Endpoint: "localhost:9000"},
	})
	require.NoError(t, err)
	assert.IsType(t, &MinIO{}, s)
}

func TestReadCapped(t *testing.T) {
	data, err := readCapped(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = readCapped(bytes.NewReader(make([]byte, MaxObjectSize+1)))
	require.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestS3_ReadObject(t *testing.T) {
	srv := bucketServer(t)

	s, err := NewFromDriver(context.Background(), DriverS3, FactoryOptions{
		Bucket: "templates",
		S3: S3Options{
			Endpoint:     srv.URL,
			AccessKey:    "key",
			SecretKey:    "secret",
			UsePathStyle: true,
		},
	})
	require.NoError(t, err)
	defer s.Close()

	data, info, err := s.ReadObject(context.Background(), "email/welcome.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>Welcome</p>", string(data))
	assert.Equal(t, "text/html", info.ContentType)
	assert.Equal(t, `"abc"`, info.ETag)
	assert.Equal(t, 2026, info.UpdatedAt.Year())

	_, _, err = s.ReadObject(context.Background(), "email/missing.html")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMinIO_ReadObject(t *testing.T) {
	srv := bucketServer(t)

	s, err := NewMinIO("templates", MinIOOptions{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	defer s.Close()

	data, info, err := s.ReadObject(context.Background(), "email/welcome.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>Welcome</p>", string(data))
	assert.Equal(t, "text/html", info.ContentType)

	_, _, err = s.ReadObject(context.Background(), "email/missing.html")
	require.ErrorIs(t, err, ErrObjectNotFound)
}
