// internal/service/creative/infrastructure/adapter/gcs_storage.go
package adapter

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// GCSObjectStore implements port.ObjectStore on a single GCS bucket.
// Credentials come from the ambient service account.
type GCSObjectStore struct {
	client *storage.Client
	bucket string
}

func NewGCSObjectStore(ctx context.Context, bucket string) (*GCSObjectStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, errors.Wrap(err, "create storage client")
	}
	return &GCSObjectStore{client: client, bucket: bucket}, nil
}

func (s *GCSObjectStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = "image/png"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", errors.Wrapf(err, "write gs://%s/%s", s.bucket, path)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "finalize gs://%s/%s", s.bucket, path)
	}
	return path, nil
}

func (s *GCSObjectStore) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "open gs://%s/%s", s.bucket, path)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read gs://%s/%s", s.bucket, path)
	}
	return data, nil
}

func (s *GCSObjectStore) Close() error {
	return s.client.Close()
}
