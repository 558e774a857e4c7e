// internal/service/creative/domain/port/storage.go
package port

import "context"

// ObjectStore is durable blob storage for reference and generated images.
// Writes are append-only; paths are derived from (run id, index) so no two
// writers ever race on one path.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
}
