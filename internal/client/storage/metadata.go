package storage

import "context"

//go:generate moq -out metadatastorage_mock.go . MetadataStorage

// MetadataStorage defines interface for per-type sync watermarks
type MetadataStorage interface {
	// GetWatermark retrieves the highest remote updated_at already merged
	// for the entity type. Returns 0 if the type has never been pulled.
	GetWatermark(ctx context.Context, entityType string) (int64, error)

	// SaveWatermark stores the watermark for the entity type.
	// Watermarks are monotonic: a value lower than the stored one is ignored.
	SaveWatermark(ctx context.Context, entityType string, timestamp int64) error
}
