package storage

import (
	"context"

	"github.com/iudanet/fieldsync/internal/models"
)

//go:generate moq -out entitystorage_mock.go . EntityStorage

// MergeStats describes what a single pull merge did to the local store
type MergeStats struct {
	Inserted int // new entities materialized locally
	Updated  int // local copies overwritten by the authoritative remote version
	Deleted  int // local copies removed by remote tombstones
	Skipped  int // remote versions deferred because a local edit is still outgoing
}

// EntityStorage defines interface for reading and merging local entity state
type EntityStorage interface {
	// GetEntity retrieves an entity by its local_id
	// Returns ErrEntityNotFound if entity doesn't exist
	GetEntity(ctx context.Context, entityType, localID string) (*models.EntityRecord, error)

	// GetEntityByCloudID retrieves an entity by its server-assigned id
	// Returns ErrEntityNotFound if entity doesn't exist
	GetEntityByCloudID(ctx context.Context, entityType, cloudID string) (*models.EntityRecord, error)

	// ListEntities returns all non-deleted entities of the given type
	ListEntities(ctx context.Context, entityType string) ([]*models.EntityRecord, error)

	// MergeRemoteBatch merges one pull response for one entity type and
	// advances the type's watermark to maxUpdatedAt in the same transaction.
	// Remote payloads carry parent references in cloud_id form; they are
	// rewritten to local_id form during the merge. Entities with an
	// outgoing pending/syncing change record are skipped, remote tombstones
	// remove local copies. Any failure rolls back the whole batch including
	// the watermark.
	MergeRemoteBatch(ctx context.Context, entityType string, remotes []*models.EntityRecord, maxUpdatedAt int64) (*MergeStats, error)
}
