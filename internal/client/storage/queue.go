package storage

import (
	"context"

	"github.com/iudanet/fieldsync/internal/models"
)

//go:generate moq -out queuestorage_mock.go . QueueStorage

// QueueStorage defines interface for the durable change queue.
// Multi-row operations are transactional: either every row they touch
// is written or none is.
type QueueStorage interface {
	// ApplyLocalChange upserts the entity row and appends its change record
	// in one transaction. This is the durability contract of the recorder:
	// no mutation is acknowledged without a queued record.
	ApplyLocalChange(ctx context.Context, entity *models.EntityRecord, record *models.ChangeRecord) error

	// ApplyLocalDelete retires all pending and failed records for the entity
	// and, when record is not nil, tombstones the entity and appends the
	// delete record; when record is nil (entity never reached the server)
	// the entity row is purged instead. One transaction.
	ApplyLocalDelete(ctx context.Context, entityType, localID string, record *models.ChangeRecord) error

	// NextPendingRecords returns pending records that are due (next_attempt_at <= now)
	// and are the earliest outstanding record for their entity, ordered by queue_id,
	// at most limit rows. Records blocked behind an earlier record for the same
	// entity are not returned.
	NextPendingRecords(ctx context.Context, now int64, limit int) ([]*models.ChangeRecord, error)

	// GetRecord retrieves a single queue record
	// Returns ErrRecordNotFound if it doesn't exist
	GetRecord(ctx context.Context, queueID int64) (*models.ChangeRecord, error)

	// MarkSyncing flips the given records and their entities to syncing
	MarkSyncing(ctx context.Context, queueIDs []int64) error

	// MarkPending reverts the given records and their entities back to pending.
	// Used when a cycle aborts before the batch reached the server.
	MarkPending(ctx context.Context, queueIDs []int64) error

	// CompleteCreate finishes a successful create: assigns cloud_id to the
	// entity (exactly once, ErrCloudIDConflict on a different existing value),
	// deletes the queue row and recomputes the entity sync status.
	CompleteCreate(ctx context.Context, queueID int64, entityType, localID, cloudID string) error

	// CompleteUpdate finishes a successful update: deletes the queue row and
	// recomputes the entity sync status.
	CompleteUpdate(ctx context.Context, queueID int64, entityType, localID string) error

	// CompleteDelete finishes a successful delete: deletes the queue row and
	// purges the local tombstone.
	CompleteDelete(ctx context.Context, queueID int64, entityType, localID string) error

	// BackoffRecord reschedules a transiently failed record: increments
	// attempts, stores the error text and attempt times, sets the record and
	// its entity back to pending.
	BackoffRecord(ctx context.Context, queueID int64, errMsg string, lastAttemptAt, nextAttemptAt int64) error

	// FailRecord marks a record terminally failed and its entity failed,
	// stores the error text for the operator. Oldest failed rows beyond the
	// retention cap are pruned.
	FailRecord(ctx context.Context, queueID int64, errMsg string, lastAttemptAt int64) error

	// ListFailed returns all terminally failed records ordered by queue_id
	ListFailed(ctx context.Context) ([]*models.ChangeRecord, error)

	// RetryRecord resets a failed record for another round of pushes:
	// attempts back to zero, record and entity back to pending.
	// Returns ErrRecordNotFound if it doesn't exist.
	RetryRecord(ctx context.Context, queueID int64) error

	// DiscardRecord drops a record from the queue and recomputes the entity
	// sync status. Used by the operator to give up on a failed record.
	DiscardRecord(ctx context.Context, queueID int64) error

	// PendingCount returns the number of records waiting to be pushed
	// (pending and syncing)
	PendingCount(ctx context.Context) (int, error)
}
