package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

// failedRetentionCap ограничивает число хранимых терминально упавших записей
const failedRetentionCap = 200

const recordColumns = "queue_id, entity_type, entity_local_id, operation, status, last_error, payload, attempts, last_attempt_at, next_attempt_at, enqueued_at"

// ApplyLocalChange upserts the entity row and appends its change record in
// one transaction: no mutation is acknowledged without a queued record.
// The record's QueueID is filled in on success.
func (s *Storage) ApplyLocalChange(ctx context.Context, entity *models.EntityRecord, record *models.ChangeRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Снимок сущности и запись очереди фиксируются вместе
		query := `
			INSERT INTO entities (local_id, entity_type, cloud_id, sync_status, payload, updated_at, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(local_id) DO UPDATE SET
				sync_status = excluded.sync_status,
				payload = excluded.payload,
				updated_at = excluded.updated_at,
				deleted = excluded.deleted
		`
		_, err := tx.ExecContext(ctx, query,
			entity.LocalID, entity.EntityType, entity.CloudID, entity.SyncStatus,
			entity.Payload, entity.UpdatedAt, boolToInt(entity.Deleted),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert entity: %w", err)
		}

		queueID, err := insertRecordTx(ctx, tx, record)
		if err != nil {
			return err
		}

		record.QueueID = queueID
		return nil
	})
}

// ApplyLocalDelete retires all pending and failed records for the entity and
// either appends the delete record with a local tombstone (record != nil) or
// purges the entity row entirely (record == nil, the server never saw it).
func (s *Storage) ApplyLocalDelete(ctx context.Context, entityType, localID string, record *models.ChangeRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Delete вытесняет все ранние pending и failed записи сущности
		_, err := tx.ExecContext(ctx, `
			DELETE FROM change_queue
			WHERE entity_type = ? AND entity_local_id = ? AND status IN (?, ?)
		`, entityType, localID, models.RecordStatusPending, models.RecordStatusFailed)
		if err != nil {
			return fmt.Errorf("failed to retire queued records: %w", err)
		}

		if record == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM entities WHERE entity_type = ? AND local_id = ?`,
				entityType, localID,
			); err != nil {
				return fmt.Errorf("failed to purge entity: %w", err)
			}
			return nil
		}

		// Tombstone скрывает сущность локально до завершения delete-записи
		query := `
			UPDATE entities
			SET deleted = 1, sync_status = ?, updated_at = ?
			WHERE entity_type = ? AND local_id = ?
		`
		if _, err := tx.ExecContext(ctx, query,
			models.SyncStatusPending, record.EnqueuedAt, entityType, localID,
		); err != nil {
			return fmt.Errorf("failed to tombstone entity: %w", err)
		}

		queueID, err := insertRecordTx(ctx, tx, record)
		if err != nil {
			return err
		}

		record.QueueID = queueID
		return nil
	})
}

// NextPendingRecords returns due pending records that are the earliest
// outstanding record for their entity, in enqueue order. A record behind an
// earlier pending, syncing or failed record for the same entity stays blocked.
func (s *Storage) NextPendingRecords(ctx context.Context, now int64, limit int) ([]*models.ChangeRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM change_queue q
		WHERE q.status = ?
		  AND q.next_attempt_at <= ?
		  AND NOT EXISTS (
			SELECT 1 FROM change_queue prev
			WHERE prev.entity_type = q.entity_type
			  AND prev.entity_local_id = q.entity_local_id
			  AND prev.queue_id < q.queue_id
		  )
		ORDER BY q.queue_id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, models.RecordStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending records: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	return scanRecords(rows)
}

// GetRecord retrieves a single queue record
// Returns ErrRecordNotFound if it doesn't exist
func (s *Storage) GetRecord(ctx context.Context, queueID int64) (*models.ChangeRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM change_queue
		WHERE queue_id = ?
	`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, queueID))
	if err != nil {
		return nil, err
	}

	return record, nil
}

// MarkSyncing flips the given records and their entities to syncing
func (s *Storage) MarkSyncing(ctx context.Context, queueIDs []int64) error {
	return s.setRecordsStatus(ctx, queueIDs, models.RecordStatusSyncing, models.SyncStatusSyncing)
}

// MarkPending reverts the given records and their entities back to pending
func (s *Storage) MarkPending(ctx context.Context, queueIDs []int64) error {
	return s.setRecordsStatus(ctx, queueIDs, models.RecordStatusPending, models.SyncStatusPending)
}

func (s *Storage) setRecordsStatus(ctx context.Context, queueIDs []int64, recordStatus, entityStatus string) error {
	if len(queueIDs) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		in := placeholders(len(queueIDs))
		args := int64Args(queueIDs)

		query := `UPDATE change_queue SET status = ? WHERE queue_id IN (` + in + `)`
		if _, err := tx.ExecContext(ctx, query, append([]any{recordStatus}, args...)...); err != nil {
			return fmt.Errorf("failed to update record status: %w", err)
		}

		query = `
			UPDATE entities
			SET sync_status = ?
			WHERE (entity_type, local_id) IN (
				SELECT entity_type, entity_local_id FROM change_queue WHERE queue_id IN (` + in + `)
			)
		`
		if _, err := tx.ExecContext(ctx, query, append([]any{entityStatus}, args...)...); err != nil {
			return fmt.Errorf("failed to update entity status: %w", err)
		}

		return nil
	})
}

// CompleteCreate finishes a successful create: writes cloud_id exactly once,
// removes the queue row and recomputes the entity status.
func (s *Storage) CompleteCreate(ctx context.Context, queueID int64, entityType, localID, cloudID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT cloud_id FROM entities WHERE entity_type = ? AND local_id = ?`,
			entityType, localID,
		).Scan(&existing)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrEntityNotFound
			}
			return fmt.Errorf("failed to read cloud_id: %w", err)
		}

		// cloud_id неизменяем после первой записи
		if existing != "" && existing != cloudID {
			return fmt.Errorf("%w: existing %q, new %q", storage.ErrCloudIDConflict, existing, cloudID)
		}

		if existing == "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE entities SET cloud_id = ? WHERE entity_type = ? AND local_id = ?`,
				cloudID, entityType, localID,
			); err != nil {
				return fmt.Errorf("failed to assign cloud_id: %w", err)
			}
		}

		if err := deleteRecordTx(ctx, tx, queueID); err != nil {
			return err
		}

		return recomputeEntityStatusTx(ctx, tx, entityType, localID)
	})
}

// CompleteUpdate finishes a successful update: removes the queue row and
// recomputes the entity status.
func (s *Storage) CompleteUpdate(ctx context.Context, queueID int64, entityType, localID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteRecordTx(ctx, tx, queueID); err != nil {
			return err
		}

		return recomputeEntityStatusTx(ctx, tx, entityType, localID)
	})
}

// CompleteDelete finishes a successful delete: removes the queue row and
// purges the local tombstone.
func (s *Storage) CompleteDelete(ctx context.Context, queueID int64, entityType, localID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteRecordTx(ctx, tx, queueID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM entities WHERE entity_type = ? AND local_id = ?`,
			entityType, localID,
		); err != nil {
			return fmt.Errorf("failed to purge entity: %w", err)
		}

		return nil
	})
}

// BackoffRecord reschedules a transiently failed record and returns it and
// its entity to pending
func (s *Storage) BackoffRecord(ctx context.Context, queueID int64, errMsg string, lastAttemptAt, nextAttemptAt int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE change_queue
			SET status = ?, attempts = attempts + 1, last_error = ?, last_attempt_at = ?, next_attempt_at = ?
			WHERE queue_id = ?
		`
		res, err := tx.ExecContext(ctx, query,
			models.RecordStatusPending, errMsg, lastAttemptAt, nextAttemptAt, queueID,
		)
		if err != nil {
			return fmt.Errorf("failed to backoff record: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return storage.ErrRecordNotFound
		}

		return setEntityStatusByRecordTx(ctx, tx, queueID, models.SyncStatusPending)
	})
}

// FailRecord marks a record terminally failed and prunes failed rows beyond
// the retention cap
func (s *Storage) FailRecord(ctx context.Context, queueID int64, errMsg string, lastAttemptAt int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE change_queue
			SET status = ?, attempts = attempts + 1, last_error = ?, last_attempt_at = ?
			WHERE queue_id = ?
		`
		res, err := tx.ExecContext(ctx, query, models.RecordStatusFailed, errMsg, lastAttemptAt, queueID)
		if err != nil {
			return fmt.Errorf("failed to mark record failed: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return storage.ErrRecordNotFound
		}

		if err := setEntityStatusByRecordTx(ctx, tx, queueID, models.SyncStatusFailed); err != nil {
			return err
		}

		// Ограничиваем число failed записей для инспекции оператором
		_, err = tx.ExecContext(ctx, `
			DELETE FROM change_queue
			WHERE status = ? AND queue_id NOT IN (
				SELECT queue_id FROM change_queue WHERE status = ? ORDER BY queue_id DESC LIMIT ?
			)
		`, models.RecordStatusFailed, models.RecordStatusFailed, failedRetentionCap)
		if err != nil {
			return fmt.Errorf("failed to prune failed records: %w", err)
		}

		return nil
	})
}

// ListFailed returns all terminally failed records ordered by queue_id
func (s *Storage) ListFailed(ctx context.Context) ([]*models.ChangeRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM change_queue
		WHERE status = ?
		ORDER BY queue_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, models.RecordStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed records: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	return scanRecords(rows)
}

// RetryRecord resets a failed record for another round of pushes
func (s *Storage) RetryRecord(ctx context.Context, queueID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE change_queue
			SET status = ?, attempts = 0, last_error = '', next_attempt_at = 0
			WHERE queue_id = ? AND status = ?
		`
		res, err := tx.ExecContext(ctx, query, models.RecordStatusPending, queueID, models.RecordStatusFailed)
		if err != nil {
			return fmt.Errorf("failed to reset record: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return storage.ErrRecordNotFound
		}

		return setEntityStatusByRecordTx(ctx, tx, queueID, models.SyncStatusPending)
	})
}

// DiscardRecord drops a record from the queue and recomputes the entity status
func (s *Storage) DiscardRecord(ctx context.Context, queueID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		record, err := scanRecord(tx.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM change_queue WHERE queue_id = ?`, queueID,
		))
		if err != nil {
			return err
		}

		if err := deleteRecordTx(ctx, tx, queueID); err != nil {
			return err
		}

		return recomputeEntityStatusTx(ctx, tx, record.EntityType, record.EntityLocalID)
	})
}

// PendingCount returns the number of records waiting to be pushed
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM change_queue WHERE status IN (?, ?)`,
		models.RecordStatusPending, models.RecordStatusSyncing,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", err)
	}

	return count, nil
}

// insertRecordTx добавляет запись в очередь и возвращает её queue_id
func insertRecordTx(ctx context.Context, tx *sql.Tx, record *models.ChangeRecord) (int64, error) {
	query := `
		INSERT INTO change_queue (entity_type, entity_local_id, operation, status, last_error, payload, attempts, last_attempt_at, next_attempt_at, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, query,
		record.EntityType, record.EntityLocalID, record.Operation, record.Status,
		record.LastError, record.Payload, record.Attempts,
		record.LastAttemptAt, record.NextAttemptAt, record.EnqueuedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert change record: %w", err)
	}

	queueID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue_id: %w", err)
	}

	return queueID, nil
}

func deleteRecordTx(ctx context.Context, tx *sql.Tx, queueID int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM change_queue WHERE queue_id = ?`, queueID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// setEntityStatusByRecordTx выставляет статус сущности, на которую
// ссылается запись очереди
func setEntityStatusByRecordTx(ctx context.Context, tx *sql.Tx, queueID int64, status string) error {
	query := `
		UPDATE entities
		SET sync_status = ?
		WHERE (entity_type, local_id) IN (
			SELECT entity_type, entity_local_id FROM change_queue WHERE queue_id = ?
		)
	`
	if _, err := tx.ExecContext(ctx, query, status, queueID); err != nil {
		return fmt.Errorf("failed to update entity status: %w", err)
	}

	return nil
}

// recomputeEntityStatusTx пересчитывает статус сущности по остатку её
// записей в очереди: syncing > pending > failed, иначе synced при известном
// cloud_id и failed при неизвестном
func recomputeEntityStatusTx(ctx context.Context, tx *sql.Tx, entityType, localID string) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM change_queue
		WHERE entity_type = ? AND entity_local_id = ?
		GROUP BY status
	`, entityType, localID)
	if err != nil {
		return fmt.Errorf("failed to query record statuses: %w", err)
	}

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("rows iteration error: %w", err)
	}
	rows.Close()

	var status string
	switch {
	case counts[models.RecordStatusSyncing] > 0:
		status = models.SyncStatusSyncing
	case counts[models.RecordStatusPending] > 0:
		status = models.SyncStatusPending
	case counts[models.RecordStatusFailed] > 0:
		status = models.SyncStatusFailed
	default:
		status = models.SyncStatusSynced
	}

	if status == models.SyncStatusSynced {
		// Без cloud_id сущность никогда не доедет до сервера
		var cloudID string
		err := tx.QueryRowContext(ctx,
			`SELECT cloud_id FROM entities WHERE entity_type = ? AND local_id = ?`,
			entityType, localID,
		).Scan(&cloudID)
		if errors.Is(err, sql.ErrNoRows) {
			// Сущность уже удалена (completed delete)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read cloud_id: %w", err)
		}
		if cloudID == "" {
			status = models.SyncStatusFailed
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET sync_status = ? WHERE entity_type = ? AND local_id = ?`,
		status, entityType, localID,
	); err != nil {
		return fmt.Errorf("failed to update entity status: %w", err)
	}

	return nil
}

// scanRecord is a helper to scan a single queue row
func scanRecord(row rowScanner) (*models.ChangeRecord, error) {
	record := &models.ChangeRecord{}

	err := row.Scan(
		&record.QueueID,
		&record.EntityType,
		&record.EntityLocalID,
		&record.Operation,
		&record.Status,
		&record.LastError,
		&record.Payload,
		&record.Attempts,
		&record.LastAttemptAt,
		&record.NextAttemptAt,
		&record.EnqueuedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	return record, nil
}

// scanRecords is a helper function to scan multiple queue rows
func scanRecords(rows *sql.Rows) ([]*models.ChangeRecord, error) {
	var records []*models.ChangeRecord

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// placeholders возвращает строку вида "?, ?, ?" для IN-выражений
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
