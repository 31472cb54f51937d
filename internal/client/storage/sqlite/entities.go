package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

const entityColumns = "local_id, entity_type, cloud_id, sync_status, payload, updated_at, deleted"

// GetEntity retrieves an entity by its local_id
// Returns ErrEntityNotFound if entity doesn't exist
func (s *Storage) GetEntity(ctx context.Context, entityType, localID string) (*models.EntityRecord, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE entity_type = ? AND local_id = ?
	`

	return scanEntity(s.db.QueryRowContext(ctx, query, entityType, localID))
}

// GetEntityByCloudID retrieves an entity by its server-assigned id
// Returns ErrEntityNotFound if entity doesn't exist
func (s *Storage) GetEntityByCloudID(ctx context.Context, entityType, cloudID string) (*models.EntityRecord, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE entity_type = ? AND cloud_id = ? AND cloud_id != ''
	`

	return scanEntity(s.db.QueryRowContext(ctx, query, entityType, cloudID))
}

// ListEntities returns all non-deleted entities of the given type,
// ordered by updated_at descending
func (s *Storage) ListEntities(ctx context.Context, entityType string) ([]*models.EntityRecord, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE entity_type = ? AND deleted = 0
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	return scanEntities(rows)
}

// MergeRemoteBatch merges one pull response for one entity type and advances
// the type's watermark in the same transaction. Any failure rolls the whole
// batch back, so the watermark never runs ahead of unmerged entities.
func (s *Storage) MergeRemoteBatch(ctx context.Context, entityType string, remotes []*models.EntityRecord, maxUpdatedAt int64) (*storage.MergeStats, error) {
	stats := &storage.MergeStats{}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, remote := range remotes {
			if err := s.mergeRemoteEntity(ctx, tx, remote, stats); err != nil {
				return fmt.Errorf("failed to merge %s %s: %w", remote.EntityType, remote.CloudID, err)
			}
		}

		// Watermark продвигается только после слияния всего ответа
		if maxUpdatedAt > 0 {
			if err := saveWatermarkTx(ctx, tx, entityType, maxUpdatedAt); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// mergeRemoteEntity применяет одну серверную копию внутри транзакции слияния
func (s *Storage) mergeRemoteEntity(ctx context.Context, tx *sql.Tx, remote *models.EntityRecord, stats *storage.MergeStats) error {
	// Ищем локальную копию: сначала по cloud_id, затем по local_id
	// (наша собственная сущность, create которой сервер применил,
	// а клиент ещё не успел записать cloud_id)
	local, err := getEntityTx(ctx, tx, remote.EntityType, "cloud_id", remote.CloudID)
	if errors.Is(err, storage.ErrEntityNotFound) {
		local, err = getEntityTx(ctx, tx, remote.EntityType, "local_id", remote.LocalID)
	}
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return err
	}

	if local == nil {
		// Tombstone неизвестной сущности - нечего удалять
		if remote.Deleted {
			return nil
		}

		payload, err := s.localizeRefs(ctx, tx, remote)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO entities (local_id, entity_type, cloud_id, sync_status, payload, updated_at, deleted)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`
		if _, err := tx.ExecContext(ctx, query,
			remote.LocalID, remote.EntityType, remote.CloudID, models.SyncStatusSynced, payload, remote.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert remote entity: %w", err)
		}

		stats.Inserted++
		return nil
	}

	// Локальное незаотправленное изменение строго новее с точки зрения
	// клиента: серверную версию откладываем до следующего pull
	outgoing, err := hasOutgoingRecordsTx(ctx, tx, local.EntityType, local.LocalID)
	if err != nil {
		return err
	}
	if outgoing {
		stats.Skipped++
		return nil
	}

	if remote.Deleted {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM entities WHERE entity_type = ? AND local_id = ?`,
			local.EntityType, local.LocalID,
		); err != nil {
			return fmt.Errorf("failed to delete tombstoned entity: %w", err)
		}

		stats.Deleted++
		return nil
	}

	// cloud_id записывается ровно один раз
	if local.CloudID != "" && local.CloudID != remote.CloudID {
		return fmt.Errorf("%w: local %q, remote %q", storage.ErrCloudIDConflict, local.CloudID, remote.CloudID)
	}

	payload, err := s.localizeRefs(ctx, tx, remote)
	if err != nil {
		return err
	}

	query := `
		UPDATE entities
		SET cloud_id = ?, sync_status = ?, payload = ?, updated_at = ?, deleted = 0
		WHERE entity_type = ? AND local_id = ?
	`
	if _, err := tx.ExecContext(ctx, query,
		remote.CloudID, models.SyncStatusSynced, payload, remote.UpdatedAt, local.EntityType, local.LocalID,
	); err != nil {
		return fmt.Errorf("failed to overwrite entity: %w", err)
	}

	stats.Updated++
	return nil
}

// localizeRefs переписывает ссылки на родителей из cloud_id в local_id.
// Родители уже материализованы: типы сливаются в порядке ранга реестра,
// поэтому отсутствие родителя - ошибка, откатывающая весь батч.
func (s *Storage) localizeRefs(ctx context.Context, tx *sql.Tx, remote *models.EntityRecord) ([]byte, error) {
	entity, err := s.registry.Decode(remote.EntityType, remote.Payload)
	if err != nil {
		return nil, err
	}

	entity.SetLocalID(remote.LocalID)

	err = entity.MapRefs(func(ref models.EntityRef) (string, error) {
		parent, err := getEntityTx(ctx, tx, ref.EntityType, "cloud_id", ref.ID)
		if err != nil {
			return "", fmt.Errorf("parent %s %s not found locally: %w", ref.EntityType, ref.ID, err)
		}
		return parent.LocalID, nil
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal localized payload: %w", err)
	}

	return payload, nil
}

// getEntityTx читает сущность внутри транзакции по local_id или cloud_id
func getEntityTx(ctx context.Context, tx *sql.Tx, entityType, column, id string) (*models.EntityRecord, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE entity_type = ? AND ` + column + ` = ?
	`
	if column == "cloud_id" {
		query += ` AND cloud_id != ''`
	}

	return scanEntity(tx.QueryRowContext(ctx, query, entityType, id))
}

// hasOutgoingRecordsTx проверяет наличие неотправленных записей очереди
// (pending или syncing) для сущности
func hasOutgoingRecordsTx(ctx context.Context, tx *sql.Tx, entityType, localID string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM change_queue
		WHERE entity_type = ? AND entity_local_id = ? AND status IN (?, ?)
	`, entityType, localID, models.RecordStatusPending, models.RecordStatusSyncing).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count outgoing records: %w", err)
	}

	return count > 0, nil
}

// rowScanner покрывает *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntity is a helper to scan a single entity row
func scanEntity(row rowScanner) (*models.EntityRecord, error) {
	entity := &models.EntityRecord{}
	var deleted int

	err := row.Scan(
		&entity.LocalID,
		&entity.EntityType,
		&entity.CloudID,
		&entity.SyncStatus,
		&entity.Payload,
		&entity.UpdatedAt,
		&deleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	entity.Deleted = intToBool(deleted)
	return entity, nil
}

// scanEntities is a helper function to scan multiple entity rows
func scanEntities(rows *sql.Rows) ([]*models.EntityRecord, error) {
	var entities []*models.EntityRecord

	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entities, nil
}
