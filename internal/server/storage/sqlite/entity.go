package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/validation"
	"github.com/iudanet/fieldsync/pkg/api"
)

const entityColumns = "cloud_id, site_id, entity_type, local_id, payload, updated_at, deleted, created_at"

// ApplyChange применяет одно изменение из push-батча в собственной
// транзакции. Исход выражается статусом результата: applied, duplicate
// для повторной доставки, invalid для изменений, которые не станут
// валидными при повторе. Ошибка возвращается только при отказе базы.
func (s *Storage) ApplyChange(ctx context.Context, siteID string, change api.Change) (*api.ChangeResult, error) {
	result := &api.ChangeResult{IdempotencyKey: change.IdempotencyKey}

	if change.IdempotencyKey == "" {
		return reject(result, "idempotency key cannot be empty"), nil
	}
	if !s.registry.Known(change.EntityType) {
		return reject(result, fmt.Sprintf("unknown entity type %q", change.EntityType)), nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		switch change.Operation {
		case api.OperationCreate:
			return s.applyCreate(ctx, tx, siteID, change, result)
		case api.OperationUpdate:
			return s.applyUpdate(ctx, tx, siteID, change, result)
		case api.OperationDelete:
			return s.applyDelete(ctx, tx, siteID, change, result)
		default:
			reject(result, fmt.Sprintf("unknown operation %q", change.Operation))
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply change %s: %w", change.IdempotencyKey, err)
	}

	return result, nil
}

// applyCreate создает сущность и выдает ей cloud_id.
// Повторная доставка create узнается по (site_id, entity_type, local_id)
// и возвращает прежний cloud_id со статусом duplicate.
func (s *Storage) applyCreate(ctx context.Context, tx *sql.Tx, siteID string, change api.Change, result *api.ChangeResult) error {
	existing, err := getByKey(ctx, tx, siteID, change.EntityType, change.IdempotencyKey)
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return fmt.Errorf("failed to check existing entity: %w", err)
	}
	if existing != nil {
		result.Status = api.ChangeStatusDuplicate
		result.CloudID = existing.CloudID
		return nil
	}

	entity, invalidMsg := s.decodeChange(change)
	if invalidMsg != "" {
		reject(result, invalidMsg)
		return nil
	}

	msg, err := checkParents(ctx, tx, siteID, entity)
	if err != nil {
		return err
	}
	if msg != "" {
		reject(result, msg)
		return nil
	}

	cloudID := uuid.New().String()
	stamp := s.clock.Tick()

	query := `
		INSERT INTO entities (` + entityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`
	if _, err := tx.ExecContext(ctx, query,
		cloudID, siteID, change.EntityType, change.IdempotencyKey,
		[]byte(change.Payload), stamp, stamp,
	); err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}

	if err := replaceRefs(ctx, tx, cloudID, entity.References()); err != nil {
		return err
	}

	result.Status = api.ChangeStatusApplied
	result.CloudID = cloudID
	return nil
}

// applyUpdate перезаписывает снимок сущности и двигает метку времени.
// Порядок записей одной сущности сохраняет клиентская очередь, сервер
// просто применяет последний присланный снимок.
func (s *Storage) applyUpdate(ctx context.Context, tx *sql.Tx, siteID string, change api.Change, result *api.ChangeResult) error {
	existing, err := getByKey(ctx, tx, siteID, change.EntityType, change.IdempotencyKey)
	if errors.Is(err, storage.ErrEntityNotFound) {
		reject(result, "entity does not exist")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check existing entity: %w", err)
	}
	if existing.Deleted {
		reject(result, "entity is deleted")
		return nil
	}

	entity, invalidMsg := s.decodeChange(change)
	if invalidMsg != "" {
		reject(result, invalidMsg)
		return nil
	}

	msg, err := checkParents(ctx, tx, siteID, entity)
	if err != nil {
		return err
	}
	if msg != "" {
		reject(result, msg)
		return nil
	}

	stamp := s.clock.Tick()

	query := `
		UPDATE entities
		SET payload = ?, updated_at = ?
		WHERE cloud_id = ?
	`
	if _, err := tx.ExecContext(ctx, query, []byte(change.Payload), stamp, existing.CloudID); err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}

	if err := replaceRefs(ctx, tx, existing.CloudID, entity.References()); err != nil {
		return err
	}

	result.Status = api.ChangeStatusApplied
	result.CloudID = existing.CloudID
	return nil
}

// applyDelete ставит tombstone. Удаление сущности с живыми потомками
// отклоняется: сначала должны уехать их собственные delete-записи.
func (s *Storage) applyDelete(ctx context.Context, tx *sql.Tx, siteID string, change api.Change, result *api.ChangeResult) error {
	existing, err := getByKey(ctx, tx, siteID, change.EntityType, change.IdempotencyKey)
	if errors.Is(err, storage.ErrEntityNotFound) {
		reject(result, "entity does not exist")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check existing entity: %w", err)
	}
	if existing.Deleted {
		// Повторная доставка delete: tombstone уже стоит
		result.Status = api.ChangeStatusDuplicate
		result.CloudID = existing.CloudID
		return nil
	}

	dependents, err := countLiveDependents(ctx, tx, existing.CloudID)
	if err != nil {
		return err
	}
	if dependents > 0 {
		reject(result, fmt.Sprintf("entity still has %d dependent entities", dependents))
		return nil
	}

	stamp := s.clock.Tick()

	query := `
		UPDATE entities
		SET deleted = 1, updated_at = ?
		WHERE cloud_id = ?
	`
	if _, err := tx.ExecContext(ctx, query, stamp, existing.CloudID); err != nil {
		return fmt.Errorf("failed to tombstone entity: %w", err)
	}

	result.Status = api.ChangeStatusApplied
	result.CloudID = existing.CloudID
	return nil
}

// ListSince возвращает сущности площадки данного типа с updated_at строго
// больше since, включая tombstone, по возрастанию updated_at
func (s *Storage) ListSince(ctx context.Context, siteID, entityType string, since int64) ([]*storage.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE site_id = ? AND entity_type = ? AND updated_at > ?
		ORDER BY updated_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, siteID, entityType, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities since stamp: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	var entities []*storage.Entity
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

// decodeChange декодирует и валидирует снимок сущности.
// Непустая строка - причина отклонения со статусом invalid.
func (s *Storage) decodeChange(change api.Change) (models.SyncableEntity, string) {
	entity, err := s.registry.Decode(change.EntityType, change.Payload)
	if err != nil {
		return nil, fmt.Sprintf("payload is not decodable: %v", err)
	}

	// Снимок обязан описывать ту же сущность, что и ключ идемпотентности
	if entity.GetLocalID() != change.IdempotencyKey {
		return nil, "payload local_id does not match idempotency key"
	}

	if err := validation.ValidateEntity(entity); err != nil {
		return nil, err.Error()
	}

	return entity, ""
}

// checkParents проверяет, что все родители сущности существуют и живы.
// Ссылки в присланном снимке уже в форме cloud_id.
// Непустая строка - причина отклонения со статусом invalid.
func checkParents(ctx context.Context, tx *sql.Tx, siteID string, entity models.SyncableEntity) (string, error) {
	for _, ref := range entity.References() {
		var deleted int
		err := tx.QueryRowContext(ctx,
			"SELECT deleted FROM entities WHERE site_id = ? AND entity_type = ? AND cloud_id = ?",
			siteID, ref.EntityType, ref.ID,
		).Scan(&deleted)

		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Sprintf("%s %s does not exist", ref.EntityType, ref.ID), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check parent %s: %w", ref.ID, err)
		}
		if intToBool(deleted) {
			return fmt.Sprintf("%s %s is deleted", ref.EntityType, ref.ID), nil
		}
	}

	return "", nil
}

// countLiveDependents считает неудаленных потомков сущности
func countLiveDependents(ctx context.Context, tx *sql.Tx, cloudID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM entity_refs r
		JOIN entities e ON e.cloud_id = r.cloud_id
		WHERE r.ref_cloud_id = ? AND e.deleted = 0
	`, cloudID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count dependents: %w", err)
	}

	return count, nil
}

// replaceRefs перезаписывает ссылки сущности на родителей
func replaceRefs(ctx context.Context, tx *sql.Tx, cloudID string, refs []models.EntityRef) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM entity_refs WHERE cloud_id = ?", cloudID); err != nil {
		return fmt.Errorf("failed to clear refs: %w", err)
	}

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entity_refs (cloud_id, ref_cloud_id) VALUES (?, ?)",
			cloudID, ref.ID,
		); err != nil {
			return fmt.Errorf("failed to insert ref: %w", err)
		}
	}

	return nil
}

// getByKey ищет сущность по ключу идемпотентности внутри площадки
func getByKey(ctx context.Context, tx *sql.Tx, siteID, entityType, localID string) (*storage.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE site_id = ? AND entity_type = ? AND local_id = ?
	`

	return scanEntity(tx.QueryRowContext(ctx, query, siteID, entityType, localID))
}

// rowScanner покрывает *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*storage.Entity, error) {
	entity := &storage.Entity{}
	var deleted int

	err := row.Scan(
		&entity.CloudID,
		&entity.SiteID,
		&entity.EntityType,
		&entity.LocalID,
		&entity.Payload,
		&entity.UpdatedAt,
		&deleted,
		&entity.CreatedAt,
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

// reject помечает результат терминально отклонённым
func reject(result *api.ChangeResult, message string) *api.ChangeResult {
	result.Status = api.ChangeStatusInvalid
	result.Message = message
	return result
}
