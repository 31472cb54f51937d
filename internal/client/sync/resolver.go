package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

// errAwaitingParent сигнализирует, что родитель записи ещё не получил cloud_id
var errAwaitingParent = errors.New("parent cloud_id is not assigned yet")

// submission представляет запись очереди, готовую к отправке:
// ссылки в payload уже переписаны в форму cloud_id
type submission struct {
	record *models.ChangeRecord
	change api.Change
}

// brokenRecord представляет запись, которую невозможно отправить никогда
type brokenRecord struct {
	record *models.ChangeRecord
	reason string
}

// resolvedBatch результат фильтра готовности для одного прохода push-конвейера
type resolvedBatch struct {
	eligible []submission   // готовы к отправке, порядок queue_id сохранён
	broken   []brokenRecord // терминально сломаны: битый payload, потерянная сущность
	blocked  int            // ждут cloud_id родителя или завершения собственного create
}

// resolveBatch решает для каждой записи, можно ли отправить её прямо сейчас.
// Create требует, чтобы все родители уже имели cloud_id; update и delete -
// чтобы cloud_id имела сама сущность. Неготовые записи остаются pending и
// будут подхвачены следующим проходом: сервер никогда не видит ссылок на
// ещё не созданные сущности.
func (s *service) resolveBatch(ctx context.Context, records []*models.ChangeRecord) (*resolvedBatch, error) {
	out := &resolvedBatch{}

	for _, record := range records {
		entity, err := s.registry.Decode(record.EntityType, record.Payload)
		if err != nil {
			out.broken = append(out.broken, brokenRecord{
				record: record,
				reason: fmt.Sprintf("payload is not decodable: %v", err),
			})
			continue
		}

		// update и delete требуют подтверждённого create
		if record.Operation != models.OperationCreate {
			own, err := s.entityStorage.GetEntity(ctx, record.EntityType, record.EntityLocalID)
			if errors.Is(err, storage.ErrEntityNotFound) {
				out.broken = append(out.broken, brokenRecord{
					record: record,
					reason: "entity row is gone from the local store",
				})
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load entity for record %d: %w", record.QueueID, err)
			}
			if own.CloudID == "" {
				out.blocked++
				continue
			}
		}

		change := api.Change{
			IdempotencyKey: record.EntityLocalID,
			EntityType:     record.EntityType,
			Operation:      record.Operation,
			Payload:        record.Payload,
		}

		// Для delete серверу достаточно idempotency key,
		// ссылки в снимке переписывать не нужно
		if record.Operation != models.OperationDelete {
			if err := entity.MapRefs(s.cloudRef(ctx)); err != nil {
				switch {
				case errors.Is(err, errAwaitingParent):
					out.blocked++
				case errors.Is(err, storage.ErrEntityNotFound):
					out.broken = append(out.broken, brokenRecord{
						record: record,
						reason: fmt.Sprintf("parent entity is gone: %v", err),
					})
				default:
					return nil, fmt.Errorf("failed to resolve refs for record %d: %w", record.QueueID, err)
				}
				continue
			}

			payload, err := s.registry.Encode(entity)
			if err != nil {
				return nil, fmt.Errorf("failed to encode record %d payload: %w", record.QueueID, err)
			}
			change.Payload = payload
		}

		out.eligible = append(out.eligible, submission{record: record, change: change})
	}

	return out, nil
}

// cloudRef возвращает resolve-функцию local_id -> cloud_id для MapRefs
func (s *service) cloudRef(ctx context.Context) func(ref models.EntityRef) (string, error) {
	return func(ref models.EntityRef) (string, error) {
		parent, err := s.entityStorage.GetEntity(ctx, ref.EntityType, ref.ID)
		if err != nil {
			return "", err
		}
		if parent.CloudID == "" {
			return "", fmt.Errorf("%w: %s %s", errAwaitingParent, ref.EntityType, ref.ID)
		}
		return parent.CloudID, nil
	}
}
