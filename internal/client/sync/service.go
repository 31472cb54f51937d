package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	httpClient "github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/clock"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

//go:generate moq -out service_mock.go . Service

const (
	pushBatchSize   = 100 // максимум изменений в одном push-запросе
	maxPushAttempts = 8   // после стольких неудач запись становится терминальной

	backoffBase   = time.Second     // базовая задержка перед повтором
	backoffMax    = 5 * time.Minute // потолок экспоненциальной задержки
	submitTimeout = time.Minute     // таймаут одного push-запроса поверх отвязанного контекста
)

// Service определяет интерфейс движка синхронизации для оркестратора и CLI
type Service interface {
	// Sync выполняет полный цикл синхронизации: сначала push, затем pull.
	// Результат содержит счётчики цикла даже при ошибке: прогресс,
	// зафиксированный в очереди до сбоя, не откатывается.
	Sync(ctx context.Context, token string) (*CycleResult, error)

	// PendingCount возвращает количество записей очереди, ожидающих отправки
	PendingCount(ctx context.Context) (int, error)

	// ListFailed возвращает терминально сломанные записи очереди
	ListFailed(ctx context.Context) ([]*models.ChangeRecord, error)

	// Retry возвращает терминально сломанную запись в очередь отправки
	Retry(ctx context.Context, queueID int64) error

	// Discard удаляет сломанную запись из очереди без отправки
	Discard(ctx context.Context, queueID int64) error
}

// CycleResult contains sync cycle counters
type CycleResult struct {
	Pushed   int // записи очереди, подтверждённые сервером
	Deferred int // записи, отложенные с экспоненциальным backoff
	Failed   int // записи, ставшие терминальными в этом цикле
	Blocked  int // записи, оставшиеся ждать cloud_id родителя или предшественника
	Pulled   int // версии, полученные с сервера
	Merged   int // версии, применённые к локальному хранилищу
	Skipped  int // версии, отложенные из-за исходящих локальных правок
}

// service handles synchronization between the local store and the server
type service struct {
	apiClient       httpClient.APIClient
	entityStorage   storage.EntityStorage
	queueStorage    storage.QueueStorage
	metadataStorage storage.MetadataStorage
	registry        *models.Registry
	clock           *clock.Clock
	logger          *slog.Logger
}

// NewService creates a new sync service
func NewService(
	apiClient httpClient.APIClient,
	entityStorage storage.EntityStorage,
	queueStorage storage.QueueStorage,
	metadataStorage storage.MetadataStorage,
	registry *models.Registry,
	clk *clock.Clock,
	logger *slog.Logger,
) Service {
	return &service{
		apiClient:       apiClient,
		entityStorage:   entityStorage,
		queueStorage:    queueStorage,
		metadataStorage: metadataStorage,
		registry:        registry,
		clock:           clk,
		logger:          logger,
	}
}

// Sync performs one full synchronization cycle
// 1. Pushes queued local changes in dependency order
// 2. Pulls server changes per entity type and merges them locally
func (s *service) Sync(ctx context.Context, token string) (*CycleResult, error) {
	s.logger.Info("Starting sync cycle")

	result := &CycleResult{}

	if err := s.pushAll(ctx, token, result); err != nil {
		return result, err
	}

	if err := s.pullAll(ctx, token, result); err != nil {
		return result, err
	}

	s.logger.Info("Sync cycle completed",
		"pushed", result.Pushed,
		"deferred", result.Deferred,
		"failed", result.Failed,
		"blocked", result.Blocked,
		"pulled", result.Pulled,
		"merged", result.Merged,
		"skipped", result.Skipped)

	return result, nil
}

// pushAll гонит проходы resolve -> submit -> apply, пока очередь не опустеет.
// Зависимые цепочки продвигаются на один шаг за проход: create родителя
// подтверждается, и на следующем проходе дети становятся готовыми.
func (s *service) pushAll(ctx context.Context, token string, result *CycleResult) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := s.queueStorage.NextPendingRecords(ctx, nowMillis(), pushBatchSize)
		if err != nil {
			return fmt.Errorf("failed to load pending records: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		resolved, err := s.resolveBatch(ctx, batch)
		if err != nil {
			return err
		}

		now := nowMillis()
		for _, b := range resolved.broken {
			if err := s.failRecord(ctx, b.record, b.reason, now, result); err != nil {
				return err
			}
		}

		if len(resolved.eligible) == 0 {
			// Все оставшиеся записи ждут предшественников,
			// в этом цикле продвинуться больше нечем
			result.Blocked = resolved.blocked
			return nil
		}

		s.logger.Debug("Submitting push batch",
			"size", len(resolved.eligible),
			"blocked", resolved.blocked)

		if err := s.submitBatch(ctx, token, resolved.eligible, result); err != nil {
			result.Blocked = resolved.blocked
			return err
		}
	}
}

// submitBatch отправляет один батч и применяет по-записные результаты.
// Сам запрос и фиксация результатов идут под отвязанным контекстом:
// отмена цикла не должна обрывать батч, который уже ушёл на сервер,
// иначе результат применения потеряется и create выполнится дважды.
func (s *service) submitBatch(ctx context.Context, token string, subs []submission, result *CycleResult) error {
	queueIDs := make([]int64, 0, len(subs))
	changes := make([]api.Change, 0, len(subs))
	for _, sub := range subs {
		queueIDs = append(queueIDs, sub.record.QueueID)
		changes = append(changes, sub.change)
	}

	if err := s.queueStorage.MarkSyncing(ctx, queueIDs); err != nil {
		return fmt.Errorf("failed to mark batch syncing: %w", err)
	}

	applyCtx := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(applyCtx, submitTimeout)
	defer cancel()

	resp, err := s.apiClient.PushChanges(callCtx, token, api.PushRequest{Changes: changes})
	if err != nil {
		if httpClient.IsUnauthorized(err) {
			// Сервер отверг токен до обработки изменений,
			// возвращаем записи в очередь нетронутыми
			if mErr := s.queueStorage.MarkPending(applyCtx, queueIDs); mErr != nil {
				return fmt.Errorf("failed to revert batch after %v: %w", err, mErr)
			}
			return fmt.Errorf("push rejected: %w", err)
		}

		// Транспортная ошибка: весь отправленный батч уходит в backoff
		now := nowMillis()
		for _, sub := range subs {
			if dErr := s.deferRecord(applyCtx, sub.record, err.Error(), now, result); dErr != nil {
				return dErr
			}
		}
		return fmt.Errorf("push request failed: %w", err)
	}

	byKey := make(map[string]api.ChangeResult, len(resp.Results))
	for _, res := range resp.Results {
		byKey[res.IdempotencyKey] = res
	}

	now := nowMillis()
	for _, sub := range subs {
		res, ok := byKey[sub.record.EntityLocalID]
		if !ok {
			// Сервер не вернул результат для записи, считаем временным сбоем
			if err := s.deferRecord(applyCtx, sub.record, "server returned no result for change", now, result); err != nil {
				return err
			}
			continue
		}
		if err := s.applyResult(applyCtx, sub.record, res, now, result); err != nil {
			return err
		}
	}

	return nil
}

// applyResult фиксирует вердикт сервера по одной записи очереди
func (s *service) applyResult(ctx context.Context, record *models.ChangeRecord, res api.ChangeResult, now int64, result *CycleResult) error {
	switch res.Status {
	case api.ChangeStatusApplied, api.ChangeStatusDuplicate:
		// duplicate - это успешный повтор уже применённого create,
		// сервер вернул существующий cloud_id
		if record.Operation == models.OperationCreate && res.CloudID == "" {
			return s.deferRecord(ctx, record, "server returned no cloud_id for create", now, result)
		}
		return s.completeRecord(ctx, record, res.CloudID, now, result)

	case api.ChangeStatusInvalid:
		reason := res.Message
		if reason == "" {
			reason = "change rejected by server"
		}
		return s.failRecord(ctx, record, reason, now, result)

	case api.ChangeStatusRetry:
		reason := res.Message
		if reason == "" {
			reason = "server asked to retry"
		}
		return s.deferRecord(ctx, record, reason, now, result)

	default:
		return s.deferRecord(ctx, record, fmt.Sprintf("unknown change status %q", res.Status), now, result)
	}
}

// completeRecord удаляет подтверждённую запись из очереди. Для create
// попутно привязывается cloud_id: ровно один раз, расхождение с уже
// привязанным значением терминально.
func (s *service) completeRecord(ctx context.Context, record *models.ChangeRecord, cloudID string, now int64, result *CycleResult) error {
	var err error
	switch record.Operation {
	case models.OperationCreate:
		err = s.queueStorage.CompleteCreate(ctx, record.QueueID, record.EntityType, record.EntityLocalID, cloudID)
	case models.OperationUpdate:
		err = s.queueStorage.CompleteUpdate(ctx, record.QueueID, record.EntityType, record.EntityLocalID)
	case models.OperationDelete:
		err = s.queueStorage.CompleteDelete(ctx, record.QueueID, record.EntityType, record.EntityLocalID)
	default:
		return s.failRecord(ctx, record, fmt.Sprintf("unknown operation %q", record.Operation), now, result)
	}

	if errors.Is(err, storage.ErrCloudIDConflict) {
		return s.failRecord(ctx, record, err.Error(), now, result)
	}
	if err != nil {
		return fmt.Errorf("failed to complete %s %s/%s: %w",
			record.Operation, record.EntityType, record.EntityLocalID, err)
	}

	result.Pushed++
	return nil
}

// deferRecord возвращает запись в очередь с экспоненциальной задержкой;
// по исчерпании попыток запись становится терминальной
func (s *service) deferRecord(ctx context.Context, record *models.ChangeRecord, reason string, now int64, result *CycleResult) error {
	attempts := record.Attempts + 1
	if attempts >= maxPushAttempts {
		return s.failRecord(ctx, record, reason, now, result)
	}

	next := now + backoffDelay(attempts).Milliseconds()
	if err := s.queueStorage.BackoffRecord(ctx, record.QueueID, reason, now, next); err != nil {
		return fmt.Errorf("failed to reschedule record %d: %w", record.QueueID, err)
	}

	s.logger.Debug("Change deferred",
		"queue_id", record.QueueID,
		"entity_type", record.EntityType,
		"attempts", attempts,
		"reason", reason)

	result.Deferred++
	return nil
}

// failRecord помечает запись терминально сломанной для ручного разбора
func (s *service) failRecord(ctx context.Context, record *models.ChangeRecord, reason string, now int64, result *CycleResult) error {
	if err := s.queueStorage.FailRecord(ctx, record.QueueID, reason, now); err != nil {
		return fmt.Errorf("failed to mark record %d failed: %w", record.QueueID, err)
	}

	s.logger.Warn("Change failed terminally",
		"queue_id", record.QueueID,
		"entity_type", record.EntityType,
		"local_id", record.EntityLocalID,
		"operation", record.Operation,
		"reason", reason)

	result.Failed++
	return nil
}

// pullAll обходит типы в порядке ранга реестра: родители материализуются
// раньше детей, и ссылки pull-батча всегда разрешимы локально
func (s *service) pullAll(ctx context.Context, token string, result *CycleResult) error {
	for _, entityType := range s.registry.Types() {
		if err := s.pullType(ctx, token, entityType, result); err != nil {
			return err
		}
	}
	return nil
}

// pullType выгребает изменения одного типа от водяного знака до упора.
// Каждый батч сливается и продвигает водяной знак одной транзакцией,
// так что прерванный pull продолжится с последнего зафиксированного батча.
func (s *service) pullType(ctx context.Context, token, entityType string, result *CycleResult) error {
	since, err := s.metadataStorage.GetWatermark(ctx, entityType)
	if err != nil {
		return fmt.Errorf("failed to read %s watermark: %w", entityType, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := s.apiClient.PullChanges(ctx, token, entityType, since)
		if err != nil {
			return fmt.Errorf("pull %s failed: %w", entityType, err)
		}
		if len(resp.Entities) == 0 {
			return nil
		}

		remotes := make([]*models.EntityRecord, 0, len(resp.Entities))
		for _, remote := range resp.Entities {
			remotes = append(remotes, &models.EntityRecord{
				LocalID:    remote.LocalID,
				EntityType: entityType,
				CloudID:    remote.CloudID,
				Payload:    remote.Payload,
				UpdatedAt:  remote.UpdatedAt,
				Deleted:    remote.Deleted,
			})
		}

		stats, err := s.entityStorage.MergeRemoteBatch(ctx, entityType, remotes, resp.MaxUpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to merge %s batch: %w", entityType, err)
		}

		// Локальные часы не должны отставать от уже увиденных меток
		s.clock.Observe(resp.MaxUpdatedAt)

		result.Pulled += len(resp.Entities)
		result.Merged += stats.Inserted + stats.Updated + stats.Deleted
		result.Skipped += stats.Skipped

		s.logger.Debug("Pull batch merged",
			"entity_type", entityType,
			"inserted", stats.Inserted,
			"updated", stats.Updated,
			"deleted", stats.Deleted,
			"skipped", stats.Skipped)

		if resp.MaxUpdatedAt <= since {
			// Сервер не продвинул метку, защищаемся от зацикливания
			return nil
		}
		since = resp.MaxUpdatedAt
	}
}

// PendingCount возвращает количество записей, ожидающих синхронизации
func (s *service) PendingCount(ctx context.Context) (int, error) {
	return s.queueStorage.PendingCount(ctx)
}

// ListFailed возвращает терминально сломанные записи очереди
func (s *service) ListFailed(ctx context.Context) ([]*models.ChangeRecord, error) {
	return s.queueStorage.ListFailed(ctx)
}

// Retry возвращает сломанную запись в очередь: попытки обнуляются,
// запись снова участвует в push-проходах
func (s *service) Retry(ctx context.Context, queueID int64) error {
	if err := s.queueStorage.RetryRecord(ctx, queueID); err != nil {
		return fmt.Errorf("failed to retry record %d: %w", queueID, err)
	}
	s.logger.Info("Failed change requeued", "queue_id", queueID)
	return nil
}

// Discard удаляет сломанную запись без отправки
func (s *service) Discard(ctx context.Context, queueID int64) error {
	if err := s.queueStorage.DiscardRecord(ctx, queueID); err != nil {
		return fmt.Errorf("failed to discard record %d: %w", queueID, err)
	}
	s.logger.Info("Failed change discarded", "queue_id", queueID)
	return nil
}

// backoffDelay возвращает задержку base*2^attempts, ограниченную сверху
func backoffDelay(attempts int) time.Duration {
	delay := backoffBase << uint(attempts)
	if delay <= 0 || delay > backoffMax {
		delay = backoffMax
	}
	return delay
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
