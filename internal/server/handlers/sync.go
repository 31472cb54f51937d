package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// SiteIDKey ключ для хранения site_id в контексте
	SiteIDKey contextKey = "site_id"
	// DeviceIDKey ключ для хранения device_id в контексте
	DeviceIDKey contextKey = "device_id"
)

// GetSiteID извлекает site_id из контекста запроса
func GetSiteID(ctx context.Context) (string, bool) {
	siteID, ok := ctx.Value(SiteIDKey).(string)
	return siteID, ok
}

// GetDeviceID извлекает device_id из контекста запроса
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(DeviceIDKey).(string)
	return deviceID, ok
}

// maxBatchSize ограничивает размер push-батча.
// Клиент режет очередь на порции того же размера.
const maxBatchSize = 100

// EntityStore - часть хранилища, нужная обработчикам синхронизации
type EntityStore interface {
	ApplyChange(ctx context.Context, siteID string, change api.Change) (*api.ChangeResult, error)
	ListSince(ctx context.Context, siteID, entityType string, since int64) ([]*storage.Entity, error)
}

// SyncHandler handles push and pull requests
type SyncHandler struct {
	logger   *slog.Logger
	store    EntityStore
	registry *models.Registry
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, store EntityStore, registry *models.Registry) *SyncHandler {
	return &SyncHandler{
		logger:   logger,
		store:    store,
		registry: registry,
	}
}

// HandlePush обрабатывает POST /api/v1/changes:push.
// Каждое изменение применяется независимо, ответ содержит
// результат для каждого ключа идемпотентности из запроса.
func (h *SyncHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// site_id кладет в контекст AuthMiddleware
	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("Site ID not found in context")
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode push request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Changes) > maxBatchSize {
		h.logger.Warn("Push batch too large", "site_id", siteID, "changes_count", len(req.Changes))
		writeError(w, h.logger, http.StatusBadRequest,
			fmt.Sprintf("batch must not exceed %d changes", maxBatchSize))
		return
	}

	h.logger.Info("Push request", "site_id", siteID, "changes_count", len(req.Changes))

	results := make([]api.ChangeResult, 0, len(req.Changes))
	for _, change := range req.Changes {
		result, err := h.store.ApplyChange(ctx, siteID, change)
		if err != nil {
			// Отказ хранилища не валит весь батч: запись получает
			// retry и уедет на повтор с backoff
			h.logger.Error("Failed to apply change",
				"error", err,
				"site_id", siteID,
				"idempotency_key", change.IdempotencyKey)
			result = &api.ChangeResult{
				IdempotencyKey: change.IdempotencyKey,
				Status:         api.ChangeStatusRetry,
				Message:        "internal error",
			}
		}
		results = append(results, *result)
	}

	writeJSON(w, h.logger, api.PushResponse{Results: results})

	h.logger.Info("Push completed", "site_id", siteID, "results_count", len(results))
}

// HandlePull обрабатывает GET /api/v1/changes:pull?entity_type=...&since=...
// Возвращает сущности площадки с updated_at строго больше since,
// включая tombstone, по возрастанию updated_at.
func (h *SyncHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("Site ID not found in context")
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	if !h.registry.Known(entityType) {
		h.logger.Warn("Unknown entity type in pull", "entity_type", entityType)
		writeError(w, h.logger, http.StatusBadRequest,
			fmt.Sprintf("unknown entity type %q", entityType))
		return
	}

	// Парсим параметр since
	sinceStr := r.URL.Query().Get("since")
	var since int64
	if sinceStr != "" {
		var err error
		since, err = strconv.ParseInt(sinceStr, 10, 64)
		if err != nil {
			h.logger.Warn("Invalid since parameter", "since", sinceStr, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "invalid since parameter")
			return
		}
	}

	h.logger.Info("Pull request", "site_id", siteID, "entity_type", entityType, "since", since)

	entities, err := h.store.ListSince(ctx, siteID, entityType, since)
	if err != nil {
		h.logger.Error("Failed to list entities", "error", err, "site_id", siteID)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	// Конвертируем в API формат
	remote := make([]api.RemoteEntity, 0, len(entities))
	var maxUpdatedAt int64

	for _, entity := range entities {
		remote = append(remote, api.RemoteEntity{
			CloudID:    entity.CloudID,
			EntityType: entity.EntityType,
			LocalID:    entity.LocalID,
			Payload:    entity.Payload,
			UpdatedAt:  entity.UpdatedAt,
			Deleted:    entity.Deleted,
		})

		// Сущности упорядочены по updated_at, но максимум
		// отслеживаем явно
		if entity.UpdatedAt > maxUpdatedAt {
			maxUpdatedAt = entity.UpdatedAt
		}
	}

	writeJSON(w, h.logger, api.PullResponse{Entities: remote, MaxUpdatedAt: maxUpdatedAt})

	h.logger.Info("Pull completed",
		"site_id", siteID,
		"entity_type", entityType,
		"entities_count", len(remote))
}

// writeJSON отправляет успешный JSON ответ
func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError отправляет ошибку в JSON форме, понятной клиенту
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Error: message}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}
