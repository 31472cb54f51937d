package storage

import (
	"context"

	"github.com/iudanet/fieldsync/pkg/api"
)

// Entity представляет серверную копию синхронизируемой сущности.
// Все данные разделены по площадкам: устройства одной площадки видят
// общий набор, чужие площадки не видны никогда.
type Entity struct {
	CloudID    string // серверный идентификатор, выдаётся при create
	SiteID     string // площадка-владелец
	EntityType string // тег типа из реестра
	LocalID    string // client-generated id, ключ идемпотентности create
	Payload    []byte // JSON снимок со ссылками на родителей в форме cloud_id
	UpdatedAt  int64  // серверная логическая метка последней записи (мс)
	Deleted    bool   // tombstone, раздаётся через pull
	CreatedAt  int64  // метка первого применения
}

// EntityStore defines interface for synced entity persistence
type EntityStore interface {
	// ApplyChange применяет одно изменение из push-батча.
	// Исход каждого изменения выражается статусом результата
	// (applied/duplicate/invalid), ошибка возвращается только при
	// отказе самого хранилища.
	ApplyChange(ctx context.Context, siteID string, change api.Change) (*api.ChangeResult, error)

	// ListSince возвращает сущности площадки данного типа с updated_at
	// строго больше since, включая tombstone, по возрастанию updated_at.
	// Returns empty slice if nothing changed
	ListSince(ctx context.Context, siteID, entityType string, since int64) ([]*Entity, error)

	// Ping проверяет доступность хранилища для healthcheck
	Ping(ctx context.Context) error
}
