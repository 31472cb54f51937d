package api

import "encoding/json"

// Операции над сущностями, которые клиент отправляет на сервер
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Статусы обработки одного изменения сервером
const (
	ChangeStatusApplied   = "applied"   // изменение применено
	ChangeStatusDuplicate = "duplicate" // create уже был применён ранее, cloud_id возвращается повторно
	ChangeStatusInvalid   = "invalid"   // изменение отклонено валидацией, повтор бесполезен
	ChangeStatusRetry     = "retry"     // временная ошибка на стороне сервера, можно повторить
)

// Change представляет одно изменение в push-запросе
type Change struct {
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key"` // local_id сущности, защита от повторной доставки
	EntityType     string          `json:"entity_type"`
	Operation      string          `json:"operation"`
}

// PushRequest представляет пакет изменений от клиента
type PushRequest struct {
	Changes []Change `json:"changes"`
}

// ChangeResult представляет результат применения одного изменения
type ChangeResult struct {
	IdempotencyKey string `json:"idempotency_key"`
	Status         string `json:"status"`
	CloudID        string `json:"cloud_id,omitempty"` // заполняется для applied/duplicate create
	Message        string `json:"message,omitempty"`  // причина для invalid/retry
}

// PushResponse представляет ответ сервера на push
type PushResponse struct {
	Results []ChangeResult `json:"results"`
}

// RemoteEntity представляет серверную копию сущности в pull-ответе.
// Payload содержит ссылки на родителей в форме cloud_id.
type RemoteEntity struct {
	Payload    json.RawMessage `json:"payload"`
	CloudID    string          `json:"cloud_id"`
	EntityType string          `json:"entity_type"`
	LocalID    string          `json:"local_id"` // local_id клиента-создателя
	UpdatedAt  int64           `json:"updated_at"`
	Deleted    bool            `json:"deleted"`
}

// PullResponse представляет ответ сервера на pull.
// Entities упорядочены по updated_at по возрастанию.
type PullResponse struct {
	Entities     []RemoteEntity `json:"entities"`
	MaxUpdatedAt int64          `json:"max_updated_at"` // ноль, если изменений нет
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
