package models

// Операции над сущностями в очереди изменений
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Статусы записи в очереди изменений
const (
	RecordStatusPending   = "pending"   // ожидает отправки
	RecordStatusSyncing   = "syncing"   // находится в полёте
	RecordStatusCompleted = "completed" // применена сервером, строка удаляется из очереди
	RecordStatusFailed    = "failed"    // терминальная ошибка, требуется ручное вмешательство
)

// ChangeRecord представляет одну локальную мутацию в очереди на отправку.
// Создаётся рекордером изменений в той же транзакции, что и сама мутация,
// дальше её меняет только push-конвейер.
type ChangeRecord struct {
	EntityType    string `json:"entity_type"`     // EntityType тег типа сущности
	EntityLocalID string `json:"entity_local_id"` // EntityLocalID local_id сущности, он же idempotency key
	Operation     string `json:"operation"`       // Operation одно из Operation* значений
	Status        string `json:"status"`          // Status одно из RecordStatus* значений
	LastError     string `json:"last_error"`      // LastError текст последней ошибки для оператора
	Payload       []byte `json:"payload"`         // Payload полный JSON снимок сущности на момент постановки в очередь
	QueueID       int64  `json:"queue_id"`        // QueueID монотонный локальный номер, порядок применения
	Attempts      int    `json:"attempts"`        // Attempts число неудачных попыток отправки
	LastAttemptAt int64  `json:"last_attempt_at"` // LastAttemptAt unix мс последней попытки, 0 если попыток не было
	NextAttemptAt int64  `json:"next_attempt_at"` // NextAttemptAt unix мс, раньше которого запись не берётся в батч
	EnqueuedAt    int64  `json:"enqueued_at"`     // EnqueuedAt unix мс постановки в очередь
}

// Clone создает глубокую копию записи очереди
func (c *ChangeRecord) Clone() *ChangeRecord {
	payload := make([]byte, len(c.Payload))
	copy(payload, c.Payload)

	clone := *c
	clone.Payload = payload
	return &clone
}

// IsTerminal сообщает, что запись больше не будет отправляться автоматически
func (c *ChangeRecord) IsTerminal() bool {
	return c.Status == RecordStatusFailed
}
