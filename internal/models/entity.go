package models

// Типы синхронизируемых сущностей. Порядок применения определяется
// рангом в реестре (родители раньше детей), см. registry.go.
const (
	EntityTypeProject  = "project"
	EntityTypeQuestion = "question"
	EntityTypeResponse = "response"
)

// Статусы синхронизации сущности
const (
	SyncStatusPending = "pending" // есть локальные изменения, ещё не отправленные
	SyncStatusSyncing = "syncing" // изменение сущности находится в полёте
	SyncStatusSynced  = "synced"  // локальная копия совпадает с серверной
	SyncStatusFailed  = "failed"  // последняя отправка завершилась терминальной ошибкой
)

// EntityRef представляет ссылку на родительскую сущность
type EntityRef struct {
	EntityType string // тип родителя
	ID         string // local_id локально, cloud_id на проводе
}

// SyncableEntity - интерфейс, который реализует каждый синхронизируемый тип.
// Диспетчеризация по entity_type идёт через реестр (registry.go), без рефлексии.
type SyncableEntity interface {
	// EntityType возвращает строковый тег типа ("project", "question", "response")
	EntityType() string

	// GetLocalID возвращает client-generated идентификатор сущности
	GetLocalID() string

	// SetLocalID устанавливает local_id (используется при материализации pull)
	SetLocalID(id string)

	// References возвращает ссылки на родительские сущности в текущей форме payload
	References() []EntityRef

	// MapRefs переписывает ссылки на родителей через resolve:
	// local_id -> cloud_id перед отправкой, cloud_id -> local_id при приёме
	MapRefs(resolve func(ref EntityRef) (string, error)) error
}

// EntityRecord представляет строку локального хранилища для любой
// синхронизируемой сущности. Payload - это JSON снимок типизированной
// сущности со ссылками на родителей в форме local_id.
type EntityRecord struct {
	LocalID    string `json:"local_id"`    // LocalID клиентский UUID, неизменяемый
	EntityType string `json:"entity_type"` // EntityType тег типа из реестра
	CloudID    string `json:"cloud_id"`    // CloudID серверный идентификатор, пустой до первого успешного create, записывается ровно один раз
	SyncStatus string `json:"sync_status"` // SyncStatus одно из SyncStatus* значений
	Payload    []byte `json:"payload"`     // Payload JSON снимок сущности
	UpdatedAt  int64  `json:"updated_at"`  // UpdatedAt логическая метка времени последней записи (мс)
	Deleted    bool   `json:"deleted"`     // Deleted локальный tombstone до завершения delete-записи
}

// Clone создает глубокую копию записи сущности
func (e *EntityRecord) Clone() *EntityRecord {
	payload := make([]byte, len(e.Payload))
	copy(payload, e.Payload)

	return &EntityRecord{
		LocalID:    e.LocalID,
		EntityType: e.EntityType,
		CloudID:    e.CloudID,
		SyncStatus: e.SyncStatus,
		Payload:    payload,
		UpdatedAt:  e.UpdatedAt,
		Deleted:    e.Deleted,
	}
}

// Project представляет исследование (кампанию сбора данных).
// Корень зависимостей: ни на кого не ссылается.
type Project struct {
	LocalID     string `json:"local_id"`    // LocalID клиентский UUID
	Name        string `json:"name"`        // Name название исследования
	Description string `json:"description"` // Description опциональное описание
}

func (p *Project) EntityType() string { return EntityTypeProject }
func (p *Project) GetLocalID() string { return p.LocalID }
func (p *Project) SetLocalID(id string) { p.LocalID = id }

// References у проекта нет родителей
func (p *Project) References() []EntityRef { return nil }

// MapRefs у проекта нечего переписывать
func (p *Project) MapRefs(resolve func(ref EntityRef) (string, error)) error { return nil }

// Типы полей вопроса
const (
	FieldTypeText   = "text"
	FieldTypeNumber = "number"
	FieldTypeDate   = "date"
	FieldTypeChoice = "choice"
)

// Question представляет поле формы, принадлежащее проекту
type Question struct {
	LocalID   string `json:"local_id"`   // LocalID клиентский UUID
	ProjectID string `json:"project_id"` // ProjectID ссылка на Project
	Label     string `json:"label"`      // Label текст вопроса
	FieldType string `json:"field_type"` // FieldType одно из FieldType* значений
	Required  bool   `json:"required"`   // Required обязательность ответа
}

func (q *Question) EntityType() string { return EntityTypeQuestion }
func (q *Question) GetLocalID() string { return q.LocalID }
func (q *Question) SetLocalID(id string) { q.LocalID = id }

func (q *Question) References() []EntityRef {
	return []EntityRef{{EntityType: EntityTypeProject, ID: q.ProjectID}}
}

func (q *Question) MapRefs(resolve func(ref EntityRef) (string, error)) error {
	id, err := resolve(EntityRef{EntityType: EntityTypeProject, ID: q.ProjectID})
	if err != nil {
		return err
	}
	q.ProjectID = id
	return nil
}

// Response представляет собранный в поле ответ на вопрос проекта
type Response struct {
	LocalID     string `json:"local_id"`     // LocalID клиентский UUID
	ProjectID   string `json:"project_id"`   // ProjectID ссылка на Project
	QuestionID  string `json:"question_id"`  // QuestionID ссылка на Question
	Value       string `json:"value"`        // Value значение ответа в строковой форме
	CollectedAt int64  `json:"collected_at"` // CollectedAt момент сбора, unix мс
}

func (r *Response) EntityType() string { return EntityTypeResponse }
func (r *Response) GetLocalID() string { return r.LocalID }
func (r *Response) SetLocalID(id string) { r.LocalID = id }

func (r *Response) References() []EntityRef {
	return []EntityRef{
		{EntityType: EntityTypeProject, ID: r.ProjectID},
		{EntityType: EntityTypeQuestion, ID: r.QuestionID},
	}
}

func (r *Response) MapRefs(resolve func(ref EntityRef) (string, error)) error {
	projectID, err := resolve(EntityRef{EntityType: EntityTypeProject, ID: r.ProjectID})
	if err != nil {
		return err
	}
	questionID, err := resolve(EntityRef{EntityType: EntityTypeQuestion, ID: r.QuestionID})
	if err != nil {
		return err
	}
	r.ProjectID = projectID
	r.QuestionID = questionID
	return nil
}
