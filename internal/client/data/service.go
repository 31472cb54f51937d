package data

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/clock"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/validation"
)

// Service определяет интерфейс клиентского data сервиса: каждая мутация
// фиксируется вместе с записью в очереди изменений в одной транзакции
type Service interface {
	AddProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, localID string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, localID string) error

	AddQuestion(ctx context.Context, question *models.Question) error
	GetQuestion(ctx context.Context, localID string) (*models.Question, error)
	ListQuestions(ctx context.Context, projectID string) ([]*models.Question, error)
	UpdateQuestion(ctx context.Context, question *models.Question) error
	DeleteQuestion(ctx context.Context, localID string) error

	AddResponse(ctx context.Context, response *models.Response) error
	GetResponse(ctx context.Context, localID string) (*models.Response, error)
	ListResponses(ctx context.Context, projectID string) ([]*models.Response, error)
	UpdateResponse(ctx context.Context, response *models.Response) error
	DeleteResponse(ctx context.Context, localID string) error

	// ListRecords возвращает сырые строки хранилища для отображения статусов
	ListRecords(ctx context.Context, entityType string) ([]*models.EntityRecord, error)
}

// service handles client-side data operations and change recording
type service struct {
	entityStorage storage.EntityStorage
	queueStorage  storage.QueueStorage
	registry      *models.Registry
	clock         *clock.Clock
}

// NewService creates a new data service
func NewService(entityStorage storage.EntityStorage, queueStorage storage.QueueStorage, registry *models.Registry, clk *clock.Clock) Service {
	return &service{
		entityStorage: entityStorage,
		queueStorage:  queueStorage,
		registry:      registry,
		clock:         clk,
	}
}

// AddProject adds a new project and records the create
func (s *service) AddProject(ctx context.Context, project *models.Project) error {
	return s.add(ctx, project)
}

// GetProject retrieves a project by local ID
func (s *service) GetProject(ctx context.Context, localID string) (*models.Project, error) {
	entity, err := s.get(ctx, models.EntityTypeProject, localID)
	if err != nil {
		return nil, err
	}
	return entity.(*models.Project), nil
}

// ListProjects returns all projects
func (s *service) ListProjects(ctx context.Context) ([]*models.Project, error) {
	records, err := s.entityStorage.ListEntities(ctx, models.EntityTypeProject)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]*models.Project, 0, len(records))
	for _, record := range records {
		entity, err := s.registry.Decode(record.EntityType, record.Payload)
		if err != nil {
			// Пропускаем поврежденные записи
			continue
		}
		projects = append(projects, entity.(*models.Project))
	}

	return projects, nil
}

// UpdateProject records an update of an existing project
func (s *service) UpdateProject(ctx context.Context, project *models.Project) error {
	return s.update(ctx, project)
}

// DeleteProject records deletion of a project
func (s *service) DeleteProject(ctx context.Context, localID string) error {
	return s.delete(ctx, models.EntityTypeProject, localID)
}

// AddQuestion adds a new question and records the create
func (s *service) AddQuestion(ctx context.Context, question *models.Question) error {
	if err := s.checkParents(ctx, question); err != nil {
		return err
	}
	return s.add(ctx, question)
}

// GetQuestion retrieves a question by local ID
func (s *service) GetQuestion(ctx context.Context, localID string) (*models.Question, error) {
	entity, err := s.get(ctx, models.EntityTypeQuestion, localID)
	if err != nil {
		return nil, err
	}
	return entity.(*models.Question), nil
}

// ListQuestions returns questions, optionally filtered by project
func (s *service) ListQuestions(ctx context.Context, projectID string) ([]*models.Question, error) {
	records, err := s.entityStorage.ListEntities(ctx, models.EntityTypeQuestion)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	questions := make([]*models.Question, 0, len(records))
	for _, record := range records {
		entity, err := s.registry.Decode(record.EntityType, record.Payload)
		if err != nil {
			continue
		}
		question := entity.(*models.Question)
		if projectID != "" && question.ProjectID != projectID {
			continue
		}
		questions = append(questions, question)
	}

	return questions, nil
}

// UpdateQuestion records an update of an existing question
func (s *service) UpdateQuestion(ctx context.Context, question *models.Question) error {
	if err := s.checkParents(ctx, question); err != nil {
		return err
	}
	return s.update(ctx, question)
}

// DeleteQuestion records deletion of a question
func (s *service) DeleteQuestion(ctx context.Context, localID string) error {
	return s.delete(ctx, models.EntityTypeQuestion, localID)
}

// AddResponse adds a collected response and records the create
func (s *service) AddResponse(ctx context.Context, response *models.Response) error {
	if response.CollectedAt == 0 {
		response.CollectedAt = s.clock.Tick()
	}
	if err := s.checkParents(ctx, response); err != nil {
		return err
	}
	return s.add(ctx, response)
}

// GetResponse retrieves a response by local ID
func (s *service) GetResponse(ctx context.Context, localID string) (*models.Response, error) {
	entity, err := s.get(ctx, models.EntityTypeResponse, localID)
	if err != nil {
		return nil, err
	}
	return entity.(*models.Response), nil
}

// ListResponses returns responses, optionally filtered by project
func (s *service) ListResponses(ctx context.Context, projectID string) ([]*models.Response, error) {
	records, err := s.entityStorage.ListEntities(ctx, models.EntityTypeResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	responses := make([]*models.Response, 0, len(records))
	for _, record := range records {
		entity, err := s.registry.Decode(record.EntityType, record.Payload)
		if err != nil {
			continue
		}
		response := entity.(*models.Response)
		if projectID != "" && response.ProjectID != projectID {
			continue
		}
		responses = append(responses, response)
	}

	return responses, nil
}

// UpdateResponse records a correction of a collected response
func (s *service) UpdateResponse(ctx context.Context, response *models.Response) error {
	if err := s.checkParents(ctx, response); err != nil {
		return err
	}
	return s.update(ctx, response)
}

// DeleteResponse records deletion of a response
func (s *service) DeleteResponse(ctx context.Context, localID string) error {
	return s.delete(ctx, models.EntityTypeResponse, localID)
}

// ListRecords returns raw storage rows of the given type
func (s *service) ListRecords(ctx context.Context, entityType string) ([]*models.EntityRecord, error) {
	if !s.registry.Known(entityType) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownEntityType, entityType)
	}
	return s.entityStorage.ListEntities(ctx, entityType)
}

// add генерирует local_id, валидирует сущность и фиксирует create
// вместе с записью очереди
func (s *service) add(ctx context.Context, entity models.SyncableEntity) error {
	// Генерируем ID если не задан
	if entity.GetLocalID() == "" {
		entity.SetLocalID(uuid.New().String())
	}

	if err := validation.ValidateEntity(entity); err != nil {
		return err
	}

	return s.record(ctx, entity, models.OperationCreate)
}

// update валидирует сущность и фиксирует update вместе с записью очереди
func (s *service) update(ctx context.Context, entity models.SyncableEntity) error {
	if err := validation.ValidateEntity(entity); err != nil {
		return err
	}

	// Сущность обязана существовать и не быть удалённой
	existing, err := s.entityStorage.GetEntity(ctx, entity.EntityType(), entity.GetLocalID())
	if err != nil {
		return fmt.Errorf("failed to get entity: %w", err)
	}
	if existing.Deleted {
		return fmt.Errorf("%s is deleted", entity.EntityType())
	}

	return s.record(ctx, entity, models.OperationUpdate)
}

// record собирает снимок сущности и запись очереди и применяет их атомарно
func (s *service) record(ctx context.Context, entity models.SyncableEntity, operation string) error {
	payload, err := s.registry.Encode(entity)
	if err != nil {
		return fmt.Errorf("failed to encode entity: %w", err)
	}

	now := s.clock.Tick()

	entityRecord := &models.EntityRecord{
		LocalID:    entity.GetLocalID(),
		EntityType: entity.EntityType(),
		SyncStatus: models.SyncStatusPending,
		Payload:    payload,
		UpdatedAt:  now,
	}
	changeRecord := &models.ChangeRecord{
		EntityType:    entity.EntityType(),
		EntityLocalID: entity.GetLocalID(),
		Operation:     operation,
		Status:        models.RecordStatusPending,
		Payload:       payload,
		EnqueuedAt:    now,
	}

	if err := s.queueStorage.ApplyLocalChange(ctx, entityRecord, changeRecord); err != nil {
		return fmt.Errorf("failed to apply local change: %w", err)
	}

	return nil
}

// get возвращает типизированную сущность по local_id
func (s *service) get(ctx context.Context, entityType, localID string) (models.SyncableEntity, error) {
	record, err := s.entityStorage.GetEntity(ctx, entityType, localID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	// Ожидающие удаления сущности скрыты
	if record.Deleted {
		return nil, fmt.Errorf("%w: %s is deleted", storage.ErrEntityNotFound, entityType)
	}

	entity, err := s.registry.Decode(record.EntityType, record.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}

	return entity, nil
}

// delete фиксирует удаление: видевшая сервер сущность получает delete-запись
// и локальный tombstone, никогда не синкавшаяся вычищается сразу
func (s *service) delete(ctx context.Context, entityType, localID string) error {
	record, err := s.entityStorage.GetEntity(ctx, entityType, localID)
	if err != nil {
		return fmt.Errorf("failed to get entity: %w", err)
	}
	if record.Deleted {
		return fmt.Errorf("%s is already deleted", entityType)
	}

	// Сервер ничего не знает об этой сущности и create не в полёте:
	// достаточно убрать строку и вытеснить её записи из очереди
	if record.CloudID == "" && record.SyncStatus != models.SyncStatusSyncing {
		if err := s.queueStorage.ApplyLocalDelete(ctx, entityType, localID, nil); err != nil {
			return fmt.Errorf("failed to purge entity: %w", err)
		}
		return nil
	}

	changeRecord := &models.ChangeRecord{
		EntityType:    entityType,
		EntityLocalID: localID,
		Operation:     models.OperationDelete,
		Status:        models.RecordStatusPending,
		Payload:       record.Payload,
		EnqueuedAt:    s.clock.Tick(),
	}

	if err := s.queueStorage.ApplyLocalDelete(ctx, entityType, localID, changeRecord); err != nil {
		return fmt.Errorf("failed to apply local delete: %w", err)
	}

	return nil
}

// checkParents проверяет, что родительские сущности существуют локально
// и не удалены
func (s *service) checkParents(ctx context.Context, entity models.SyncableEntity) error {
	for _, ref := range entity.References() {
		parent, err := s.entityStorage.GetEntity(ctx, ref.EntityType, ref.ID)
		if err != nil {
			return fmt.Errorf("parent %s %s: %w", ref.EntityType, ref.ID, err)
		}
		if parent.Deleted {
			return fmt.Errorf("parent %s %s is deleted", ref.EntityType, ref.ID)
		}
	}
	return nil
}
