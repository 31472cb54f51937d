package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownEntityType возвращается при обращении к незарегистрированному типу
var ErrUnknownEntityType = errors.New("unknown entity type")

// Descriptor описывает один синхронизируемый тип для реестра
type Descriptor struct {
	New  func() SyncableEntity // New возвращает пустой экземпляр типа
	Type string                // Type строковый тег типа
	Rank int                   // Rank порядок применения: родители строго раньше детей
}

// Registry сопоставляет entity_type с описанием типа.
// Единственная точка диспетчеризации по типам, без рефлексии.
type Registry struct {
	descriptors map[string]Descriptor
	ordered     []string
}

// NewRegistry создает реестр со всеми встроенными типами
func NewRegistry() *Registry {
	r := &Registry{descriptors: make(map[string]Descriptor)}
	r.register(Descriptor{Type: EntityTypeProject, Rank: 0, New: func() SyncableEntity { return &Project{} }})
	r.register(Descriptor{Type: EntityTypeQuestion, Rank: 1, New: func() SyncableEntity { return &Question{} }})
	r.register(Descriptor{Type: EntityTypeResponse, Rank: 2, New: func() SyncableEntity { return &Response{} }})
	return r
}

func (r *Registry) register(d Descriptor) {
	r.descriptors[d.Type] = d
	r.ordered = append(r.ordered, d.Type)
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.descriptors[r.ordered[i]].Rank < r.descriptors[r.ordered[j]].Rank
	})
}

// Known сообщает, зарегистрирован ли тип
func (r *Registry) Known(entityType string) bool {
	_, ok := r.descriptors[entityType]
	return ok
}

// Types возвращает все типы в порядке возрастания ранга.
// Pull-конвейер обходит типы в этом порядке, чтобы родители
// материализовались раньше детей.
func (r *Registry) Types() []string {
	out := make([]string, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Decode разбирает JSON снимок в типизированную сущность
func (r *Registry) Decode(entityType string, payload []byte) (SyncableEntity, error) {
	d, ok := r.descriptors[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}

	entity := d.New()
	if err := json.Unmarshal(payload, entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", entityType, err)
	}

	return entity, nil
}

// Encode сериализует типизированную сущность в JSON снимок
func (r *Registry) Encode(entity SyncableEntity) ([]byte, error) {
	if !r.Known(entity.EntityType()) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entity.EntityType())
	}

	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", entity.EntityType(), err)
	}

	return payload, nil
}
