package validation

import (
	"fmt"

	"github.com/iudanet/fieldsync/internal/models"
)

const (
	// MaxNameLen максимальная длина названия проекта
	MaxNameLen = 200
	// MaxLabelLen максимальная длина текста вопроса
	MaxLabelLen = 500
	// MaxValueLen максимальная длина значения ответа
	MaxValueLen = 10000
)

// допустимые типы полей вопроса
var fieldTypes = map[string]bool{
	models.FieldTypeText:   true,
	models.FieldTypeNumber: true,
	models.FieldTypeDate:   true,
	models.FieldTypeChoice: true,
}

// ValidateEntity проверяет типизированную сущность перед постановкой в очередь
// и при приёме на сервере. Ссылочная целостность здесь не проверяется -
// за неё отвечают конвейер отправки (клиент) и хранилище (сервер).
func ValidateEntity(entity models.SyncableEntity) error {
	switch e := entity.(type) {
	case *models.Project:
		return ValidateProject(e)
	case *models.Question:
		return ValidateQuestion(e)
	case *models.Response:
		return ValidateResponse(e)
	default:
		return fmt.Errorf("no validator for entity type %q", entity.EntityType())
	}
}

// ValidateProject проверяет поля проекта
func ValidateProject(p *models.Project) error {
	if p.Name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if len(p.Name) > MaxNameLen {
		return fmt.Errorf("project name must not exceed %d characters", MaxNameLen)
	}
	return nil
}

// ValidateQuestion проверяет поля вопроса
func ValidateQuestion(q *models.Question) error {
	if q.Label == "" {
		return fmt.Errorf("question label cannot be empty")
	}
	if len(q.Label) > MaxLabelLen {
		return fmt.Errorf("question label must not exceed %d characters", MaxLabelLen)
	}
	if q.ProjectID == "" {
		return fmt.Errorf("question must reference a project")
	}
	if !fieldTypes[q.FieldType] {
		return fmt.Errorf("unknown field type %q", q.FieldType)
	}
	return nil
}

// ValidateResponse проверяет поля ответа
func ValidateResponse(r *models.Response) error {
	if r.ProjectID == "" {
		return fmt.Errorf("response must reference a project")
	}
	if r.QuestionID == "" {
		return fmt.Errorf("response must reference a question")
	}
	if len(r.Value) > MaxValueLen {
		return fmt.Errorf("response value must not exceed %d characters", MaxValueLen)
	}
	if r.CollectedAt < 0 {
		return fmt.Errorf("collected_at cannot be negative")
	}
	return nil
}
