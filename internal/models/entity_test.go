package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferences(t *testing.T) {
	tests := []struct {
		entity   SyncableEntity
		name     string
		expected []EntityRef
	}{
		{
			name:     "project has no parents",
			entity:   &Project{LocalID: "p1", Name: "Water survey"},
			expected: nil,
		},
		{
			name:   "question references its project",
			entity: &Question{LocalID: "q1", ProjectID: "p1", Label: "Source type"},
			expected: []EntityRef{
				{EntityType: EntityTypeProject, ID: "p1"},
			},
		},
		{
			name:   "response references project and question",
			entity: &Response{LocalID: "r1", ProjectID: "p1", QuestionID: "q1", Value: "well"},
			expected: []EntityRef{
				{EntityType: EntityTypeProject, ID: "p1"},
				{EntityType: EntityTypeQuestion, ID: "q1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entity.References())
		})
	}
}

func TestMapRefs(t *testing.T) {
	// Отображение local_id -> cloud_id, как перед отправкой на сервер
	cloudIDs := map[string]string{
		"p1": "P-42",
		"q1": "Q-7",
	}
	resolve := func(ref EntityRef) (string, error) {
		return cloudIDs[ref.ID], nil
	}

	t.Run("question", func(t *testing.T) {
		q := &Question{LocalID: "q1", ProjectID: "p1", Label: "Source type"}
		require.NoError(t, q.MapRefs(resolve))
		assert.Equal(t, "P-42", q.ProjectID)
		// local_id самой сущности не трогаем
		assert.Equal(t, "q1", q.LocalID)
	})

	t.Run("response", func(t *testing.T) {
		r := &Response{LocalID: "r1", ProjectID: "p1", QuestionID: "q1", Value: "well"}
		require.NoError(t, r.MapRefs(resolve))
		assert.Equal(t, "P-42", r.ProjectID)
		assert.Equal(t, "Q-7", r.QuestionID)
	})

	t.Run("project is a no-op", func(t *testing.T) {
		p := &Project{LocalID: "p1", Name: "Water survey"}
		require.NoError(t, p.MapRefs(resolve))
		assert.Equal(t, "p1", p.LocalID)
	})
}

func TestMapRefs_ResolveError(t *testing.T) {
	resolve := func(ref EntityRef) (string, error) {
		return "", assert.AnError
	}

	q := &Question{LocalID: "q1", ProjectID: "p1"}
	err := q.MapRefs(resolve)
	require.Error(t, err)
	// при ошибке ссылка остается нетронутой
	assert.Equal(t, "p1", q.ProjectID)
}

func TestEntityRecord_Clone(t *testing.T) {
	original := &EntityRecord{
		LocalID:    "r1",
		EntityType: EntityTypeResponse,
		CloudID:    "R-1",
		SyncStatus: SyncStatusSynced,
		Payload:    []byte(`{"value":"well"}`),
		UpdatedAt:  123456,
		Deleted:    false,
	}

	clone := original.Clone()

	assert.Equal(t, original, clone)

	// Модификация оригинала не должна влиять на клон
	original.Payload[0] = '_'
	original.CloudID = "R-2"
	assert.Equal(t, byte('{'), clone.Payload[0])
	assert.Equal(t, "R-1", clone.CloudID)
}

func TestChangeRecord_Clone(t *testing.T) {
	original := &ChangeRecord{
		QueueID:       7,
		EntityType:    EntityTypeProject,
		EntityLocalID: "p1",
		Operation:     OperationCreate,
		Status:        RecordStatusPending,
		Payload:       []byte(`{"name":"Water survey"}`),
		Attempts:      2,
		NextAttemptAt: 9000,
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	original.Payload[0] = '_'
	original.Attempts = 5
	assert.Equal(t, byte('{'), clone.Payload[0])
	assert.Equal(t, 2, clone.Attempts)
}

func TestChangeRecord_IsTerminal(t *testing.T) {
	assert.False(t, (&ChangeRecord{Status: RecordStatusPending}).IsTerminal())
	assert.False(t, (&ChangeRecord{Status: RecordStatusSyncing}).IsTerminal())
	assert.True(t, (&ChangeRecord{Status: RecordStatusFailed}).IsTerminal())
}
