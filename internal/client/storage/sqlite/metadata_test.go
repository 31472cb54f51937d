package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
)

func TestMetadataStorage_GetWatermark_Default(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	// До первого pull курсор равен нулю
	watermark, err := s.GetWatermark(ctx, models.EntityTypeProject)
	require.NoError(t, err)
	assert.Zero(t, watermark)
}

func TestMetadataStorage_SaveWatermark_Monotonic(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.SaveWatermark(ctx, models.EntityTypeProject, 100))

	watermark, err := s.GetWatermark(ctx, models.EntityTypeProject)
	require.NoError(t, err)
	assert.Equal(t, int64(100), watermark)

	// Курсор двигается только вперёд
	require.NoError(t, s.SaveWatermark(ctx, models.EntityTypeProject, 50))

	watermark, err = s.GetWatermark(ctx, models.EntityTypeProject)
	require.NoError(t, err)
	assert.Equal(t, int64(100), watermark)

	require.NoError(t, s.SaveWatermark(ctx, models.EntityTypeProject, 200))

	watermark, err = s.GetWatermark(ctx, models.EntityTypeProject)
	require.NoError(t, err)
	assert.Equal(t, int64(200), watermark)
}

func TestMetadataStorage_Watermark_PerEntityType(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.SaveWatermark(ctx, models.EntityTypeProject, 100))
	require.NoError(t, s.SaveWatermark(ctx, models.EntityTypeQuestion, 300))

	// Курсоры независимы по типам
	watermark, err := s.GetWatermark(ctx, models.EntityTypeProject)
	require.NoError(t, err)
	assert.Equal(t, int64(100), watermark)

	watermark, err = s.GetWatermark(ctx, models.EntityTypeQuestion)
	require.NoError(t, err)
	assert.Equal(t, int64(300), watermark)

	watermark, err = s.GetWatermark(ctx, models.EntityTypeResponse)
	require.NoError(t, err)
	assert.Zero(t, watermark)
}
