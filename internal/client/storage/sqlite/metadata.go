package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// GetWatermark returns the pull cursor for the entity type, 0 when the type
// has never been pulled
func (s *Storage) GetWatermark(ctx context.Context, entityType string) (int64, error) {
	var watermark int64
	err := s.db.QueryRowContext(ctx,
		`SELECT max_updated_at FROM sync_watermarks WHERE entity_type = ?`,
		entityType,
	).Scan(&watermark)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get watermark: %w", err)
	}

	return watermark, nil
}

// SaveWatermark advances the pull cursor for the entity type. Lower values
// are ignored, the cursor only moves forward.
func (s *Storage) SaveWatermark(ctx context.Context, entityType string, timestamp int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveWatermarkTx(ctx, tx, entityType, timestamp)
	})
}

func saveWatermarkTx(ctx context.Context, tx *sql.Tx, entityType string, timestamp int64) error {
	query := `
		INSERT INTO sync_watermarks (entity_type, max_updated_at)
		VALUES (?, ?)
		ON CONFLICT(entity_type) DO UPDATE SET
			max_updated_at = MAX(max_updated_at, excluded.max_updated_at)
	`
	if _, err := tx.ExecContext(ctx, query, entityType, timestamp); err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}

	return nil
}
