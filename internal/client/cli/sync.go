package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	token, err := c.authService.Token(ctx)
	if err != nil {
		return fmt.Errorf("cannot sync: %w", err)
	}

	c.io.Println("Starting sync cycle...")

	result, syncErr := c.syncService.Sync(ctx, token)

	// Счётчики печатаем и при ошибке: зафиксированный до сбоя прогресс
	// не откатывается
	if result != nil {
		c.io.Println()
		c.io.Printf("Pushed:   %d\n", result.Pushed)
		c.io.Printf("Pulled:   %d (merged %d, skipped %d)\n", result.Pulled, result.Merged, result.Skipped)
		if result.Deferred > 0 {
			c.io.Printf("Deferred: %d (will retry with backoff)\n", result.Deferred)
		}
		if result.Blocked > 0 {
			c.io.Printf("Blocked:  %d (waiting for a parent or an earlier change)\n", result.Blocked)
		}
		if result.Failed > 0 {
			c.io.Printf("Failed:   %d (see 'fieldsync failed')\n", result.Failed)
		}
	}

	if syncErr != nil {
		return fmt.Errorf("sync cycle did not complete: %w", syncErr)
	}

	c.io.Println()
	c.io.Println("✓ Sync completed!")

	return nil
}
