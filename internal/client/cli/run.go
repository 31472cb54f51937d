package cli

import (
	"context"
	"fmt"
)

// runDaemon запускает фоновую синхронизацию и работает до отмены
// контекста (Ctrl+C в main)
func (c *Cli) runDaemon(ctx context.Context) error {
	if c.orchestrator == nil {
		return fmt.Errorf("daemon mode is not available")
	}

	// Без настроенного устройства фону нечего делать
	if _, err := c.authService.Token(ctx); err != nil {
		return fmt.Errorf("cannot start daemon: %w", err)
	}

	c.io.Println("=== Sync Daemon ===")
	c.io.Println()

	c.orchestrator.Start(ctx)
	c.io.Println("Syncing in the background. Press Ctrl+C to stop.")

	<-ctx.Done()

	c.io.Println()
	c.io.Println("Stopping...")
	c.orchestrator.Stop()

	if last := c.orchestrator.Last(); last != nil && last.Result != nil {
		c.io.Printf("Last cycle: pushed %d, pulled %d\n", last.Result.Pushed, last.Result.Pulled)
	}
	c.io.Println("✓ Daemon stopped.")

	return nil
}
