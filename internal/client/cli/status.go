package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/fieldsync/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Device Status ===")
	c.io.Println()

	session, err := c.authService.Session(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.io.Println("Status: Not configured")
			c.io.Println()
			c.io.Println("Run 'fieldsync configure' to connect this device.")
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	c.io.Println("Status: Configured")
	c.io.Printf("Server:    %s\n", session.ServerURL)
	c.io.Printf("Site:      %s\n", session.SiteID)
	c.io.Printf("Device ID: %s\n", session.DeviceID)

	if session.ExpiresAt > 0 {
		expiresAt := time.Unix(session.ExpiresAt, 0)
		c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
		if remaining := time.Until(expiresAt); remaining > 0 {
			c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("⚠️  Token has expired. Run 'fieldsync configure' with a fresh token.")
		}
	}

	// Очередь изменений
	pending, err := c.syncService.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending changes: %w", err)
	}
	failed, err := c.syncService.ListFailed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list failed changes: %w", err)
	}

	c.io.Println()
	if pending > 0 {
		c.io.Printf("⚠️  Pending sync: %d change(s) waiting to be pushed\n", pending)
		c.io.Println("Run 'fieldsync sync' to push them now.")
	} else {
		c.io.Println("✓ All local changes pushed")
	}
	if len(failed) > 0 {
		c.io.Printf("⚠️  Failed: %d change(s) need attention, see 'fieldsync failed'\n", len(failed))
	}

	// Границы pull по типам
	c.io.Println()
	c.io.Println("Pull watermarks:")
	for _, entityType := range c.registry.Types() {
		watermark, err := c.metadata.GetWatermark(ctx, entityType)
		if err != nil {
			return fmt.Errorf("failed to get watermark: %w", err)
		}
		if watermark == 0 {
			c.io.Printf("  %-9s never pulled\n", entityType)
			continue
		}
		c.io.Printf("  %-9s %d (%s)\n", entityType, watermark,
			time.UnixMilli(watermark).Format("2006-01-02 15:04:05"))
	}

	return nil
}
