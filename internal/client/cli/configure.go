package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/iudanet/fieldsync/internal/client/auth"
)

func (c *Cli) runConfigure(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	server := fs.String("server", "", "sync server URL")
	site := fs.String("site", "", "site ID the token was issued for")
	token := fs.String("token", "", "device token issued by the server")
	expiresAt := fs.Int64("expires-at", 0, "token expiry as unix seconds, 0 for no expiry")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Configure Device ===")
	c.io.Println()

	// Недостающие параметры запрашиваем интерактивно
	if *server == "" {
		value, err := c.io.ReadInput("Server URL (e.g., 'https://sync.example.com'): ")
		if err != nil {
			return fmt.Errorf("failed to read server URL: %w", err)
		}
		*server = value
	}
	if *site == "" {
		value, err := c.io.ReadInput("Site ID: ")
		if err != nil {
			return fmt.Errorf("failed to read site ID: %w", err)
		}
		*site = value
	}
	if *token == "" {
		value, err := c.io.ReadInput("Device token: ")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		*token = value
	}

	session, err := c.authService.Configure(ctx, auth.ConfigureParams{
		ServerURL: *server,
		SiteID:    *site,
		Token:     *token,
		ExpiresAt: *expiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to configure device: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Device configured!")
	c.io.Printf("Server:    %s\n", session.ServerURL)
	c.io.Printf("Site:      %s\n", session.SiteID)
	c.io.Printf("Device ID: %s\n", session.DeviceID)
	if session.ExpiresAt > 0 {
		c.io.Printf("Token expires: %s\n", time.Unix(session.ExpiresAt, 0).Format(time.RFC3339))
	}
	c.io.Println()
	c.io.Println("Run 'fieldsync sync' to start synchronization.")

	return nil
}

func (c *Cli) runReset(ctx context.Context) error {
	c.io.Println("=== Reset Device ===")
	c.io.Println()

	// Предупреждаем о неотправленных изменениях, они останутся в очереди
	pending, err := c.syncService.PendingCount(ctx)
	if err == nil && pending > 0 {
		c.io.Printf("⚠️  %d change(s) are still waiting to be pushed.\n", pending)
		c.io.Println()
	}

	confirmed, err := c.io.Confirm("Remove the stored session? Local data stays on disk.")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !confirmed {
		c.io.Println()
		c.io.Println("Reset cancelled.")
		return nil
	}

	if err := c.authService.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset device: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Device reset. Run 'fieldsync configure' to connect again.")

	return nil
}
