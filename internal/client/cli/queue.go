package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
)

func (c *Cli) runFailed(ctx context.Context) error {
	records, err := c.syncService.ListFailed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list failed changes: %w", err)
	}

	if len(records) == 0 {
		c.io.Println("No failed changes.")
		return nil
	}

	c.io.Printf("Found %d failed change(s):\n", len(records))
	c.io.Println()

	w := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUE ID\tTYPE\tOPERATION\tENTITY\tATTEMPTS\tLAST ERROR")
	for _, record := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			record.QueueID, record.EntityType, record.Operation, record.EntityLocalID,
			record.Attempts, truncate(record.LastError, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Use 'fieldsync retry <queue_id>' to requeue or 'fieldsync discard <queue_id>' to drop.")

	return nil
}

func (c *Cli) runRetry(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing queue ID. Usage: fieldsync retry <queue_id>")
	}

	queueID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid queue ID: %s", args[0])
	}

	if err := c.syncService.Retry(ctx, queueID); err != nil {
		return fmt.Errorf("failed to retry change: %w", err)
	}

	c.io.Printf("✓ Change %d requeued. Run 'fieldsync sync' to push it now.\n", queueID)

	return nil
}

func (c *Cli) runDiscard(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing queue ID. Usage: fieldsync discard <queue_id>")
	}

	queueID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid queue ID: %s", args[0])
	}

	confirmed, err := c.io.Confirm("Drop this change without sending it to the server?")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !confirmed {
		c.io.Println()
		c.io.Println("Discard cancelled.")
		return nil
	}

	if err := c.syncService.Discard(ctx, queueID); err != nil {
		return fmt.Errorf("failed to discard change: %w", err)
	}

	c.io.Printf("✓ Change %d discarded.\n", queueID)

	return nil
}
