package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing arguments. Usage: fieldsync delete <project|question|response> <id>")
	}

	entityType := args[0]
	localID := args[1]

	c.io.Println("=== Delete ===")
	c.io.Println()

	// Показываем, что именно будет удалено
	switch entityType {
	case "project":
		project, err := c.dataService.GetProject(ctx, localID)
		if err != nil {
			return fmt.Errorf("failed to get project: %w", err)
		}
		c.io.Println("About to delete project:")
		c.io.Printf("  Name: %s\n", project.Name)
	case "question":
		question, err := c.dataService.GetQuestion(ctx, localID)
		if err != nil {
			return fmt.Errorf("failed to get question: %w", err)
		}
		c.io.Println("About to delete question:")
		c.io.Printf("  Label: %s\n", question.Label)
	case "response":
		response, err := c.dataService.GetResponse(ctx, localID)
		if err != nil {
			return fmt.Errorf("failed to get response: %w", err)
		}
		c.io.Println("About to delete response:")
		c.io.Printf("  Value: %s\n", truncate(response.Value, 60))
	default:
		return fmt.Errorf("unknown entity type: %s. Use: project, question, or response", entityType)
	}

	c.io.Println()
	confirmed, err := c.io.Confirm("Are you sure?")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !confirmed {
		c.io.Println()
		c.io.Println("Deletion cancelled.")
		return nil
	}

	switch entityType {
	case "project":
		err = c.dataService.DeleteProject(ctx, localID)
	case "question":
		err = c.dataService.DeleteQuestion(ctx, localID)
	case "response":
		err = c.dataService.DeleteResponse(ctx, localID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", entityType, err)
	}

	c.io.Println()
	c.io.Println("✓ Deleted locally!")
	c.io.Println()
	c.io.Println("Note: Run 'fieldsync sync' to propagate the deletion to the server.")

	return nil
}
