package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runUpdateProject(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing project ID. Usage: fieldsync update-project <id>")
	}

	project, err := c.dataService.GetProject(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	c.io.Println("=== Update Project ===")
	c.io.Println()
	c.io.Println("Press Enter to keep the current value.")
	c.io.Println()

	name, err := c.io.ReadInput(fmt.Sprintf("Name [%s]: ", project.Name))
	if err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}
	if name != "" {
		project.Name = name
	}

	description, err := c.io.ReadInput(fmt.Sprintf("Description [%s]: ", project.Description))
	if err != nil {
		return fmt.Errorf("failed to read description: %w", err)
	}
	if description != "" {
		project.Description = description
	}

	if err := c.dataService.UpdateProject(ctx, project); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Project updated!")

	return nil
}

func (c *Cli) runUpdateQuestion(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing question ID. Usage: fieldsync update-question <id>")
	}

	question, err := c.dataService.GetQuestion(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get question: %w", err)
	}

	c.io.Println("=== Update Question ===")
	c.io.Println()
	c.io.Println("Press Enter to keep the current value.")
	c.io.Println()

	label, err := c.io.ReadInput(fmt.Sprintf("Label [%s]: ", question.Label))
	if err != nil {
		return fmt.Errorf("failed to read label: %w", err)
	}
	if label != "" {
		question.Label = label
	}

	fieldType, err := c.io.ReadInput(fmt.Sprintf("Field type (text/number/date/choice) [%s]: ", question.FieldType))
	if err != nil {
		return fmt.Errorf("failed to read field type: %w", err)
	}
	if fieldType != "" {
		question.FieldType = fieldType
	}

	if err := c.dataService.UpdateQuestion(ctx, question); err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Question updated!")

	return nil
}

func (c *Cli) runUpdateResponse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing response ID. Usage: fieldsync update-response <id>")
	}

	response, err := c.dataService.GetResponse(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get response: %w", err)
	}

	c.io.Println("=== Update Response ===")
	c.io.Println()

	value, err := c.io.ReadInput(fmt.Sprintf("Value [%s]: ", response.Value))
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}
	if value == "" {
		c.io.Println()
		c.io.Println("Nothing to change.")
		return nil
	}
	response.Value = value

	if err := c.dataService.UpdateResponse(ctx, response); err != nil {
		return fmt.Errorf("failed to update response: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Response updated!")

	return nil
}
