package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/iudanet/fieldsync/internal/models"
)

func (c *Cli) runAddProject(ctx context.Context) error {
	c.io.Println("=== Add Project ===")
	c.io.Println()

	name, err := c.io.ReadInput("Name (e.g., 'Household census 2026'): ")
	if err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}

	description, err := c.io.ReadInput("Description (optional): ")
	if err != nil {
		return fmt.Errorf("failed to read description: %w", err)
	}

	project := &models.Project{
		Name:        name,
		Description: description,
	}

	if err := c.dataService.AddProject(ctx, project); err != nil {
		return fmt.Errorf("failed to add project: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Project added!")
	c.io.Printf("ID: %s\n", project.LocalID)
	c.io.Println()
	c.io.Println("Note: The project is stored locally. Run 'fieldsync sync' to push it to the server.")

	return nil
}

func (c *Cli) runAddQuestion(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-question", flag.ContinueOnError)
	projectID := fs.String("project", "", "local ID of the project")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Add Question ===")
	c.io.Println()

	project := *projectID
	if project == "" {
		value, err := c.io.ReadInput("Project ID: ")
		if err != nil {
			return fmt.Errorf("failed to read project ID: %w", err)
		}
		project = value
	}

	label, err := c.io.ReadInput("Label (e.g., 'Household size'): ")
	if err != nil {
		return fmt.Errorf("failed to read label: %w", err)
	}

	fieldType, err := c.io.ReadInput("Field type (text/number/date/choice) [text]: ")
	if err != nil {
		return fmt.Errorf("failed to read field type: %w", err)
	}
	if fieldType == "" {
		fieldType = models.FieldTypeText
	}

	required, err := c.io.Confirm("Required?")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	question := &models.Question{
		ProjectID: project,
		Label:     label,
		FieldType: fieldType,
		Required:  required,
	}

	if err := c.dataService.AddQuestion(ctx, question); err != nil {
		return fmt.Errorf("failed to add question: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Question added!")
	c.io.Printf("ID: %s\n", question.LocalID)

	return nil
}

func (c *Cli) runAddResponse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-response", flag.ContinueOnError)
	projectID := fs.String("project", "", "local ID of the project")
	questionID := fs.String("question", "", "local ID of the question")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Add Response ===")
	c.io.Println()

	project := *projectID
	if project == "" {
		value, err := c.io.ReadInput("Project ID: ")
		if err != nil {
			return fmt.Errorf("failed to read project ID: %w", err)
		}
		project = value
	}

	question := *questionID
	if question == "" {
		value, err := c.io.ReadInput("Question ID: ")
		if err != nil {
			return fmt.Errorf("failed to read question ID: %w", err)
		}
		question = value
	}

	value, err := c.io.ReadInput("Value: ")
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}

	response := &models.Response{
		ProjectID:  project,
		QuestionID: question,
		Value:      value,
	}

	if err := c.dataService.AddResponse(ctx, response); err != nil {
		return fmt.Errorf("failed to add response: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Response recorded!")
	c.io.Printf("ID: %s\n", response.LocalID)

	return nil
}
