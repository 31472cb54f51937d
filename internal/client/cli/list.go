package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

func (c *Cli) runList(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing entity type. Usage: fieldsync list <projects|questions|responses> [--project <id>]")
	}

	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	projectID := fs.String("project", "", "filter by project local ID")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "projects", "project":
		return c.listProjects(ctx)
	case "questions", "question":
		return c.listQuestions(ctx, *projectID)
	case "responses", "response":
		return c.listResponses(ctx, *projectID)
	default:
		return fmt.Errorf("unknown entity type: %s. Use: projects, questions, or responses", args[0])
	}
}

func (c *Cli) listProjects(ctx context.Context) error {
	records, err := c.dataService.ListRecords(ctx, models.EntityTypeProject)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(records) == 0 {
		c.io.Println("No projects found.")
		c.io.Println()
		c.io.Println("Use 'fieldsync add-project' to add your first project.")
		return nil
	}

	w := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS")
	for _, record := range records {
		entity, err := c.registry.Decode(record.EntityType, record.Payload)
		if err != nil {
			continue
		}
		project := entity.(*models.Project)
		fmt.Fprintf(w, "%s\t%s\t%s\n", record.LocalID, truncate(project.Name, 40), record.SyncStatus)
	}

	return w.Flush()
}

func (c *Cli) listQuestions(ctx context.Context, projectID string) error {
	records, err := c.dataService.ListRecords(ctx, models.EntityTypeQuestion)
	if err != nil {
		return fmt.Errorf("failed to list questions: %w", err)
	}

	w := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTYPE\tREQUIRED\tSTATUS")

	shown := 0
	for _, record := range records {
		entity, err := c.registry.Decode(record.EntityType, record.Payload)
		if err != nil {
			continue
		}
		question := entity.(*models.Question)
		if projectID != "" && question.ProjectID != projectID {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			record.LocalID, truncate(question.Label, 40), question.FieldType, question.Required, record.SyncStatus)
		shown++
	}

	if shown == 0 {
		c.io.Println("No questions found.")
		return nil
	}

	return w.Flush()
}

func (c *Cli) listResponses(ctx context.Context, projectID string) error {
	records, err := c.dataService.ListRecords(ctx, models.EntityTypeResponse)
	if err != nil {
		return fmt.Errorf("failed to list responses: %w", err)
	}

	w := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUESTION\tVALUE\tCOLLECTED\tSTATUS")

	shown := 0
	for _, record := range records {
		entity, err := c.registry.Decode(record.EntityType, record.Payload)
		if err != nil {
			continue
		}
		response := entity.(*models.Response)
		if projectID != "" && response.ProjectID != projectID {
			continue
		}
		collected := time.UnixMilli(response.CollectedAt).Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			record.LocalID, response.QuestionID, truncate(response.Value, 30), collected, record.SyncStatus)
		shown++
	}

	if shown == 0 {
		c.io.Println("No responses found.")
		return nil
	}

	return w.Flush()
}
