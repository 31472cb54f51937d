package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду и возвращает ошибку вызывающему,
// код завершения процесса выставляет main
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "configure":
		return c.runConfigure(ctx, args)
	case "reset":
		return c.runReset(ctx)
	case "add-project":
		return c.runAddProject(ctx)
	case "add-question":
		return c.runAddQuestion(ctx, args)
	case "add-response":
		return c.runAddResponse(ctx, args)
	case "list":
		return c.runList(ctx, args)
	case "update-project":
		return c.runUpdateProject(ctx, args)
	case "update-question":
		return c.runUpdateQuestion(ctx, args)
	case "update-response":
		return c.runUpdateResponse(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "run":
		return c.runDaemon(ctx)
	case "status":
		return c.runStatus(ctx)
	case "failed":
		return c.runFailed(ctx)
	case "retry":
		return c.runRetry(ctx, args)
	case "discard":
		return c.runDiscard(ctx, args)
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}
