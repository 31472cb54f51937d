package cli

import (
	"github.com/iudanet/fieldsync/internal/client/auth"
	"github.com/iudanet/fieldsync/internal/client/data"
	"github.com/iudanet/fieldsync/internal/client/iocli"
	"github.com/iudanet/fieldsync/internal/client/orchestrator"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/client/sync"
	"github.com/iudanet/fieldsync/internal/models"
)

// Deps собирает зависимости команд
type Deps struct {
	IO           iocli.IO
	Auth         auth.Service
	Data         data.Service
	Sync         sync.Service
	Orchestrator *orchestrator.Orchestrator
	Metadata     storage.MetadataStorage
	Registry     *models.Registry
}

type Cli struct {
	io           iocli.IO
	authService  auth.Service
	dataService  data.Service
	syncService  sync.Service
	orchestrator *orchestrator.Orchestrator
	metadata     storage.MetadataStorage
	registry     *models.Registry
}

func New(deps Deps) *Cli {
	return &Cli{
		io:           deps.IO,
		authService:  deps.Auth,
		dataService:  deps.Data,
		syncService:  deps.Sync,
		orchestrator: deps.Orchestrator,
		metadata:     deps.Metadata,
		registry:     deps.Registry,
	}
}

const usageText = `FieldSync Client

Usage:
  fieldsync [OPTIONS] COMMAND

Options:
  --version    Show version information
  --db PATH    Path to the local data store (default: fieldsync-client.db)
  --session PATH  Path to the device session store (default: fieldsync-session.db)
  --log-file PATH Write daemon logs to a rotated file instead of stderr

Commands:
  configure               Store server URL, site and device token
  reset                   Remove the stored device session
  add-project             Add a project
  add-question            Add a question to a project
  add-response            Record a collected response
  list <type>             List projects, questions or responses
  update-project <id>     Edit a project
  update-question <id>    Edit a question
  update-response <id>    Correct a collected response
  delete <type> <id>      Delete an entity
  sync                    Run one sync cycle now
  run                     Keep syncing in the background (daemon)
  status                  Show session, queue and watermark state
  failed                  List changes that failed terminally
  retry <queue_id>        Requeue a failed change
  discard <queue_id>      Drop a failed change without sending it

Examples:
  fieldsync configure --server https://sync.example.com --site site-42 --token <token>
  fieldsync add-project
  fieldsync add-question --project 7d9e...
  fieldsync list responses --project 7d9e...
  fieldsync sync
  fieldsync run
  fieldsync retry 17
`

func (c *Cli) PrintUsage() {
	c.io.Printf("%s", usageText)
}
