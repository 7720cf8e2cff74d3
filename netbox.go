// Package netbox models data center infrastructure and IP address space:
// sites, racks, devices and cabling on the DCIM side, prefixes, addresses
// and VLANs on the IPAM side. It is designed to be the source of truth the
// rest of the network automation tooling reads from.
//
// The core functionality includes:
//   - SQLite-backed object storage with full change logging
//   - Rack elevations rendered as JSON or SVG
//   - Prefix hierarchy with free-space and utilization calculations
//   - Cable tracing through patch panels
//   - Lua validator and hook scripts on object writes
//   - Signed webhook deliveries to subscribed endpoints
//   - Bulk CSV and device-type YAML imports
package netbox

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sashashura/netbox/bulkimport"
	"github.com/sashashura/netbox/domain"
	"github.com/sashashura/netbox/scripts"
	"github.com/sashashura/netbox/webhook"
)

// App is the central coordinator. It owns the repository, the script engine,
// and the webhook dispatcher, and runs the change pipeline that ties object
// writes to the changelog, scripts, and webhooks.
type App struct {
	ConfigDir string            // The configuration directory
	Config    *Config           // Application configuration
	Repo      domain.Repository // DB Repository Interface
	Logger    zerolog.Logger
	Scripts   *scripts.Engine
	Webhooks  *webhook.Dispatcher
	Importer  *bulkimport.Importer
}

// New creates a new App instance with default wiring and applies any
// provided options. The zero app logs nowhere and has no repository; callers
// configure both through options.
func New(options ...func(*App) error) (*App, error) {
	app := &App{
		Logger: zerolog.Nop(),
	}
	if err := app.WithOptions(options...); err != nil {
		return nil, err
	}

	if app.Scripts == nil {
		app.Scripts = scripts.NewEngine(app.Logger, scripts.DefaultTimeout)
	}
	if app.Webhooks == nil {
		app.Webhooks = webhook.NewDispatcher(app.Logger)
	}
	if app.Importer == nil && app.Repo != nil {
		app.Importer = app.newImporter(app.Repo)
	}
	return app, nil
}

// newImporter builds the bulk importer with its created objects routed into
// the change pipeline, so imports show up in the changelog and fan out to
// hooks and webhooks like API writes.
func (app *App) newImporter(repo domain.Repository) *bulkimport.Importer {
	imp := bulkimport.NewImporter(repo, app.Logger)
	imp.OnCreate = func(kind domain.ObjectKind, id uuid.UUID, object any) {
		change, err := NewChange(kind, id, domain.ActionCreate, "import", nil, object)
		if err != nil {
			app.Logger.Error().Err(err).Msg("building import change failed")
			return
		}
		if err := app.Record(change); err != nil {
			app.Logger.Error().Err(err).Msg("recording import change failed")
		}
	}
	return imp
}

// WithOptions applies a series of configuration functions to the app.
func (app *App) WithOptions(options ...func(*App) error) error {
	for _, option := range options {
		if err := option(app); err != nil {
			return fmt.Errorf("applying option on netbox : %w", err)
		}
	}
	return nil
}

// Start launches the background workers: the webhook dispatcher and, when a
// retention window is configured, the changelog pruner.
func (app *App) Start() {
	app.Webhooks.Start()
	if app.Config != nil && app.Config.ChangelogDays > 0 {
		go app.pruneLoop(time.Duration(app.Config.ChangelogDays) * 24 * time.Hour)
	}
}

// Close stops the workers and releases the repository.
func (app *App) Close() error {
	app.Webhooks.Stop()
	if app.Repo != nil {
		return app.Repo.Close()
	}
	return nil
}

// pruneLoop trims changelog entries older than the retention window once a
// day. Workers stop with the process; pruning is a maintenance task, not a
// correctness one.
func (app *App) pruneLoop(retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-retention)
		pruned, err := app.Repo.PruneChanges(cutoff)
		if err != nil {
			app.Logger.Error().Err(err).Msg("pruning changelog failed")
			continue
		}
		if pruned > 0 {
			app.Logger.Info().Int64("pruned", pruned).Msg("changelog pruned")
		}
	}
}
