package netbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

// Snapshot converts an object to the generic map form stored in changelog
// entries and handed to scripts and webhooks. A nil object yields nil, which
// is what creates (no pre) and deletes (no post) expect.
func Snapshot(v any) map[string]any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var snapshot map[string]any
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil
	}
	return snapshot
}

// NewChange assembles a changelog entry for an object mutation. The pre and
// post arguments are the object before and after the write; pass nil for the
// missing side on creates and deletes.
func NewChange(kind domain.ObjectKind, objectID uuid.UUID, action domain.ChangeAction, actor string, pre, post any) (*domain.ObjectChange, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating change id : %w", err)
	}
	if actor == "" {
		actor = "system"
	}
	return &domain.ObjectChange{
		ID:         id,
		ObjectKind: kind,
		ObjectID:   objectID,
		Action:     action,
		Actor:      actor,
		Time:       time.Now().UTC(),
		PreChange:  Snapshot(pre),
		PostChange: Snapshot(post),
	}, nil
}

// ValidateChange runs every enabled validator script attached to the
// change's object kind. A *scripts.RejectionError means a script refused the
// write; the caller must not commit it.
func (app *App) ValidateChange(change *domain.ObjectChange) error {
	all, err := app.Repo.ListScripts()
	if err != nil {
		return fmt.Errorf("loading scripts : %w", err)
	}
	return app.Scripts.RunValidators(all, change)
}

// Record persists a committed change and fans it out: the changelog entry is
// written first, then hook scripts observe the change, then webhook
// deliveries are queued. Hook and webhook failures do not undo the write.
func (app *App) Record(change *domain.ObjectChange) error {
	if err := app.Repo.InsertChange(change); err != nil {
		return fmt.Errorf("recording change for %s : %w", change.ObjectID, err)
	}

	all, err := app.Repo.ListScripts()
	if err != nil {
		app.Logger.Error().Err(err).Msg("loading hook scripts failed")
	} else {
		app.Scripts.RunHooks(all, change)
	}

	hooks, err := app.Repo.ListWebhooks()
	if err != nil {
		app.Logger.Error().Err(err).Msg("loading webhooks failed")
		return nil
	}
	if err := app.Webhooks.Enqueue(hooks, change); err != nil {
		app.Logger.Error().Err(err).Msg("queueing webhook deliveries failed")
	}
	return nil
}
