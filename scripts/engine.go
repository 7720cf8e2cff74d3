package scripts

import (
	"fmt"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/Shopify/goluago/util"
	"github.com/rs/zerolog"

	"github.com/sashashura/netbox/domain"
)

// DefaultTimeout caps the wall-clock time a single script run may take.
const DefaultTimeout = 5 * time.Second

// RejectionError is returned when a validator script rejects a change by
// calling netbox.reject.
type RejectionError struct {
	Script  string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("script %s rejected the change: %s", e.Script, e.Message)
}

// Engine runs validator and hook scripts. Each run gets a fresh Lua state,
// so scripts cannot see each other's globals or leak state between runs.
type Engine struct {
	logger  zerolog.Logger
	timeout time.Duration
}

// NewEngine returns an engine that logs through the given logger. A zero
// timeout falls back to DefaultTimeout.
func NewEngine(logger zerolog.Logger, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{logger: logger, timeout: timeout}
}

// RunValidator executes a validator script against a change. It returns a
// *RejectionError when the script calls netbox.reject, or a plain error when
// the script itself fails or runs past the time budget.
func (e *Engine) RunValidator(script *domain.Script, change *domain.ObjectChange) error {
	var rejection string

	l := e.newState(script, change)
	registerReject(l, &rejection)

	err := e.runChunk(l, script)
	if rejection != "" {
		return &RejectionError{Script: script.Name, Message: rejection}
	}
	if err != nil {
		return fmt.Errorf("running validator %s : %w", script.Name, err)
	}
	return nil
}

// RunHook executes a hook script against a committed change. Hooks observe
// only; netbox.reject is not available to them.
func (e *Engine) RunHook(script *domain.Script, change *domain.ObjectChange) error {
	l := e.newState(script, change)

	if err := e.runChunk(l, script); err != nil {
		return fmt.Errorf("running hook %s : %w", script.Name, err)
	}
	return nil
}

// RunValidators runs every enabled validator attached to the change's object
// kind, in order, stopping at the first rejection or failure.
func (e *Engine) RunValidators(all []*domain.Script, change *domain.ObjectChange) error {
	for _, script := range all {
		if script.Kind != domain.ScriptValidator || !script.AppliesTo(change.ObjectKind) {
			continue
		}
		if err := e.RunValidator(script, change); err != nil {
			return err
		}
	}
	return nil
}

// RunHooks runs every enabled hook attached to the change's object kind.
// A failing hook is logged and does not stop the remaining hooks, since the
// change has already committed.
func (e *Engine) RunHooks(all []*domain.Script, change *domain.ObjectChange) {
	for _, script := range all {
		if script.Kind != domain.ScriptHook || !script.AppliesTo(change.ObjectKind) {
			continue
		}
		if err := e.RunHook(script, change); err != nil {
			e.logger.Error().Err(err).Str("script", script.Name).Msg("hook script failed")
		}
	}
}

// newState builds a fresh Lua state with the standard libraries, the netbox
// library, and the change exposed as globals: `object` and `previous` hold
// the post and pre snapshots, `action` and `kind` the change metadata.
func (e *Engine) newState(script *domain.Script, change *domain.ObjectChange) *lua.State {
	l := lua.NewState()
	lua.OpenLibraries(l)

	registerNetboxLibrary(l, e.logger, script.Name)
	registerSubLibraries(l)

	pushSnapshot(l, change.PostChange)
	l.SetGlobal("object")
	pushSnapshot(l, change.PreChange)
	l.SetGlobal("previous")
	l.PushString(string(change.Action))
	l.SetGlobal("action")
	l.PushString(string(change.ObjectKind))
	l.SetGlobal("kind")

	return l
}

// runChunk executes the script source under the engine's wall-clock budget.
// A timed-out chunk is abandoned along with its state; the goroutine drains
// once the chunk eventually returns.
func (e *Engine) runChunk(l *lua.State, script *domain.Script) error {
	done := make(chan error, 1)
	go func() {
		done <- lua.DoString(l, script.Source)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(e.timeout):
		return fmt.Errorf("exceeded the %s time budget", e.timeout)
	}
}

func pushSnapshot(l *lua.State, snapshot map[string]any) {
	if snapshot == nil {
		l.NewTable()
		return
	}
	util.DeepPush(l, snapshot)
}
