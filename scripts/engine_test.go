package scripts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sashashura/netbox/domain"
)

func testEngine() *Engine {
	return NewEngine(zerolog.Nop(), 0)
}

func testScript(name string, kind domain.ScriptKind, source string) *domain.Script {
	return &domain.Script{
		ID:          uuid.New(),
		Name:        name,
		Kind:        kind,
		ObjectKinds: []domain.ObjectKind{domain.KindSite},
		Enabled:     true,
		Source:      source,
	}
}

func siteChange(action domain.ChangeAction) *domain.ObjectChange {
	return &domain.ObjectChange{
		ID:         uuid.New(),
		ObjectKind: domain.KindSite,
		ObjectID:   uuid.New(),
		Action:     action,
		Actor:      "system",
		Time:       time.Now(),
		PreChange:  map[string]any{"name": "Ashburn", "status": "planned"},
		PostChange: map[string]any{"name": "Ashburn", "status": "active"},
	}
}

func TestRunValidator(t *testing.T) {
	t.Run("should pass a change the script accepts", func(t *testing.T) {
		script := testScript("allow-all", domain.ScriptValidator, `
			if object.name == nil then
				netbox:reject("sites need a name")
			end
		`)

		if err := testEngine().RunValidator(script, siteChange(domain.ActionUpdate)); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should surface a rejection with the script's message", func(t *testing.T) {
		script := testScript("no-deletes", domain.ScriptValidator, `
			if action == "delete" then
				netbox:reject("sites cannot be deleted")
			end
		`)

		err := testEngine().RunValidator(script, siteChange(domain.ActionDelete))

		var rejection *RejectionError
		if !errors.As(err, &rejection) {
			t.Fatalf("\nwanted:\nRejectionError\ngot:\n%v", err)
		}
		if rejection.Script != "no-deletes" || rejection.Message != "sites cannot be deleted" {
			t.Fatalf("\nwanted:\nno-deletes / sites cannot be deleted\ngot:\n%s / %s",
				rejection.Script, rejection.Message)
		}
	})

	t.Run("should expose the change as globals", func(t *testing.T) {
		script := testScript("inspect", domain.ScriptValidator, `
			if kind ~= "dcim.site" then netbox:reject("wrong kind") end
			if action ~= "update" then netbox:reject("wrong action") end
			if object.status ~= "active" then netbox:reject("wrong post snapshot") end
			if previous.status ~= "planned" then netbox:reject("wrong pre snapshot") end
		`)

		if err := testEngine().RunValidator(script, siteChange(domain.ActionUpdate)); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should report a broken script as a plain error", func(t *testing.T) {
		script := testScript("broken", domain.ScriptValidator, `this is not lua`)

		err := testEngine().RunValidator(script, siteChange(domain.ActionCreate))
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
		var rejection *RejectionError
		if errors.As(err, &rejection) {
			t.Fatalf("\nwanted:\nplain error\ngot:\nrejection %v", rejection)
		}
	})

	t.Run("should stop a script that runs past the time budget", func(t *testing.T) {
		engine := NewEngine(zerolog.Nop(), 50*time.Millisecond)
		script := testScript("spinner", domain.ScriptValidator, `while true do end`)

		err := engine.RunValidator(script, siteChange(domain.ActionCreate))
		if err == nil || !strings.Contains(err.Error(), "time budget") {
			t.Fatalf("\nwanted:\ntime budget error\ngot:\n%v", err)
		}
	})
}

func TestRunHook(t *testing.T) {
	t.Run("should run an observing hook cleanly", func(t *testing.T) {
		script := testScript("observe", domain.ScriptHook, `
			netbox:log("site " .. object.name .. " changed", "debug")
		`)

		if err := testEngine().RunHook(script, siteChange(domain.ActionUpdate)); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should not offer reject to hooks", func(t *testing.T) {
		script := testScript("sneaky", domain.ScriptHook, `netbox:reject("nope")`)

		err := testEngine().RunHook(script, siteChange(domain.ActionUpdate))
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestRunValidators(t *testing.T) {
	t.Run("should skip scripts attached to other kinds", func(t *testing.T) {
		script := testScript("racks-only", domain.ScriptValidator, `netbox:reject("never valid")`)
		script.ObjectKinds = []domain.ObjectKind{domain.KindRack}

		err := testEngine().RunValidators([]*domain.Script{script}, siteChange(domain.ActionCreate))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should skip disabled scripts", func(t *testing.T) {
		script := testScript("disabled", domain.ScriptValidator, `netbox:reject("never valid")`)
		script.Enabled = false

		err := testEngine().RunValidators([]*domain.Script{script}, siteChange(domain.ActionCreate))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should stop at the first rejection", func(t *testing.T) {
		first := testScript("first", domain.ScriptValidator, `netbox:reject("first wins")`)
		second := testScript("second", domain.ScriptValidator, `netbox:reject("second")`)

		err := testEngine().RunValidators([]*domain.Script{first, second}, siteChange(domain.ActionCreate))

		var rejection *RejectionError
		if !errors.As(err, &rejection) || rejection.Message != "first wins" {
			t.Fatalf("\nwanted:\nfirst wins\ngot:\n%v", err)
		}
	})

	t.Run("should ignore hook scripts entirely", func(t *testing.T) {
		hook := testScript("hook", domain.ScriptHook, `netbox:log("observing")`)

		err := testEngine().RunValidators([]*domain.Script{hook}, siteChange(domain.ActionCreate))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})
}

func TestRunHooks(t *testing.T) {
	t.Run("should keep going past a failing hook", func(t *testing.T) {
		broken := testScript("broken", domain.ScriptHook, `error("hook blew up")`)
		fine := testScript("fine", domain.ScriptHook, `netbox:log("still running")`)

		// must not panic or stop; failures are logged only
		testEngine().RunHooks([]*domain.Script{broken, fine}, siteChange(domain.ActionUpdate))
	})
}
