package netbox

import (
	"os"
	"path"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithConfigDir(t *testing.T) {
	t.Run("should create the directory and write defaults", func(t *testing.T) {
		dir := path.Join(t.TempDir(), "netbox-config")

		app, err := New(WithConfigDir(dir))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if app.ConfigDir != dir {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", dir, app.ConfigDir)
		}
		if _, err := os.Stat(path.Join(dir, "config.yaml")); err != nil {
			t.Fatalf("\nwanted:\nconfig.yaml written\ngot:\n%v", err)
		}
		if app.Config.ListenAddress != "127.0.0.1" || app.Config.ListenPort != "8000" {
			t.Fatalf("\nwanted:\n127.0.0.1:8000\ngot:\n%s:%s", app.Config.ListenAddress, app.Config.ListenPort)
		}
		if app.Config.DatabasePath != path.Join(dir, "netbox.db") {
			t.Fatalf("\nwanted:\ndefault database under config dir\ngot:\n%s", app.Config.DatabasePath)
		}
	})

	t.Run("should keep values across reloads", func(t *testing.T) {
		dir := path.Join(t.TempDir(), "netbox-config")

		app, err := New(WithConfigDir(dir))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := app.Config.SetAuthToken("s3cret"); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		reloaded, err := New(WithConfigDir(dir))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if reloaded.Config.AuthToken != "s3cret" {
			t.Fatalf("\nwanted:\ns3cret\ngot:\n%s", reloaded.Config.AuthToken)
		}
	})

	t.Run("should reject a negative retention window", func(t *testing.T) {
		app, err := New(WithConfigDir(path.Join(t.TempDir(), "cfg")))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := app.Config.SetChangelogRetention(-1); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestWithLogger(t *testing.T) {
	t.Run("should use the provided logger", func(t *testing.T) {
		logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

		app, err := New(WithLogger(logger))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if app.Logger.GetLevel() != zerolog.WarnLevel {
			t.Fatalf("\nwanted:\nwarn level\ngot:\n%s", app.Logger.GetLevel())
		}
	})
}
