package netbox

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sashashura/netbox/domain"
	"github.com/sashashura/netbox/scripts"
	"github.com/sashashura/netbox/webhook"
)

// WithConfigDir configures the app to use the specified configuration
// directory. It creates the directory if it doesn't exist and initializes
// the configuration file using viper.
func WithConfigDir(appConfigDir string) func(*App) error {
	return func(app *App) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(appConfigDir, 0700); err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}
		app.ConfigDir = appConfigDir

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(appConfigDir)
		v.SetDefault("listen_address", "127.0.0.1")
		v.SetDefault("listen_port", "8000")
		v.SetDefault("database_path", path.Join(appConfigDir, "netbox.db"))
		v.SetDefault("log_level", "info")
		v.SetDefault("script_timeout_seconds", 5)
		v.SetDefault("webhook_queue_size", 256)
		v.SetDefault("changelog_retention_days", 0)

		err = v.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				if err := v.SafeWriteConfig(); err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}

		app.Config = &Config{viper: v}
		if err := v.Unmarshal(app.Config); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}
		app.Config.ConfigDir = appConfigDir

		if err := v.WriteConfig(); err != nil {
			return fmt.Errorf("writing config after unmarshalling : %w", err)
		}
		return nil
	}
}

// WithRepo sets the repository, closing any previously configured one.
func WithRepo(repo domain.Repository) func(*App) error {
	return func(app *App) error {
		if app.Repo != nil {
			if err := app.Repo.Close(); err != nil {
				return err
			}
			app.Repo = nil
		}
		app.Repo = repo
		app.Importer = app.newImporter(repo)
		return nil
	}
}

// WithLogger sets the application logger.
func WithLogger(logger zerolog.Logger) func(*App) error {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

// WithScriptEngine wires a script engine with the given per-run budget.
func WithScriptEngine(timeout time.Duration) func(*App) error {
	return func(app *App) error {
		app.Scripts = scripts.NewEngine(app.Logger, timeout)
		return nil
	}
}

// WithWebhooks wires a webhook dispatcher with the given queue capacity.
func WithWebhooks(queueSize int) func(*App) error {
	return func(app *App) error {
		app.Webhooks = webhook.NewDispatcher(app.Logger, webhook.WithQueueSize(queueSize))
		return nil
	}
}
