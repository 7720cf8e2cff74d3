package netbox

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the application settings persisted under the config
// directory. Fields map to the YAML config file managed by viper.
type Config struct {
	viper         *viper.Viper
	ConfigDir     string `mapstructure:"config_dir"`     // Current config dir
	ListenAddress string `mapstructure:"listen_address"` // API bind address
	ListenPort    string `mapstructure:"listen_port"`    // API bind port
	DatabasePath  string `mapstructure:"database_path"`  // SQLite database file
	AuthToken     string `mapstructure:"auth_token"`     // Static bearer token; empty disables auth
	LogLevel      string `mapstructure:"log_level"`
	ScriptTimeout int    `mapstructure:"script_timeout_seconds"` // Per-run Lua budget
	WebhookQueue  int    `mapstructure:"webhook_queue_size"`
	ChangelogDays int    `mapstructure:"changelog_retention_days"` // 0 keeps changes forever
}

// SetAuthToken updates the API token and persists the config file.
func (cfg *Config) SetAuthToken(token string) error {
	cfg.AuthToken = token
	cfg.viper.Set("auth_token", token)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("saving configuration : %w", err)
	}
	return nil
}

// SetChangelogRetention updates the changelog retention window and persists
// the config file.
func (cfg *Config) SetChangelogRetention(days int) error {
	if days < 0 {
		return fmt.Errorf("retention days cannot be negative, got %d", days)
	}
	cfg.ChangelogDays = days
	cfg.viper.Set("changelog_retention_days", days)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("saving configuration : %w", err)
	}
	return nil
}
