// Package conf loads and holds the service configuration.
package conf

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings is the root configuration for the rate-intelligence service.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Database DatabaseSettings `mapstructure:"database"`
	Auth     AuthSettings     `mapstructure:"auth"`
	Alerts   AlertSettings    `mapstructure:"alerts"`
	Notices  NoticeSettings   `mapstructure:"notices"`
	Log      LogSettings      `mapstructure:"log"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the host:port listen address.
func (s ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseSettings selects and configures the storage backend.
type DatabaseSettings struct {
	// Driver is "sqlite" or "mysql".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file.
	Path string `mapstructure:"path"`
	// DSN is the mysql connection string.
	DSN string `mapstructure:"dsn"`
}

// AuthSettings configures the bearer-token middleware guarding write
// endpoints. An empty secret disables authentication.
type AuthSettings struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// AlertSettings tunes the alerting subsystem.
type AlertSettings struct {
	// HistoryRetentionDays controls change-history pruning. 0 disables it.
	HistoryRetentionDays int `mapstructure:"history_retention_days"`
	// LookupCacheTTL bounds how long channel and compset lookup tables
	// are served from cache before a refresh.
	LookupCacheTTL Duration `mapstructure:"lookup_cache_ttl"`
}

// NoticeSettings tunes the transient notice service.
type NoticeSettings struct {
	// TTL is how long a notice stays visible before auto-dismissal.
	TTL Duration `mapstructure:"ttl"`
	// WebhookURL, when set, mirrors every notice to an external endpoint.
	WebhookURL string `mapstructure:"webhook_url"`
}

// LogSettings configures logging output.
type LogSettings struct {
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() *Settings {
	return &Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 8090},
		Database: DatabaseSettings{Driver: "sqlite", Path: "rateintel.db"},
		Alerts: AlertSettings{
			HistoryRetentionDays: 90,
			LookupCacheTTL:       Duration(5 * time.Minute),
		},
		Notices: NoticeSettings{TTL: Duration(3 * time.Second)},
		Log:     LogSettings{Level: "info"},
	}
}

// Load reads configuration from the given file (optional), environment
// variables prefixed RATEINTEL_, and built-in defaults, in that order of
// precedence.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RATEINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.path", defaults.Database.Path)
	// Keys without a non-zero default still need registering: Unmarshal
	// only visits known keys, so env overrides are lost otherwise.
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("alerts.history_retention_days", defaults.Alerts.HistoryRetentionDays)
	v.SetDefault("alerts.lookup_cache_ttl", "5m")
	v.SetDefault("notices.ttl", "3s")
	v.SetDefault("notices.webhook_url", "")
	v.SetDefault("log.level", defaults.Log.Level)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	setSettings(settings)
	return settings, nil
}

var (
	settingsMu sync.RWMutex
	settings   *Settings
)

// GetSettings returns the loaded settings, or nil before Load is called.
func GetSettings() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

func setSettings(s *Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = s
}
