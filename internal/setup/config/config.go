package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// Current version of the config files.
const (
	CurrentCommonVersion = 1
	CurrentWorkerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Worker WorkerConfig
}

// CommonConfig contains configuration shared by all binaries.
type CommonConfig struct {
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	App        App        `koanf:"app"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	SMTP       SMTP       `koanf:"smtp"`
	WhatsApp   WhatsApp   `koanf:"whatsapp"`
	SMS        SMS        `koanf:"sms"`
}

// WorkerConfig contains digest worker specific configuration.
type WorkerConfig struct {
	Version      int    `koanf:"version"`
	StartupDelay int    `koanf:"startup_delay"` // Startup delay in milliseconds
	Digest       Digest `koanf:"digest"`
}

// Debug contains debug-related configuration.
type Debug struct {
	LogLevel      string `koanf:"log_level"`        // Log level (debug, info, warn, error)
	MaxLogsToKeep int    `koanf:"max_logs_to_keep"` // Maximum log sessions to keep
	EnablePprof   bool   `koanf:"enable_pprof"`     // Enable pprof debugging
	PprofPort     int    `koanf:"pprof_port"`       // pprof server port
}

// App contains application-level settings.
type App struct {
	BaseURL string `koanf:"base_url"` // Public base URL for preference links
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`           // Database hostname
	Port         int    `koanf:"port"`           // Database port
	User         string `koanf:"user"`           // Database username
	Password     string `koanf:"password"`       // Database password
	DBName       string `koanf:"db_name"`        // Database name
	MaxOpenConns int    `koanf:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `koanf:"max_idle_conns"` // Maximum idle connections
	MaxLifetime  int    `koanf:"max_lifetime"`   // Connection lifetime in minutes
	MaxIdleTime  int    `koanf:"max_idle_time"`  // Idle timeout in minutes
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`     // Redis hostname
	Port     int    `koanf:"port"`     // Redis port
	Username string `koanf:"username"` // Redis username
	Password string `koanf:"password"` // Redis password
}

// SMTP contains email sender configuration.
type SMTP struct {
	Host      string `koanf:"host"`       // SMTP server hostname
	Port      int    `koanf:"port"`       // SMTP server port
	Username  string `koanf:"username"`   // SMTP username
	Password  string `koanf:"password"`   // SMTP password
	FromName  string `koanf:"from_name"`  // Sender display name
	FromEmail string `koanf:"from_email"` // Sender address
}

// WhatsApp contains WhatsApp Business API configuration.
type WhatsApp struct {
	APIURL      string `koanf:"api_url"`      // Messages endpoint URL
	AccessToken string `koanf:"access_token"` // Bearer token
}

// SMS contains SMS gateway configuration.
type SMS struct {
	APIURL string `koanf:"api_url"` // Gateway endpoint URL
	APIKey string `koanf:"api_key"` // Gateway API key
	Sender string `koanf:"sender"`  // Sender ID
}

// Digest contains digest sweep configuration.
type Digest struct {
	BatchSize     int `koanf:"batch_size"`     // Maximum jobs claimed per sweep
	SweepInterval int `koanf:"sweep_interval"` // Minutes between sweeps
	CacheTTL      int `koanf:"cache_ttl"`      // Group cache TTL in seconds
}

// LoadConfig loads the configuration from layered TOML files, returning the
// config and the directory it was loaded from.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".tribe",
		homeDir + "/.tribe/config",
		"/etc/tribe/config",
		"/app/config",
		"config",
		".",
	}

	// Load all config files
	var usedConfigPath string

	configFiles := []string{"common", "worker"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	// Unmarshal into config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Verify versions
	if err := checkVersions(&config); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkVersions validates that the loaded config files match the versions
// this binary expects.
func checkVersions(config *Config) error {
	if config.Common.Version == 0 {
		return fmt.Errorf("%w: common.toml", ErrConfigVersionMissing)
	}

	if config.Common.Version != CurrentCommonVersion {
		return fmt.Errorf("%w: common.toml has version %d, expected %d",
			ErrConfigVersionMismatch, config.Common.Version, CurrentCommonVersion)
	}

	if config.Worker.Version == 0 {
		return fmt.Errorf("%w: worker.toml", ErrConfigVersionMissing)
	}

	if config.Worker.Version != CurrentWorkerVersion {
		return fmt.Errorf("%w: worker.toml has version %d, expected %d",
			ErrConfigVersionMismatch, config.Worker.Version, CurrentWorkerVersion)
	}

	return nil
}
