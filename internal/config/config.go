package config

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "PIPELINEDASH_CONFIG"
	databaseDSNEnv  = "DATABASE_DSN"
	supabaseURLEnv  = "SUPABASE_URL"
	serviceKeyEnv   = "SUPABASE_SERVICE_KEY"
	functionsURLEnv = "FUNCTIONS_URL"
	redisURLEnv     = "REDIS_URL"
	logLevelEnv     = "LOG_LEVEL"
	httpAddrEnv     = "HTTP_ADDR"
)

// Store drivers.
const (
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
	DriverMemory    = "memory"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Functions FunctionsConfig `yaml:"functions"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Redis     RedisConfig     `yaml:"redis"`
	HTTP      HTTPConfig      `yaml:"http"`
	Commands  []CommandConfig `yaml:"commands"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Color  string `yaml:"color"`
}

// StoreConfig picks the pipeline store backend.
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"serviceKey"`
	Fixture    string `yaml:"fixture"`
}

// FunctionsConfig describes how remote functions are reached.
type FunctionsConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// DashboardConfig tunes the refresh loop and the command console.
type DashboardConfig struct {
	RefreshSeconds      int `yaml:"refreshSeconds"`
	SuccessResetSeconds int `yaml:"successResetSeconds"`
	FailureResetSeconds int `yaml:"failureResetSeconds"`
	LogCapacity         int `yaml:"logCapacity"`
}

// RedisConfig enables event publishing when URL is set.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// HTTPConfig is the listen address of the serve command.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// CommandConfig registers an extra remote function, or overrides the
// trace tables of a built-in one.
type CommandConfig struct {
	Name         string `yaml:"name"`
	LastRunTable string `yaml:"lastRunTable"`
	LastRunField string `yaml:"lastRunField"`
	WatchTable   string `yaml:"watchTable"`
	WatchField   string `yaml:"watchField"`
	WatchLabel   string `yaml:"watchLabel"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An explicit path takes precedence over PIPELINEDASH_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			slog.Warn("config: cannot read file, falling back to defaults", "path", path, "error", err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				slog.Warn("config: cannot parse file, falling back to defaults", "path", path, "error", err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.inferDriver()

	return cfg
}

// SuccessDelay is how long a successful command stays highlighted.
func (d DashboardConfig) SuccessDelay() time.Duration {
	return time.Duration(d.SuccessResetSeconds) * time.Second
}

// FailureDelay is how long a failed command stays highlighted.
func (d DashboardConfig) FailureDelay() time.Duration {
	return time.Duration(d.FailureResetSeconds) * time.Second
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Store.DSN = v
	}

	if v := os.Getenv(supabaseURLEnv); v != "" {
		c.Store.URL = v
		if c.Functions.URL == "" {
			c.Functions.URL = v + "/functions/v1"
		}
	}

	if v := os.Getenv(serviceKeyEnv); v != "" {
		c.Store.ServiceKey = v
		if c.Functions.APIKey == "" {
			c.Functions.APIKey = v
		}
	}

	if v := os.Getenv(functionsURLEnv); v != "" {
		c.Functions.URL = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Redis.URL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

// inferDriver picks a backend when none was configured.
func (c *Config) inferDriver() {
	if c.Store.Driver != "" {
		return
	}
	switch {
	case c.Store.DSN != "":
		c.Store.Driver = DriverPostgres
	case c.Store.URL != "":
		c.Store.Driver = DriverPostgREST
	default:
		c.Store.Driver = DriverMemory
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.Logging.Color != "" {
		base.Logging.Color = override.Logging.Color
	}

	if override.Store.Driver != "" {
		base.Store.Driver = override.Store.Driver
	}
	if override.Store.DSN != "" {
		base.Store.DSN = override.Store.DSN
	}
	if override.Store.URL != "" {
		base.Store.URL = override.Store.URL
	}
	if override.Store.ServiceKey != "" {
		base.Store.ServiceKey = override.Store.ServiceKey
	}
	if override.Store.Fixture != "" {
		base.Store.Fixture = override.Store.Fixture
	}

	if override.Functions.URL != "" {
		base.Functions.URL = override.Functions.URL
	}
	if override.Functions.APIKey != "" {
		base.Functions.APIKey = override.Functions.APIKey
	}
	if override.Functions.Timeout > 0 {
		base.Functions.Timeout = override.Functions.Timeout
	}

	if override.Dashboard.RefreshSeconds > 0 {
		base.Dashboard.RefreshSeconds = override.Dashboard.RefreshSeconds
	}
	if override.Dashboard.SuccessResetSeconds > 0 {
		base.Dashboard.SuccessResetSeconds = override.Dashboard.SuccessResetSeconds
	}
	if override.Dashboard.FailureResetSeconds > 0 {
		base.Dashboard.FailureResetSeconds = override.Dashboard.FailureResetSeconds
	}
	if override.Dashboard.LogCapacity > 0 {
		base.Dashboard.LogCapacity = override.Dashboard.LogCapacity
	}

	if override.Redis.URL != "" {
		base.Redis.URL = override.Redis.URL
	}
	if override.Redis.Channel != "" {
		base.Redis.Channel = override.Redis.Channel
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if len(override.Commands) > 0 {
		base.Commands = override.Commands
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text", Color: "auto"},
		Functions: FunctionsConfig{Timeout: 5 * time.Minute},
		Dashboard: DashboardConfig{
			RefreshSeconds:      30,
			SuccessResetSeconds: 2,
			FailureResetSeconds: 3,
			LogCapacity:         50,
		},
		Redis: RedisConfig{Channel: "pipelinedash:events"},
		HTTP:  HTTPConfig{Addr: ":8080"},
	}
}
