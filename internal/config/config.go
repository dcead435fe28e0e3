package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config holds all application settings
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Local    LocalConfig
	Sync     SyncConfig
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the unified Redis connection settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	// Mode: Redis deployment mode ("single", "sentinel", "cluster"). Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs: list of Redis addresses (host:port), used by every mode.
	// For 'single', the first address wins when the list is not empty.
	Addrs []string `mapstructure:"addrs"`

	// Addr: alternative address for 'single' mode, used when Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Redis master name (sentinel mode only)
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: reconnect attempts (-1 for unlimited). Defaults to 0 (no retries).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: minimum interval between attempts, in milliseconds.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: maximum interval between attempts, in milliseconds.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig holds the access-token settings
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expirationHrs"`
}

// LocalConfig holds the on-device store settings
type LocalConfig struct {
	// Path: SQLite file backing snapshots and the offline queue.
	Path string `mapstructure:"path"`
}

// SyncConfig holds the offline-queue drain scheduling
type SyncConfig struct {
	// IntervalSec: seconds between periodic drain passes.
	IntervalSec int `mapstructure:"interval_sec"`

	// BackoffMinSec / BackoffMaxSec: bounds of the exponential backoff
	// applied after a recoverable upload failure, in seconds.
	BackoffMinSec int `mapstructure:"backoff_min_sec"`
	BackoffMaxSec int `mapstructure:"backoff_max_sec"`

	// ProbeIntervalSec: seconds between connectivity probes.
	ProbeIntervalSec int `mapstructure:"probe_interval_sec"`
}

// PostgresConnectionString builds the PostgreSQL DSN
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads the configuration from a file, with explicit environment
// variable overrides.
func Load(configPath string) (*Config, error) {
	vip := viper.New() // fresh instance, avoid global viper state

	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 15)
	vip.SetDefault("local.path", "idoneo.db")
	vip.SetDefault("sync.interval_sec", 60)
	vip.SetDefault("sync.backoff_min_sec", 5)
	vip.SetDefault("sync.backoff_max_sec", 300)
	vip.SetDefault("sync.probe_interval_sec", 30)

	// Bind environment variables explicitly, section by section
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")

	vip.BindEnv("local.path", "LOCAL_STORE_PATH")

	vip.BindEnv("sync.interval_sec", "SYNC_INTERVAL_SEC")
	vip.BindEnv("sync.backoff_min_sec", "SYNC_BACKOFF_MIN_SEC")
	vip.BindEnv("sync.backoff_max_sec", "SYNC_BACKOFF_MAX_SEC")
	vip.BindEnv("sync.probe_interval_sec", "SYNC_PROBE_INTERVAL_SEC")

	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// A missing file is fine, env vars and defaults still apply
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Config file '%s' not found, using environment variables/defaults.", configPath)
			} else {
				log.Printf("Warning: failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Loaded configuration values ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("Local Store Path: %s", cfg.Local.Path)
		log.Printf("Sync Interval: %ds", cfg.Sync.IntervalSec)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------")
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if os.Getenv("GIN_MODE") == "release" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}

	return &cfg, nil
}
