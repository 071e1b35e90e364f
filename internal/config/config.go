// Package config loads runtime settings from the environment (and an optional
// .env file) through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string         `mapstructure:"app_env"`
	LogLevel string         `mapstructure:"log_level"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	SSLMode     string `mapstructure:"sslmode"`
	MaxRetries  int    `mapstructure:"max_retries"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// DSN returns the key/value connection string understood by the postgres driver.
func (c DatabaseConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, sslmode,
	)
}

type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// Enabled is false when no address is configured; callers then fall back to
// in-process implementations.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type KafkaConfig struct {
	Broker          string `mapstructure:"broker"`
	ConsumerGroupID string `mapstructure:"consumer_group_id"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

func (c KafkaConfig) Enabled() bool { return c.Broker != "" }

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type WorkflowConfig struct {
	SideEffectTimeout      time.Duration `mapstructure:"side_effect_timeout"`
	RetryBaseDelay         time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay          time.Duration `mapstructure:"retry_max_delay"`
	StatsRecomputeInterval time.Duration `mapstructure:"stats_recompute_interval"`
}

type WorkerConfig struct {
	PoolSize           int           `mapstructure:"pool_size"`
	OutboxPollInterval time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxBatchSize    int           `mapstructure:"outbox_batch_size"`
}

// envBindings maps config keys to the flat env names operators already use.
var envBindings = map[string]string{
	"app_env":                           "APP_ENV",
	"log_level":                         "LOG_LEVEL",
	"server.port":                       "PORT",
	"server.read_timeout":               "SERVER_READ_TIMEOUT",
	"server.write_timeout":              "SERVER_WRITE_TIMEOUT",
	"server.idle_timeout":               "SERVER_IDLE_TIMEOUT",
	"server.shutdown_timeout":           "SERVER_SHUTDOWN_TIMEOUT",
	"server.cors_origins":               "CORS_ORIGINS",
	"db.host":                           "DB_HOST",
	"db.port":                           "DB_PORT",
	"db.user":                           "DB_USER",
	"db.password":                       "DB_PASSWORD",
	"db.name":                           "DB_NAME",
	"db.sslmode":                        "DB_SSLMODE",
	"db.max_retries":                    "DB_MAX_RETRIES",
	"db.auto_migrate":                   "DB_AUTO_MIGRATE",
	"redis.addr":                        "REDIS_ADDR",
	"redis.max_retries":                 "REDIS_MAX_RETRIES",
	"kafka.broker":                      "KAFKA_BROKER",
	"kafka.consumer_group_id":           "KAFKA_CONSUMER_GROUP_ID",
	"kafka.max_retries":                 "KAFKA_MAX_RETRIES",
	"auth.jwt_secret":                   "JWT_SECRET",
	"workflow.side_effect_timeout":      "SIDE_EFFECT_TIMEOUT",
	"workflow.retry_base_delay":         "RETRY_BASE_DELAY",
	"workflow.retry_max_delay":          "RETRY_MAX_DELAY",
	"workflow.stats_recompute_interval": "STATS_RECOMPUTE_INTERVAL",
	"worker.pool_size":                  "WORKER_POOL_SIZE",
	"worker.outbox_poll_interval":       "OUTBOX_POLL_INTERVAL",
	"worker.outbox_batch_size":          "OUTBOX_BATCH_SIZE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.name", "hris")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_retries", 5)
	v.SetDefault("db.auto_migrate", false)

	v.SetDefault("redis.max_retries", 5)

	v.SetDefault("kafka.consumer_group_id", "go-hris-leave-lifecycle")
	v.SetDefault("kafka.max_retries", 5)

	v.SetDefault("workflow.side_effect_timeout", 2*time.Second)
	v.SetDefault("workflow.retry_base_delay", 200*time.Millisecond)
	v.SetDefault("workflow.retry_max_delay", 30*time.Second)
	v.SetDefault("workflow.stats_recompute_interval", 5*time.Minute)

	v.SetDefault("worker.pool_size", 64)
	v.SetDefault("worker.outbox_poll_interval", 3*time.Second)
	v.SetDefault("worker.outbox_batch_size", 50)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(viper.New())
}

// LoadFrom builds a Config from an existing viper instance; tests use it to
// inject values without touching the process environment.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("config: PORT is required")
	}
	if c.Workflow.SideEffectTimeout <= 0 {
		return fmt.Errorf("config: SIDE_EFFECT_TIMEOUT must be positive")
	}
	if c.Workflow.RetryBaseDelay <= 0 || c.Workflow.RetryMaxDelay < c.Workflow.RetryBaseDelay {
		return fmt.Errorf("config: retry delays must satisfy 0 < RETRY_BASE_DELAY <= RETRY_MAX_DELAY")
	}
	if c.Worker.PoolSize <= 0 {
		return fmt.Errorf("config: WORKER_POOL_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
