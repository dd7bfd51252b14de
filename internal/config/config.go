package config

import (
	"fmt"
	"time"

	"github.com/gatewarden/gatewarden/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Alert     AlertConfig     `mapstructure:"alert"`
	Retention RetentionConfig `mapstructure:"retention"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	EnablePprof  bool   `mapstructure:"enable_pprof"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
}

// GetDSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	// Enabled toggles the cross-instance block mirror.
	Enabled      bool     `mapstructure:"enabled"`
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	// Brokers empty disables the audit event stream.
	Brokers      []string      `mapstructure:"brokers"`
	AuditTopic   string        `mapstructure:"audit_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// EngineConfig tunes the decision pipeline. Zero values fall back to the
// defaults in pkg/constants.
type EngineConfig struct {
	RuleCacheTTLSeconds    int `mapstructure:"rule_cache_ttl_seconds"`
	BlockCacheTTLSeconds   int `mapstructure:"block_cache_ttl_seconds"`
	FingerprintFloodLimit  int `mapstructure:"fingerprint_flood_limit"`
	LogSampleNormal        int `mapstructure:"log_sample_normal"`
	LogSampleFastReject    int `mapstructure:"log_sample_fast_reject"`
	DurableFallbackTimeout int `mapstructure:"durable_fallback_timeout_ms"`
}

type AlertConfig struct {
	// FallbackWebhookURL is used when no destination is set in the config table.
	FallbackWebhookURL string `mapstructure:"fallback_webhook_url"`
	Workers            int    `mapstructure:"workers"`
	QueueSize          int    `mapstructure:"queue_size"`
	RequestTimeout     int    `mapstructure:"request_timeout"` // in seconds
}

type RetentionConfig struct {
	// SweepInterval 0 disables the background sweeper; the admin endpoint
	// remains available either way.
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrInvalidConfig.WithMessage(fmt.Sprintf("invalid server port %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		return errors.ErrInvalidConfig.WithMessage("database host is required")
	}
	if c.Redis.Enabled && len(c.Redis.Addresses) == 0 {
		return errors.ErrInvalidConfig.WithMessage("redis enabled but no addresses configured")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AuditTopic == "" {
		return errors.ErrInvalidConfig.WithMessage("kafka brokers configured without an audit topic")
	}
	return nil
}
