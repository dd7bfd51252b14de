package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(log logger.Logger) (*Config, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Warn(context.Background(), "no config file found, using defaults and environment")
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// WatchConfig reloads the configuration whenever the config file changes and
// hands the fresh copy to onChange. Reload failures keep the previous config.
func WatchConfig(log logger.Logger, onChange func(*Config)) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			log.Error(context.Background(), "config reload failed, keeping previous config", err,
				logger.String("file", e.Name),
			)
			return
		}
		log.Info(context.Background(), "configuration reloaded", logger.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set default values
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30)
	v.SetDefault("alert.workers", 1)
	v.SetDefault("alert.queue_size", 256)
	v.SetDefault("alert.request_timeout", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.service_name", "gatewarden")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/gatewarden/")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GATEWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfig.WithError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
