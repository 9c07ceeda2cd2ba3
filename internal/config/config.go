package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "MARKET"

type Config struct {
	// Identity the asset registry must approve to move listed assets.
	MarketplaceAddress string `mapstructure:"marketplace_address"`

	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// memory, redis or mysql; also selects the payout sink
	StoreDriver string `mapstructure:"store_driver"`
	// memory or redis
	RegistryDriver string `mapstructure:"registry_driver"`

	MySQLDSN      string `mapstructure:"mysql_dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPoolSize int    `mapstructure:"redis_pool_size"`

	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`

	MetricsNamespace string `mapstructure:"metrics_namespace"`
}

func DefaultConfig() Config {
	return Config{
		MarketplaceAddress: "marketplace",
		HTTPAddr:           ":8080",
		GRPCAddr:           ":50051",
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "json",
		StoreDriver:        "mysql",
		RegistryDriver:     "redis",
		MySQLDSN:           "root:root@tcp(localhost:3306)/marketplace?parseTime=true",
		RedisAddr:          "localhost:6379",
		RedisPoolSize:      100,
		Workers:            4,
		QueueSize:          10000,
		MetricsNamespace:   "marketplace",
	}
}

// SetDefaults registers every default on v so env vars and config files
// can override them.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("marketplace_address", d.MarketplaceAddress)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("grpc_addr", d.GRPCAddr)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("store_driver", d.StoreDriver)
	v.SetDefault("registry_driver", d.RegistryDriver)
	v.SetDefault("mysql_dsn", d.MySQLDSN)
	v.SetDefault("redis_addr", d.RedisAddr)
	v.SetDefault("redis_pool_size", d.RedisPoolSize)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("queue_size", d.QueueSize)
	v.SetDefault("metrics_namespace", d.MetricsNamespace)
}

// Load reads configuration from defaults, an optional file and MARKET_*
// environment variables, in increasing order of precedence.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.ValidateBasic(); err != nil {
		return Config{}, fmt.Errorf("error in config: %w", err)
	}
	return cfg, nil
}

func (c Config) ValidateBasic() error {
	if c.MarketplaceAddress == "" {
		return errors.New("marketplace_address is required")
	}
	switch c.StoreDriver {
	case "memory", "redis", "mysql":
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}
	switch c.RegistryDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown registry_driver %q", c.RegistryDriver)
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("queue_size must be positive")
	}
	return nil
}

func (c Config) NeedsRedis() bool {
	return c.StoreDriver == "redis" || c.RegistryDriver == "redis"
}
