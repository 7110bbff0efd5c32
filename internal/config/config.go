package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Broadcast  BroadcastConfig  `mapstructure:"broadcast"`
	HTTP       HTTPConfig       `mapstructure:"http"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MinConnections int           `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

const (
	RepositoryInMemory = "inmemory"
	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"
)

type RepositoryConfig struct {
	Type string `mapstructure:"type"` // "inmemory", "postgres" или "sqlite"
}

const (
	DriverRedis = "redis"
	DriverLocal = "local"
	DriverLog   = "log"
	DriverNull  = "null"
)

type BroadcastConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	QueueSize     int    `mapstructure:"queue_size"`
	Workers       int    `mapstructure:"workers"`
}

type HTTPConfig struct {
	RateLimitRPM int      `mapstructure:"rate_limit_rpm"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

const envPrefix = "TASKS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)

	v.SetDefault("sqlite.path", "tasks.db")

	v.SetDefault("logging.development", false)

	v.SetDefault("repository.type", RepositoryInMemory)

	v.SetDefault("broadcast.driver", DriverLocal)
	v.SetDefault("broadcast.redis_addr", "localhost:6379")
	v.SetDefault("broadcast.redis_password", "")
	v.SetDefault("broadcast.redis_db", 0)
	v.SetDefault("broadcast.queue_size", 256)
	v.SetDefault("broadcast.workers", 2)

	v.SetDefault("http.rate_limit_rpm", 100)
	v.SetDefault("http.cors_origins", []string{"*"})
}

// Load читает конфиг: значения по умолчанию, затем файл (если есть), затем
// переменные окружения TASKS_*, например TASKS_DATABASE_URL.
// Пустой path - поиск config.yml в текущей директории.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения конфига: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфига: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryInMemory, RepositorySQLite:
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("для postgres нужен database.url")
		}
	default:
		return fmt.Errorf("неизвестный тип репозитория %q", c.Repository.Type)
	}

	switch c.Broadcast.Driver {
	case DriverRedis, DriverLocal, DriverLog, DriverNull:
	default:
		return fmt.Errorf("неизвестный драйвер broadcast %q", c.Broadcast.Driver)
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
