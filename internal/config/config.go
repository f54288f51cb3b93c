package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var errNonPositiveTimeout = errors.New("websocket timeouts must be positive")

type Config struct {
	LogLevel          string      `yaml:"log-level"           env:"LOG_LEVEL"           env-default:"info"`
	HTTPPort          string      `yaml:"http-port"           env:"HTTP_PORT"           env-default:"9090"`
	Timezone          string      `yaml:"timezone"            env:"TIMEZONE"            env-default:"Asia/Tokyo"`
	Redis             Redis       `yaml:"redis"`
	SQLiteStoragePath string      `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./data/accounts.db"`
	JWTSecretKey      string      `yaml:"jwt-secret-key"      env:"JWT_SECRET_KEY"      env-required:"true"`
	Persistence       Persistence `yaml:"persistence"`
	Websocket         Websocket   `yaml:"websocket"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Persistence bounds the retries of background room writes.
type Persistence struct {
	MaxRetries      uint64        `yaml:"max-retries"      env:"PERSISTENCE_MAX_RETRIES"      env-default:"5"`
	InitialInterval time.Duration `yaml:"initial-interval" env:"PERSISTENCE_INITIAL_INTERVAL" env-default:"100ms"`
}

type Websocket struct {
	WriteWait  time.Duration `yaml:"write-wait"  env:"WEBSOCKET_WRITE_WAIT"  env-default:"10s"`
	PongWait   time.Duration `yaml:"pong-wait"   env:"WEBSOCKET_PONG_WAIT"   env-default:"60s"`
	SendBuffer int           `yaml:"send-buffer" env:"WEBSOCKET_SEND_BUFFER" env-default:"64"`
	ReadLimit  int64         `yaml:"read-limit"  env:"WEBSOCKET_READ_LIMIT"  env-default:"4096"`
}

// Load reads the yaml file at path; environment variables override it.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Config) validate() error {
	if that.Websocket.PongWait <= 0 || that.Websocket.WriteWait <= 0 {
		return errNonPositiveTimeout
	}

	if that.Websocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive, got %d", that.Websocket.SendBuffer)
	}

	if _, err := time.LoadLocation(that.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", that.Timezone, err)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
