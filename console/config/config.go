package config

import (
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/equipment-lending/pkg/logger"
)

type API struct {
	BaseURL string        `yaml:"baseURL" envconfig:"CONSOLE_API_URL" default:"http://localhost:8080/api"`
	Timeout time.Duration `yaml:"timeout" envconfig:"CONSOLE_API_TIMEOUT" default:"30s"`
}

type Config struct {
	API          API
	TokenFile    string        `yaml:"tokenFile" envconfig:"CONSOLE_TOKEN_FILE" default:".lending-token"`
	PollInterval time.Duration `yaml:"pollInterval" envconfig:"POLL_INTERVAL" default:"1m"`
	UserCacheTTL time.Duration `yaml:"userCacheTTL" envconfig:"USER_CACHE_TTL" default:"5m"`
	Log          logger.Log    `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Unlike the services it is not
// printed, stdout belongs to the console.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
	})
	return cfg
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

// WithLogSink keeps log lines out of the interactive output.
func WithLogSink(path string) Option {
	return func(c *Config) {
		c.Log.Sink = path
	}
}
