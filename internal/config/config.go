package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPAddr  string    `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	Game      Game      `yaml:"game"`
	Auth      Auth      `yaml:"auth"`
	Redis     Redis     `yaml:"redis"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type Game struct {
	OpponentDelay   time.Duration `yaml:"opponent-delay" env:"OPPONENT_DELAY" env-default:"1s"`
	SessionIdleTTL  time.Duration `yaml:"session-idle-ttl" env:"SESSION_IDLE_TTL" env-default:"30m"`
	JanitorInterval time.Duration `yaml:"janitor-interval" env:"SESSION_JANITOR_INTERVAL" env-default:"1m"`
	MaxSessions     int           `yaml:"max-sessions" env:"MAX_SESSIONS" env-default:"0"`
}

type Auth struct {
	// An empty secret makes the server generate one at startup.
	JWTSecret string        `yaml:"jwt-secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token-ttl" env:"JWT_TTL" env-default:"24h"`
}

type Redis struct {
	// Empty disables event publishing.
	Addr string `yaml:"addr" env:"REDIS_ADDR"`
}

type Telemetry struct {
	ServiceName  string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"tic-tac-toe-solo"`
	OTLPEndpoint string `yaml:"otlp-endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	StdoutTraces bool   `yaml:"stdout-traces" env:"OTEL_STDOUT_TRACES" env-default:"false"`
}

// Load reads the config file at path, if any, then applies environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}
	return config
}

func (c *Config) validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Game.OpponentDelay < 0 {
		return fmt.Errorf("opponent delay must not be negative, got %s", c.Game.OpponentDelay)
	}
	if c.Game.MaxSessions < 0 {
		return fmt.Errorf("max sessions must not be negative, got %d", c.Game.MaxSessions)
	}
	return nil
}

// ParseLevel maps a level name such as "debug" or "WARN" to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
