package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds gateway settings read from the environment.
type Config struct {
	Port        string `env:"GATEWAY_PORT" envDefault:"8081"`
	RegionsFile string `env:"REGIONS_FILE"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	NATS NATSConfig `envPrefix:"NATS_"`

	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// NATSConfig configures the optional JetStream event publisher. An empty URL
// disables publishing.
type NATSConfig struct {
	URL           string        `env:"URL"`
	StreamName    string        `env:"STREAM" envDefault:"SESSION_EVENTS"`
	SubjectPrefix string        `env:"SUBJECT_PREFIX" envDefault:"session.events"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT" envDefault:"2s"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(level, format string, out io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	case "console", "":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}
