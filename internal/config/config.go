package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Classes  ClassesConfig  `envconfig:"CLASSES"`
	Session  SessionConfig  `envconfig:"SESSION"`
	Checkout CheckoutConfig `envconfig:"CHECKOUT"`
	CORS     CORSConfig     `envconfig:"CORS"`
	Log      LogConfig      `envconfig:"LOG"`
}

type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"localhost"`
	Env  string `envconfig:"ENV" default:"development"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`
}

// ClassesConfig points at the remote classes/orders service
type ClassesConfig struct {
	APIURL      string        `envconfig:"API_URL" default:"https://backend-online-classes.onrender.com"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"10s"`
	Offline     bool          `envconfig:"OFFLINE" default:"false"`
	CatalogFile string        `envconfig:"CATALOG_FILE" default:"data/classes.yaml"`
}

type SessionConfig struct {
	Secret      string        `envconfig:"SECRET" default:"your-secret-key-change-in-production"`
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT" default:"30m"`
}

// CheckoutConfig limits order submissions per client
type CheckoutConfig struct {
	RateLimit  int           `envconfig:"RATE_LIMIT" default:"10"`
	RateWindow time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if config.Classes.Timeout <= 0 {
		return nil, fmt.Errorf("CLASSES_TIMEOUT must be positive, got %s", config.Classes.Timeout)
	}
	if config.Checkout.RateLimit <= 0 || config.Checkout.RateWindow <= 0 {
		return nil, fmt.Errorf("CHECKOUT_RATE_LIMIT and CHECKOUT_RATE_WINDOW must be positive")
	}
	if !config.Classes.Offline && strings.TrimSpace(config.Classes.APIURL) == "" {
		return nil, fmt.Errorf("CLASSES_API_URL is required unless CLASSES_OFFLINE is set")
	}
	if config.IsProduction() && config.Session.Secret == "your-secret-key-change-in-production" {
		log.Warn("SESSION_SECRET is using the development default in production")
	}

	return &config, nil
}

// Address returns the listen address for the HTTP server
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// ConfigureLogging applies the log level and formatter
func (c *Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Log.Level, err)
	}
	log.SetLevel(level)

	switch strings.ToLower(c.Log.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.Log.Format)
	}
	return nil
}
