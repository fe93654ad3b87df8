package config // package config loads application configuration from environment variables

import (
	"errors"  // distinguishes a missing .env file from a broken one
	"fmt"     // wraps configuration errors
	"io/fs"   // fs.ErrNotExist for the optional .env file
	"strings" // trims required values before the blank check
	"time"    // durations for token lifetime and pool settings

	"github.com/ilyakaznacheev/cleanenv" // binds environment variables onto struct tags
	"github.com/joho/godotenv"           // loads a local .env file when present
)

// Config holds all runtime configuration values. Each leaf field maps to
// one environment variable through its env tag; env-default supplies the
// value used when the variable is unset.
type Config struct {
	Env         string   `env:"APP_ENV" env-default:"dev"`                      // application environment (dev/test/prod)
	Port        string   `env:"APP_PORT" env-default:"8080"`                    // HTTP port to listen on
	BodyLimit   string   `env:"BODY_LIMIT" env-default:"1M"`                    // max request body size (echo BodyLimit syntax)
	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"*"` // allowed CORS origins

	DB        DBConfig
	Auth      AuthConfig
	Log       LogConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Broker    BrokerConfig
	RateLimit RateLimitConfig `env-prefix:"RATE_LIMIT_"`      // limiter applied to every /api route
	AuthLimit RateLimitConfig `env-prefix:"AUTH_RATE_LIMIT_"` // stricter limiter on register/login
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User            string        `env:"DB_USER" env-required:"true"`        // database username
	Pass            string        `env:"DB_PASS"`                            // database password (empty allowed)
	Host            string        `env:"DB_HOST" env-default:"127.0.0.1"`    // database host
	Port            string        `env:"DB_PORT" env-default:"3306"`         // database port
	Name            string        `env:"DB_NAME" env-required:"true"`        // database name
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"` // pool size
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" env-default:"true"` // create missing tables on startup
}

// AuthConfig covers password hashing and session tokens.
type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET" env-required:"true"` // secret used to sign JWTs
	TokenTTL   time.Duration `env:"JWT_TTL" env-default:"168h"`     // session token lifetime (7 days)
	BcryptCost int           `env:"BCRYPT_COST" env-default:"10"`   // bcrypt cost factor
}

// LogConfig selects the logger level, format and optional rotating file.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`
	Format     string `env:"LOG_FORMAT" env-default:"json"` // json or text
	File       string `env:"LOG_FILE"`                      // also write to this file when set
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" env-default:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" env-default:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" env-default:"14"`
}

// BrokerConfig points at RabbitMQ. An empty URL disables event publishing.
type BrokerConfig struct {
	URL   string `env:"RABBITMQ_URL"`
	Queue string `env:"RABBITMQ_QUEUE" env-default:"catalog.activity"`
}

// Load reads an optional .env file and then the environment. Missing
// required variables are reported as an error so main can exit with a
// clear message.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.requireNonBlank(); err != nil {
		return Config{}, err
	}
	cfg.RateLimit.normalize(defaultAPILimit)
	cfg.AuthLimit.normalize(defaultAuthLimit)
	return cfg, nil
}

// requireNonBlank rejects required variables that are set but empty.
// cleanenv only checks presence, and an empty JWT secret would let anyone
// sign tokens.
func (c Config) requireNonBlank() error {
	required := []struct{ key, val string }{
		{"DB_USER", c.DB.User},
		{"DB_NAME", c.DB.Name},
		{"JWT_SECRET", c.Auth.JWTSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("config: missing required env var: %s", r.key)
		}
	}
	return nil
}
