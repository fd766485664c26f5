package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"8080"`
		Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	}

	Database struct {
		// Full DSN wins when set; otherwise the discrete fields are used.
		URL      string `env:"DATABASE_URL"`
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     string `env:"DB_PORT" envDefault:"5432"`
		User     string `env:"DB_USER" envDefault:"postgres"`
		Password string `env:"DB_PASSWORD"`
		Name     string `env:"DB_NAME" envDefault:"proplens"`
		SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     string `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	JWT struct {
		Secret string `env:"JWT_SECRET,required"`
	}

	Gemini struct {
		APIKey  string `env:"GEMINI_API_KEY,required"`
		BaseURL string `env:"GEMINI_API_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/models"`
		Model   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash-001"`
		// Outbound request timeout in seconds.
		TimeoutSeconds int `env:"GEMINI_TIMEOUT" envDefault:"60"`
	}

	RateLimit struct {
		// AI analysis calls allowed per user per window.
		AILimit         int `env:"AI_RATE_LIMIT" envDefault:"30"`
		AIWindowMinutes int `env:"AI_RATE_WINDOW_MINUTES" envDefault:"60"`
	}
}

// GeminiTimeout returns the outbound AI request timeout.
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSeconds) * time.Second
}

// AIRateWindow returns the fixed rate-limit window for AI endpoints.
func (c *Config) AIRateWindow() time.Duration {
	return time.Duration(c.RateLimit.AIWindowMinutes) * time.Minute
}

// Load reads .env when present and parses configuration from the
// environment.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
