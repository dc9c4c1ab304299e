package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port      string `mapstructure:"PORT"`
	Env       string `mapstructure:"ENV"`
	AppName   string `mapstructure:"APP_NAME"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBDSN      string `mapstructure:"DB_DSN"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	MailDriver   string `mapstructure:"MAIL_DRIVER"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailAPIURL   string `mapstructure:"MAIL_API_URL"`
	MailAPIKey   string `mapstructure:"MAIL_API_KEY"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
}

var keys = []string{
	"PORT", "ENV", "APP_NAME", "LOG_LEVEL", "LOG_FORMAT",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH",
	"JWT_SECRET", "JWT_TTL", "PUBLIC_BASE_URL",
	"MAIL_DRIVER", "MAIL_FROM", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD",
	"MAIL_API_URL", "MAIL_API_KEY",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
}

// Load lee .env (si existe) y variables de entorno; el entorno gana.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "med-tracker")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_DRIVER", "memory")
	v.SetDefault("SQLITE_PATH", "data/med-tracker.db")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("MAIL_DRIVER", "log")
	v.SetDefault("MAIL_FROM", "no-reply@med-tracker.local")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("KAFKA_TOPIC", "med-tracker.events")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env es opcional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.MailDriver = strings.ToLower(strings.TrimSpace(cfg.MailDriver))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// DevAuth: sin JWT_SECRET en development se acepta X-Debug-User-ID.
func (c *Config) DevAuth() bool {
	return c.IsDev() && strings.TrimSpace(c.JWTSecret) == ""
}

func (c *Config) Brokers() []string {
	if strings.TrimSpace(c.KafkaBrokers) == "" {
		return nil
	}
	return strings.Split(c.KafkaBrokers, ",")
}

// Validate rechaza combinaciones que no pueden arrancar.
func (c *Config) Validate() error {
	if !c.IsDev() && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}

	switch c.DBDriver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("DB_DSN is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be memory, postgres or sqlite, got %q", c.DBDriver)
	}

	switch c.MailDriver {
	case "log":
	case "smtp":
		if strings.TrimSpace(c.SMTPHost) == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_DRIVER=smtp")
		}
	case "http":
		if strings.TrimSpace(c.MailAPIURL) == "" {
			return fmt.Errorf("MAIL_API_URL is required when MAIL_DRIVER=http")
		}
	default:
		return fmt.Errorf("MAIL_DRIVER must be log, smtp or http, got %q", c.MailDriver)
	}
	return nil
}
