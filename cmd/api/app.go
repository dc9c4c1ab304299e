package main

import (
	"database/sql"
	"fmt"
	"time"

	jwtauth "med-tracker/internal/adapters/auth/jwt"
	"med-tracker/internal/adapters/events/kafka"
	"med-tracker/internal/adapters/mail/httpapi"
	"med-tracker/internal/adapters/mail/smtp"
	pg "med-tracker/internal/adapters/storage/postgres"
	lite "med-tracker/internal/adapters/storage/sqlite"
	"med-tracker/internal/config"
	"med-tracker/internal/domain/users"
	"med-tracker/internal/platform/logger"
	"med-tracker/internal/platform/mailer"
	"med-tracker/internal/platform/migrate"
	"med-tracker/internal/router"
)

func loadConfig() (*config.Config, *logger.ZeroLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, log, nil
}

// openDB abre la base según DB_DRIVER. Con memory devuelve nil.
func openDB(cfg *config.Config) (*sql.DB, router.Dialect, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := pg.Open(cfg.DBDSN)
		return db, router.DialectPostgres, err
	case "sqlite":
		db, err := lite.Open(cfg.SQLitePath)
		return db, router.DialectSQLite, err
	default:
		return nil, "", nil
	}
}

func migrator(db *sql.DB, dialect router.Dialect) (*migrate.Runner, error) {
	if dialect == router.DialectSQLite {
		return lite.Migrator(db)
	}
	return pg.Migrator(db)
}

func buildMailer(cfg *config.Config, log logger.Logger) (*mailer.Mailer, error) {
	var sender mailer.Sender
	switch cfg.MailDriver {
	case "smtp":
		sender = smtp.New(smtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	case "http":
		s, err := httpapi.New(httpapi.Config{URL: cfg.MailAPIURL, APIKey: cfg.MailAPIKey, Timeout: 10 * time.Second})
		if err != nil {
			return nil, err
		}
		sender = s
	default:
		sender = mailer.LogSender{Log: log}
	}

	return mailer.New(sender, log.With(map[string]any{"component": "mailer"}), mailer.Options{
		From:          cfg.MailFrom,
		AppName:       cfg.AppName,
		PublicBaseURL: cfg.PublicBaseURL,
		TokenTTL:      users.ConfirmationTokenTTL,
	}), nil
}

func buildTokens(cfg *config.Config) (*jwtauth.Tokens, error) {
	if cfg.DevAuth() {
		return nil, nil
	}
	return jwtauth.New(jwtauth.Config{Secret: cfg.JWTSecret, Issuer: cfg.AppName, TTL: cfg.JWTTTL})
}

func buildPublisher(cfg *config.Config, log logger.Logger) (*kafka.Publisher, error) {
	if len(cfg.Brokers()) == 0 {
		return nil, nil
	}
	return kafka.NewPublisher(kafka.Config{Brokers: cfg.Brokers(), Topic: cfg.KafkaTopic}, log.With(map[string]any{"component": "events"}))
}
