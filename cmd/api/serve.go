package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"med-tracker/internal/router"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		if log != nil {
			log.Error("config", map[string]any{"error": err})
		}
		return err
	}

	db, dialect, err := openDB(cfg)
	if err != nil {
		log.Error("open database", map[string]any{"driver": cfg.DBDriver, "error": err})
		return err
	}
	if db != nil {
		defer db.Close()

		// sqlite es single-node: migramos al arrancar. Postgres usa `migrate up`.
		if dialect == router.DialectSQLite {
			m, err := migrator(db, dialect)
			if err != nil {
				return err
			}
			applied, err := m.Up(ctx)
			if err != nil {
				log.Error("migrate", map[string]any{"error": err})
				return err
			}
			log.Info("migrations applied", map[string]any{"count": len(applied)})
		}
	}

	mail, err := buildMailer(cfg, log)
	if err != nil {
		return err
	}
	tokens, err := buildTokens(cfg)
	if err != nil {
		return err
	}
	pub, err := buildPublisher(cfg, log)
	if err != nil {
		return err
	}

	opts := router.Options{
		DB:      db,
		Dialect: dialect,
		Mailer:  mail,
		Logger:  log,
	}
	// interfaces con puntero nil no son nil: solo se asignan si existen
	if tokens != nil {
		opts.TokenVerifier = tokens
		opts.TokenIssuer = tokens
	} else {
		log.Warn("dev auth enabled: X-Debug-User-ID is trusted, /auth/login disabled", nil)
	}
	if pub != nil {
		defer pub.Close()
		opts.Publisher = pub
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "env": cfg.Env, "db": cfg.DBDriver})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"error": err})
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
