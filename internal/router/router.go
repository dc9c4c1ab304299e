package router

import (
	"database/sql"
	"net/http"

	mem "med-tracker/internal/adapters/storage/memory"
	pg "med-tracker/internal/adapters/storage/postgres"
	lite "med-tracker/internal/adapters/storage/sqlite"
	"med-tracker/internal/domain/medications"
	"med-tracker/internal/domain/users"
	"med-tracker/internal/middleware"
	"med-tracker/internal/platform/logger"
	"med-tracker/internal/ports/auth"
	"med-tracker/internal/ports/events"

	_ "med-tracker/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Options struct {
	TokenVerifier auth.Verifier // puede ser nil (modo dev: X-Debug-User-ID)
	TokenIssuer   auth.Issuer   // nil => /auth/login responde 501

	// Opcional: si viene, usa SQL según Dialect. Si no, in-memory.
	DB      *sql.DB
	Dialect Dialect

	Mailer    users.ConfirmationSender
	Publisher events.Publisher
	Logger    logger.Logger

	// 0 = bcrypt.DefaultCost; los tests usan bcrypt.MinCost
	BcryptCost int
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.Authenticate(opts.TokenVerifier, log))
	r.Use(middleware.RequestLog(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		medRepo  medications.Repository
		userRepo users.Repository
	)

	switch {
	case opts.DB != nil && opts.Dialect == DialectSQLite:
		medRepo = lite.NewMedicationsRepo(opts.DB)
		userRepo = lite.NewUsersRepo(opts.DB)
	case opts.DB != nil:
		medRepo = pg.NewMedicationsRepo(opts.DB)
		userRepo = pg.NewUsersRepo(opts.DB)
	default:
		medRepo = mem.NewMedicationRepo()
		userRepo = mem.NewUserRepo()
	}

	// Services por módulo
	medsSvc := medications.NewService(medRepo, opts.Publisher)
	usersSvc := users.NewService(userRepo, users.Options{
		Medications: medsSvc,
		Mailer:      opts.Mailer,
		Publisher:   opts.Publisher,
		BcryptCost:  opts.BcryptCost,
	})

	// Rutas por módulo
	medications.RegisterRoutes(r, medsSvc)
	users.RegisterRoutes(r, usersSvc, opts.TokenIssuer)

	return r
}
