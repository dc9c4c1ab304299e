package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"med-tracker/internal/domain/users"

	"github.com/jackc/pgx/v5/pgconn"
)

// código de error de Postgres para unique_violation
const uniqueViolation = "23505"

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

const userColumns = `
	id, email, password_hash, enabled,
	confirmation_token, confirmation_expires_at,
	created_at, updated_at`

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.Enabled,
		toNullString(u.ConfirmationToken),
		toNullDate(u.ConfirmationExpiresAt),
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapUserErr(err, u.Email)
}

func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET
			email = $2,
			password_hash = $3,
			enabled = $4,
			confirmation_token = $5,
			confirmation_expires_at = $6,
			updated_at = $7
		WHERE id = $1
	`,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.Enabled,
		toNullString(u.ConfirmationToken),
		toNullDate(u.ConfirmationExpiresAt),
		u.UpdatedAt,
	)
	if err != nil {
		return mapUserErr(err, u.Email)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, strings.TrimSpace(id))
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}

func (r *UsersRepo) GetByConfirmationToken(ctx context.Context, token string) (users.User, error) {
	if token == "" {
		return users.User{}, users.ErrNotFound
	}
	return r.getOne(ctx, `WHERE confirmation_token = $1`, token)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) getOne(ctx context.Context, where string, arg string) (users.User, error) {
	if arg == "" {
		return users.User{}, users.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)

	var u users.User
	var token sql.NullString
	var expires sql.NullTime
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Enabled,
		&token,
		&expires,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}

	u.ConfirmationToken = token.String
	if expires.Valid {
		t := expires.Time
		u.ConfirmationExpiresAt = &t
	}
	return u, nil
}

func mapUserErr(err error, email string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", users.ErrDuplicate, email)
	}
	return err
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
