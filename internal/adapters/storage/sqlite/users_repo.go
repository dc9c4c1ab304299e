package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"med-tracker/internal/domain/users"
)

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
	if err := r.ensureEmailFree(ctx, u.Email, u.ID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`
		) VALUES (?,?,?,?,?,?,?,?)
	`,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.Enabled,
		toNullString(u.ConfirmationToken),
		nullTime(u.ConfirmationExpiresAt),
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
	)
	return err
}

func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	if err := r.ensureEmailFree(ctx, u.Email, u.ID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET
			email = ?,
			password_hash = ?,
			enabled = ?,
			confirmation_token = ?,
			confirmation_expires_at = ?,
			updated_at = ?
		WHERE id = ?
	`,
		u.Email,
		u.PasswordHash,
		u.Enabled,
		toNullString(u.ConfirmationToken),
		nullTime(u.ConfirmationExpiresAt),
		formatTime(u.UpdatedAt),
		u.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.getOne(ctx, `WHERE id = ?`, strings.TrimSpace(id))
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	return r.getOne(ctx, `WHERE email = ?`, email)
}

func (r *UsersRepo) GetByConfirmationToken(ctx context.Context, token string) (users.User, error) {
	return r.getOne(ctx, `WHERE confirmation_token = ?`, token)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

// ensureEmailFree devuelve ErrDuplicate si otro usuario ya usa el email.
// Con un solo writer no hay carrera entre el SELECT y el INSERT.
func (r *UsersRepo) ensureEmailFree(ctx context.Context, email, id string) error {
	var other string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ? AND id <> ?`, email, id).Scan(&other)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("%w: %s", users.ErrDuplicate, email)
	}
}

func (r *UsersRepo) getOne(ctx context.Context, where string, arg string) (users.User, error) {
	if arg == "" {
		return users.User{}, users.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)

	var (
		u                    users.User
		token, expires       sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Enabled,
		&token,
		&expires,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}

	var err error
	u.ConfirmationToken = token.String
	if u.ConfirmationExpiresAt, err = parseNullTime(expires, timestampLayout); err != nil {
		return users.User{}, fmt.Errorf("confirmation_expires_at: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return users.User{}, fmt.Errorf("created_at: %w", err)
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return users.User{}, fmt.Errorf("updated_at: %w", err)
	}
	return u, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
