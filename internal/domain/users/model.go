package users

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 64
	MaxEmailLength    = 320

	// Vigencia del token de confirmación de email.
	ConfirmationTokenTTL = 24 * time.Hour
)

// User es una cuenta de la aplicación. Solo las cuentas habilitadas
// (email confirmado) pueden operar.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Enabled      bool

	ConfirmationToken     string
	ConfirmationExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail recorta y pasa a minúsculas; valida largo y formato mínimo.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > MaxEmailLength {
		return "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return email, nil
}

// ValidatePassword mide en bytes: bcrypt no acepta más de 72.
func ValidatePassword(password string) error {
	n := len(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// ConfirmationPending indica si hay un token de confirmación vigente en now.
func (u User) ConfirmationPending(now time.Time) bool {
	if u.Enabled || u.ConfirmationToken == "" || u.ConfirmationExpiresAt == nil {
		return false
	}
	return now.Before(*u.ConfirmationExpiresAt)
}
