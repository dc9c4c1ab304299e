package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"med-tracker/internal/ports/events"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("user not found")
	ErrDuplicate          = errors.New("email already in use")
	ErrNotVerified        = errors.New("account not verified")
	ErrTokenExpired       = errors.New("confirmation token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
)

const (
	EventRegistered = "user.registered"
	EventConfirmed  = "user.confirmed"
	EventUpdated    = "user.updated"
	EventRemoved    = "user.removed"
)

type Service struct {
	repo        Repository
	medications MedicationRemover
	mailer      ConfirmationSender
	publisher   events.Publisher
	hasher      bcryptHasher
	now         func() time.Time
	newToken    func() string
}

type Options struct {
	Medications MedicationRemover
	Mailer      ConfirmationSender
	Publisher   events.Publisher

	// BcryptCost: 0 = bcrypt.DefaultCost
	BcryptCost int
}

func NewService(repo Repository, opts Options) *Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	pub := opts.Publisher
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		repo:        repo,
		medications: opts.Medications,
		mailer:      opts.Mailer,
		publisher:   pub,
		hasher:      bcryptHasher{cost: cost},
		now:         time.Now,
		newToken:    uuid.NewString,
	}
}

// Register crea la cuenta deshabilitada y envía el email de confirmación.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, fmt.Errorf("%w: %s", ErrDuplicate, email)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	expires := now.Add(ConfirmationTokenTTL)
	u := User{
		ID:                    uuid.NewString(),
		Email:                 email,
		PasswordHash:          hash,
		Enabled:               false,
		ConfirmationToken:     s.newToken(),
		ConfirmationExpiresAt: &expires,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}

	if s.mailer != nil {
		// el mailer loguea sus propios fallos; el registro no se revierte
		_ = s.mailer.SendConfirmation(ctx, u.Email, u.ConfirmationToken)
	}

	s.publish(ctx, EventRegistered, u)
	return u, nil
}

// Confirm habilita la cuenta asociada al token.
func (s *Service) Confirm(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrInvalidInput
	}

	u, err := s.repo.GetByConfirmationToken(ctx, token)
	if err != nil {
		return User{}, err
	}
	if u.Enabled {
		return User{}, fmt.Errorf("%w: account %s is already active", ErrInvalidInput, u.Email)
	}

	now := s.now()
	if u.ConfirmationExpiresAt != nil && !now.Before(*u.ConfirmationExpiresAt) {
		return User{}, ErrTokenExpired
	}

	u.Enabled = true
	u.ConfirmationToken = ""
	u.ConfirmationExpiresAt = nil
	u.UpdatedAt = now

	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}

	s.publish(ctx, EventConfirmed, u)
	return u, nil
}

// Authenticate valida credenciales para el login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	ok, err := s.hasher.Matches(u.PasswordHash, password)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if !u.Enabled {
		return User{}, ErrNotVerified
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.findEnabled(ctx, id)
}

type UpdateInput struct {
	Email    *string
	Password *string
}

// Update cambia email y/o password. El password solo se re-hashea si cambió.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	u, err := s.findEnabled(ctx, id)
	if err != nil {
		return User{}, err
	}

	if in.Email != nil {
		email, err := NormalizeEmail(*in.Email)
		if err != nil {
			return User{}, err
		}
		if email != u.Email {
			other, err := s.repo.GetByEmail(ctx, email)
			if err == nil && other.ID != u.ID {
				return User{}, fmt.Errorf("%w: %s", ErrDuplicate, email)
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return User{}, err
			}
			u.Email = email
		}
	}

	if in.Password != nil {
		if err := ValidatePassword(*in.Password); err != nil {
			return User{}, err
		}
		same, err := s.hasher.Matches(u.PasswordHash, *in.Password)
		if err != nil {
			return User{}, err
		}
		if !same {
			hash, err := s.hasher.Hash(*in.Password)
			if err != nil {
				return User{}, fmt.Errorf("hash password: %w", err)
			}
			u.PasswordHash = hash
		}
	}

	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}

	s.publish(ctx, EventUpdated, u)
	return u, nil
}

// Remove borra la cuenta y todas sus medicaciones.
func (s *Service) Remove(ctx context.Context, id string) (User, error) {
	u, err := s.findEnabled(ctx, id)
	if err != nil {
		return User{}, err
	}

	if s.medications != nil {
		if _, err := s.medications.DeleteByOwner(ctx, u.ID); err != nil {
			return User{}, fmt.Errorf("delete medications: %w", err)
		}
	}
	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return User{}, err
	}

	s.publish(ctx, EventRemoved, u)
	return u, nil
}

func (s *Service) findEnabled(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrNotFound
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !u.Enabled {
		return User{}, fmt.Errorf("%w: please confirm your account using the email sent to %s", ErrNotVerified, u.Email)
	}
	return u, nil
}

func (s *Service) publish(ctx context.Context, typ string, u User) {
	_ = s.publisher.Publish(ctx, events.Event{ // best-effort
		Type:       typ,
		Key:        u.ID,
		OccurredAt: s.now(),
		Payload: map[string]any{
			"id":      u.ID,
			"email":   u.Email,
			"enabled": u.Enabled,
		},
	})
}
