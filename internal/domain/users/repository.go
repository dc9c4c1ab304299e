package users

import "context"

type Repository interface {
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByConfirmationToken(ctx context.Context, token string) (User, error)
	Delete(ctx context.Context, id string) error
}

// MedicationRemover borra las medicaciones de un usuario (cascade en la baja).
// Se define acá para no importar medications desde users.
type MedicationRemover interface {
	DeleteByOwner(ctx context.Context, ownerUserID string) (int, error)
}

// ConfirmationSender envía el email con el link de confirmación.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, email, token string) error
}
