package medications

import "context"

// Repository persiste medicaciones. GetByID devuelve ErrNotFound si no existe.
type Repository interface {
	Create(ctx context.Context, m Snapshot) error
	Update(ctx context.Context, m Snapshot) error
	GetByID(ctx context.Context, id string) (Snapshot, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Snapshot, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerUserID string) (int, error)
}
