package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"med-tracker/internal/domain/medications"
)

type medicationRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.Snapshot
}

func NewMedicationRepo() medications.Repository {
	return &medicationRepo{
		byID: make(map[string]medications.Snapshot),
	}
}

func (r *medicationRepo) Create(ctx context.Context, m medications.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return fmt.Errorf("%w: id %s", medications.ErrDuplicate, m.ID)
	}
	if err := r.ensureNameFree(m); err != nil {
		return err
	}
	r.byID[m.ID] = copySnapshot(m)
	return nil
}

func (r *medicationRepo) Update(ctx context.Context, m medications.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return medications.ErrNotFound
	}
	if err := r.ensureNameFree(m); err != nil {
		return err
	}
	r.byID[m.ID] = copySnapshot(m)
	return nil
}

func (r *medicationRepo) GetByID(ctx context.Context, id string) (medications.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medications.Snapshot{}, medications.ErrNotFound
	}
	return copySnapshot(m), nil
}

func (r *medicationRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]medications.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Snapshot, 0)
	for _, m := range r.byID {
		if m.OwnerUserID == ownerUserID {
			out = append(out, copySnapshot(m))
		}
	}

	// Orden estable por created_at asc, igual que en SQL
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *medicationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return medications.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *medicationRepo) DeleteByOwner(ctx context.Context, ownerUserID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, m := range r.byID {
		if m.OwnerUserID == ownerUserID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// ensureNameFree replica el índice único (owner_user_id, lower(name)) de SQL.
// Se llama con el lock de escritura tomado.
func (r *medicationRepo) ensureNameFree(m medications.Snapshot) error {
	for id, other := range r.byID {
		if id != m.ID && other.OwnerUserID == m.OwnerUserID && strings.EqualFold(other.Name, m.Name) {
			return fmt.Errorf("%w: %q", medications.ErrDuplicate, m.Name)
		}
	}
	return nil
}

// copySnapshot evita compartir el puntero de reminder_date con el caller.
func copySnapshot(m medications.Snapshot) medications.Snapshot {
	if m.ReminderDate != nil {
		t := *m.ReminderDate
		m.ReminderDate = &t
	}
	return m
}
