package medications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"med-tracker/internal/ports/events"

	"github.com/google/uuid"
)

const (
	EventCreated = "medication.created"
	EventUpdated = "medication.updated"
	EventDeleted = "medication.deleted"
)

type Service struct {
	repo      Repository
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// PatchInput: punteros para PATCH real, nil = no tocar.
type PatchInput struct {
	Name             *string
	Dosage           *float64
	Quantity         *int
	Refills          *int
	TimesPerDay      *int
	LastRefilled     *time.Time
	ReminderLeadDays *int
}

func (s *Service) Create(ctx context.Context, ownerUserID string, p Params) (*Medication, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	}

	now := s.now()
	m, err := Build(p, now)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUniqueName(ctx, ownerUserID, m.Name(), ""); err != nil {
		return nil, err
	}

	if err := m.assign(uuid.NewString(), ownerUserID, now); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m.Snapshot()); err != nil {
		return nil, err
	}

	s.publish(ctx, EventCreated, m)
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(snap), nil
}

// GetOwned es GetByID + chequeo de dueño.
func (s *Service) GetOwned(ctx context.Context, id, ownerUserID string) (*Medication, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnerUserID() != ownerUserID {
		return nil, ErrForbidden
	}
	return m, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]*Medication, error) {
	snaps, err := s.repo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	out := make([]*Medication, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, FromSnapshot(snap))
	}
	return out, nil
}

// ListDue devuelve las medicaciones del dueño cuyo aviso ya corresponde en day.
// Es solo lectura: no dispara notificaciones.
func (s *Service) ListDue(ctx context.Context, ownerUserID string, day time.Time) ([]*Medication, error) {
	if day.IsZero() {
		day = s.now()
	}
	all, err := s.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	out := make([]*Medication, 0)
	for _, m := range all {
		if m.DueOn(day) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Replace reemplaza todos los campos editables (PUT).
func (s *Service) Replace(ctx context.Context, id, ownerUserID string, p Params) (*Medication, error) {
	m, err := s.GetOwned(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, m, p)
}

// Patch aplica solo los campos presentes (PATCH), de forma atómica.
func (s *Service) Patch(ctx context.Context, id, ownerUserID string, in PatchInput) (*Medication, error) {
	m, err := s.GetOwned(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}

	p := m.Params()
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Dosage != nil {
		p.Dosage = *in.Dosage
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if in.Refills != nil {
		p.Refills = *in.Refills
	}
	if in.TimesPerDay != nil {
		p.TimesPerDay = *in.TimesPerDay
	}
	if in.LastRefilled != nil {
		if in.LastRefilled.IsZero() {
			return nil, fmt.Errorf("%w: last_refilled is required", ErrInvalidArgument)
		}
		p.LastRefilled = *in.LastRefilled
	}
	if in.ReminderLeadDays != nil {
		p.ReminderLeadDays = *in.ReminderLeadDays
	}

	return s.save(ctx, m, p)
}

func (s *Service) save(ctx context.Context, m *Medication, p Params) (*Medication, error) {
	if err := m.Update(p); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, m.OwnerUserID(), m.Name(), m.ID()); err != nil {
		return nil, err
	}
	if err := m.assign(m.ID(), m.OwnerUserID(), s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m.Snapshot()); err != nil {
		return nil, err
	}

	s.publish(ctx, EventUpdated, m)
	return m, nil
}

// Delete borra y devuelve la medicación borrada.
func (s *Service) Delete(ctx context.Context, id, ownerUserID string) (*Medication, error) {
	m, err := s.GetOwned(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, m.ID()); err != nil {
		return nil, err
	}

	s.publish(ctx, EventDeleted, m)
	return m, nil
}

// DeleteByOwner se usa en la baja de usuario (cascade).
func (s *Service) DeleteByOwner(ctx context.Context, ownerUserID string) (int, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return 0, fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	}
	return s.repo.DeleteByOwner(ctx, ownerUserID)
}

// ensureUniqueName corta temprano; las carreras las resuelve el índice único del storage.
func (s *Service) ensureUniqueName(ctx context.Context, ownerUserID, name, selfID string) error {
	existing, err := s.repo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID == selfID {
			continue
		}
		if strings.EqualFold(e.Name, name) {
			return fmt.Errorf("%w: %q", ErrDuplicate, name)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, m *Medication) {
	snap := m.Snapshot()
	_ = s.publisher.Publish(ctx, events.Event{ // best-effort
		Type:       typ,
		Key:        snap.ID,
		OccurredAt: s.now(),
		Payload:    snap,
	})
}
