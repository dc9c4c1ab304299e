package medications

import "time"

// Snapshot es la forma plana que usan los repositorios para persistir.
// No pasa por validación: se asume que viene de un estado ya válido.
type Snapshot struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`

	Name             string     `json:"name"`
	Dosage           float64    `json:"dosage"`
	Quantity         int        `json:"quantity"`
	Refills          int        `json:"refills"`
	TimesPerDay      int        `json:"times_per_day"`
	LastRefilled     time.Time  `json:"last_refilled"`
	ReminderLeadDays int        `json:"reminder_lead_days"`
	ReminderDate     *time.Time `json:"reminder_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Medication) Snapshot() Snapshot {
	var rd *time.Time
	if m.reminderDate != nil {
		t := *m.reminderDate
		rd = &t
	}
	return Snapshot{
		ID:               m.id,
		OwnerUserID:      m.ownerUserID,
		Name:             m.name,
		Dosage:           m.dosage,
		Quantity:         m.quantity,
		Refills:          m.refills,
		TimesPerDay:      m.timesPerDay,
		LastRefilled:     m.lastRefilled,
		ReminderLeadDays: m.reminderLeadDays,
		ReminderDate:     rd,
		CreatedAt:        m.createdAt,
		UpdatedAt:        m.updatedAt,
	}
}

func FromSnapshot(s Snapshot) *Medication {
	var rd *time.Time
	if s.ReminderDate != nil {
		t := DateOf(*s.ReminderDate)
		rd = &t
	}
	return &Medication{
		id:               s.ID,
		ownerUserID:      s.OwnerUserID,
		name:             s.Name,
		dosage:           s.Dosage,
		quantity:         s.Quantity,
		refills:          s.Refills,
		timesPerDay:      s.TimesPerDay,
		lastRefilled:     DateOf(s.LastRefilled),
		reminderLeadDays: s.ReminderLeadDays,
		reminderDate:     rd,
		createdAt:        s.CreatedAt,
		updatedAt:        s.UpdatedAt,
	}
}
