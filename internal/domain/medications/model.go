package medications

import (
	"fmt"
	"strings"
	"time"
)

// Medication es un registro de medicación de un usuario.
// Los campos solo cambian a través de los setters; reminderDate es derivado.
type Medication struct {
	id          string
	ownerUserID string

	name             string
	dosage           float64
	quantity         int
	refills          int
	timesPerDay      int
	lastRefilled     time.Time
	reminderLeadDays int
	reminderDate     *time.Time

	createdAt time.Time
	updatedAt time.Time
}

// MaxCount acota cantidades, frecuencias y días de aviso.
// Con este tope la fecha de aviso siempre entra en una columna DATE.
const MaxCount = 1_000_000

func checkCount(field string, v int) error {
	if v < 0 {
		return fmt.Errorf("%w: %s must be >= 0", ErrInvalidArgument, field)
	}
	if v > MaxCount {
		return fmt.Errorf("%w: %s must be <= %d", ErrInvalidArgument, field, MaxCount)
	}
	return nil
}

// Params agrupa todos los campos editables de una medicación.
type Params struct {
	Name             string
	Dosage           float64
	Quantity         int
	Refills          int
	TimesPerDay      int
	LastRefilled     time.Time // cero = hoy
	ReminderLeadDays int
}

// New crea una medicación vacía con lastRefilled = hoy.
func New() *Medication {
	return NewAt(time.Now())
}

func NewAt(now time.Time) *Medication {
	return &Medication{lastRefilled: DateOf(now)}
}

// Build aplica los setters en orden: timesPerDay primero y reminderLeadDays al final,
// así la última recomputación es la que vale.
func Build(p Params, now time.Time) (*Medication, error) {
	m := NewAt(now)
	if err := m.Update(p); err != nil {
		return nil, err
	}
	return m, nil
}

// Update aplica un set completo de campos de forma atómica:
// si algo falla, el receptor queda como estaba.
func (m *Medication) Update(p Params) error {
	next := *m

	lastRefilled := p.LastRefilled
	if lastRefilled.IsZero() {
		lastRefilled = m.lastRefilled
	}
	if lastRefilled.IsZero() {
		lastRefilled = DateOf(time.Now())
	}

	steps := []func() error{
		func() error { return next.SetTimesPerDay(p.TimesPerDay) },
		func() error { return next.SetName(p.Name) },
		func() error { return next.SetDosage(p.Dosage) },
		func() error { return next.SetQuantity(p.Quantity) },
		func() error { return next.SetRefills(p.Refills) },
		func() error { return next.SetLastRefilled(lastRefilled) },
		func() error { return next.SetReminderLeadDays(p.ReminderLeadDays) },
	}

	// Los pasos intermedios validan contra el estado parcial; para que un
	// cambio coherente no falle a mitad de camino, partimos con leadDays = 0.
	next.reminderLeadDays = 0
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	*m = next
	return nil
}

func (m *Medication) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	m.name = name
	return nil
}

func (m *Medication) SetDosage(dosage float64) error {
	if dosage < 0 {
		return fmt.Errorf("%w: dosage must be >= 0", ErrInvalidArgument)
	}
	m.dosage = dosage
	return nil
}

func (m *Medication) SetRefills(refills int) error {
	if err := checkCount("refills", refills); err != nil {
		return err
	}
	m.refills = refills
	return nil
}

func (m *Medication) SetQuantity(quantity int) error {
	if err := checkCount("quantity", quantity); err != nil {
		return err
	}
	return m.transition(func(s *Supply) { s.Quantity = quantity })
}

func (m *Medication) SetTimesPerDay(timesPerDay int) error {
	if err := checkCount("times_per_day", timesPerDay); err != nil {
		return err
	}
	return m.transition(func(s *Supply) { s.TimesPerDay = timesPerDay })
}

func (m *Medication) SetReminderLeadDays(days int) error {
	if err := checkCount("reminder_lead_days", days); err != nil {
		return err
	}
	return m.transition(func(s *Supply) { s.ReminderLeadDays = days })
}

func (m *Medication) SetLastRefilled(day time.Time) error {
	if day.IsZero() {
		return fmt.Errorf("%w: last_refilled is required", ErrInvalidArgument)
	}
	return m.transition(func(s *Supply) { s.LastRefilled = DateOf(day) })
}

// transition aplica el cambio sobre una copia del supply, recalcula el aviso
// y solo entonces confirma. Si falla, no se toca nada.
func (m *Medication) transition(change func(*Supply)) error {
	s := m.supply()
	change(&s)

	reminder, err := nextReminder(s, m.reminderDate)
	if err != nil {
		return err
	}

	m.quantity = s.Quantity
	m.timesPerDay = s.TimesPerDay
	m.reminderLeadDays = s.ReminderLeadDays
	m.lastRefilled = s.LastRefilled
	m.reminderDate = reminder
	return nil
}

func (m *Medication) supply() Supply {
	return Supply{
		Quantity:         m.quantity,
		TimesPerDay:      m.timesPerDay,
		ReminderLeadDays: m.reminderLeadDays,
		LastRefilled:     m.lastRefilled,
	}
}

func (m *Medication) ID() string              { return m.id }
func (m *Medication) OwnerUserID() string     { return m.ownerUserID }
func (m *Medication) Name() string            { return m.name }
func (m *Medication) Dosage() float64         { return m.dosage }
func (m *Medication) Quantity() int           { return m.quantity }
func (m *Medication) Refills() int            { return m.refills }
func (m *Medication) TimesPerDay() int        { return m.timesPerDay }
func (m *Medication) LastRefilled() time.Time { return m.lastRefilled }
func (m *Medication) ReminderLeadDays() int   { return m.reminderLeadDays }
func (m *Medication) CreatedAt() time.Time    { return m.createdAt }
func (m *Medication) UpdatedAt() time.Time    { return m.updatedAt }

// ReminderDate devuelve la fecha de aviso, o false si aún no se calculó.
func (m *Medication) ReminderDate() (time.Time, bool) {
	if m.reminderDate == nil {
		return time.Time{}, false
	}
	return *m.reminderDate, true
}

// Params devuelve los campos editables actuales (útil para PATCH).
func (m *Medication) Params() Params {
	return Params{
		Name:             m.name,
		Dosage:           m.dosage,
		Quantity:         m.quantity,
		Refills:          m.refills,
		TimesPerDay:      m.timesPerDay,
		LastRefilled:     m.lastRefilled,
		ReminderLeadDays: m.reminderLeadDays,
	}
}

// assign fija id y dueño una sola vez (los asigna el storage/servicio).
func (m *Medication) assign(id, ownerUserID string, now time.Time) error {
	if m.id != "" && m.id != id {
		return fmt.Errorf("%w: id is immutable", ErrInvalidArgument)
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(ownerUserID) == "" {
		return fmt.Errorf("%w: id and owner are required", ErrInvalidArgument)
	}
	m.id = id
	m.ownerUserID = ownerUserID
	if m.createdAt.IsZero() {
		m.createdAt = now
	}
	m.updatedAt = now
	return nil
}

// QuantityLeft estima las unidades restantes a la fecha asOf,
// descontando las tomas desde lastRefilled. Nunca negativo.
func (m *Medication) QuantityLeft(asOf time.Time) int {
	days := daysBetween(m.lastRefilled, asOf)
	if days < 0 {
		days = 0
	}
	if exceeds(m.timesPerDay, days, m.quantity) {
		return 0
	}
	return m.quantity - m.timesPerDay*days
}

// DueOn indica si el aviso ya corresponde en day.
func (m *Medication) DueOn(day time.Time) bool {
	rd, ok := m.ReminderDate()
	if !ok {
		return false
	}
	return !rd.After(DateOf(day))
}
