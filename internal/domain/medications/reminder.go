package medications

import (
	"fmt"
	"time"
)

// Supply es el subconjunto de campos del que depende la fecha de aviso.
type Supply struct {
	Quantity         int
	TimesPerDay      int
	ReminderLeadDays int
	LastRefilled     time.Time
}

// nextReminder calcula la fecha de aviso para un snapshot de supply.
// Con timesPerDay == 0 (o sin fecha de recarga) devuelve current sin tocar.
func nextReminder(s Supply, current *time.Time) (*time.Time, error) {
	if s.TimesPerDay <= 0 || s.LastRefilled.IsZero() {
		return current, nil
	}

	if exceeds(s.TimesPerDay, s.ReminderLeadDays, s.Quantity) {
		return current, fmt.Errorf("%w: need %d units/day for %d days, have %d",
			ErrInsufficientSupply, s.TimesPerDay, s.ReminderLeadDays, s.Quantity)
	}

	amountToRemind := s.TimesPerDay * s.ReminderLeadDays
	pillsLeft := s.Quantity - amountToRemind
	daysUntilReminder := pillsLeft / s.TimesPerDay

	d := s.LastRefilled.AddDate(0, 0, daysUntilReminder)
	return &d, nil
}

// exceeds indica si perDay*days > quantity sin calcular el producto.
// Todos los argumentos son >= 0.
func exceeds(perDay, days, quantity int) bool {
	if perDay == 0 || days == 0 {
		return false
	}
	return perDay > quantity/days
}

// DateOf normaliza t a fecha calendario (medianoche UTC).
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween cuenta días calendario completos de from a to (negativo si to < from).
func daysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
