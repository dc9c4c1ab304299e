package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"med-tracker/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

const medicationColumns = `
	id, owner_user_id,
	name, dosage, quantity, refills, times_per_day,
	last_refilled, reminder_lead_days, reminder_date,
	created_at, updated_at`

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Snapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (`+medicationColumns+`
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		m.ID,
		m.OwnerUserID,
		m.Name,
		m.Dosage,
		m.Quantity,
		m.Refills,
		m.TimesPerDay,
		m.LastRefilled.UTC().Format(dateLayout),
		m.ReminderLeadDays,
		nullDate(m.ReminderDate),
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %q", medications.ErrDuplicate, m.Name)
	}
	return err
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Snapshot) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			name = ?,
			dosage = ?,
			quantity = ?,
			refills = ?,
			times_per_day = ?,
			last_refilled = ?,
			reminder_lead_days = ?,
			reminder_date = ?,
			updated_at = ?
		WHERE id = ?
	`,
		m.Name,
		m.Dosage,
		m.Quantity,
		m.Refills,
		m.TimesPerDay,
		m.LastRefilled.UTC().Format(dateLayout),
		m.ReminderLeadDays,
		nullDate(m.ReminderDate),
		formatTime(m.UpdatedAt),
		m.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %q", medications.ErrDuplicate, m.Name)
	}
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Snapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Snapshot{}, medications.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = ?`, id)
	m, err := scanMedication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medications.Snapshot{}, medications.ErrNotFound
		}
		return medications.Snapshot{}, err
	}
	return m, nil
}

func (r *MedicationsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]medications.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE owner_user_id = ?
		ORDER BY created_at ASC, id ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Snapshot, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) DeleteByOwner(ctx context.Context, ownerUserID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE owner_user_id = ?`, ownerUserID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(s rowScanner) (medications.Snapshot, error) {
	var (
		m                    medications.Snapshot
		lastRefilled         string
		reminder             sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.Name,
		&m.Dosage,
		&m.Quantity,
		&m.Refills,
		&m.TimesPerDay,
		&lastRefilled,
		&m.ReminderLeadDays,
		&reminder,
		&createdAt,
		&updatedAt,
	); err != nil {
		return medications.Snapshot{}, err
	}

	var err error
	if m.LastRefilled, err = time.Parse(dateLayout, lastRefilled); err != nil {
		return medications.Snapshot{}, fmt.Errorf("last_refilled: %w", err)
	}
	if m.ReminderDate, err = parseNullTime(reminder, dateLayout); err != nil {
		return medications.Snapshot{}, fmt.Errorf("reminder_date: %w", err)
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return medications.Snapshot{}, fmt.Errorf("created_at: %w", err)
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return medications.Snapshot{}, fmt.Errorf("updated_at: %w", err)
	}
	return m, nil
}
