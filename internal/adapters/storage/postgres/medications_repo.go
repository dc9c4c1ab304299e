package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"med-tracker/internal/domain/medications"

	"github.com/jackc/pgx/v5/pgconn"
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
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		m.ID,
		m.OwnerUserID,
		m.Name,
		m.Dosage,
		m.Quantity,
		m.Refills,
		m.TimesPerDay,
		m.LastRefilled,
		m.ReminderLeadDays,
		toNullDate(m.ReminderDate),
		m.CreatedAt,
		m.UpdatedAt,
	)
	return mapMedicationErr(err, m.Name)
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Snapshot) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			name = $2,
			dosage = $3,
			quantity = $4,
			refills = $5,
			times_per_day = $6,
			last_refilled = $7,
			reminder_lead_days = $8,
			reminder_date = $9,
			updated_at = $10
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.Dosage,
		m.Quantity,
		m.Refills,
		m.TimesPerDay,
		m.LastRefilled,
		m.ReminderLeadDays,
		toNullDate(m.ReminderDate),
		m.UpdatedAt,
	)
	if err != nil {
		return mapMedicationErr(err, m.Name)
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

	row := r.db.QueryRowContext(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)

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
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE owner_user_id = $1
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE owner_user_id = $1`, ownerUserID)
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
	var m medications.Snapshot
	var rd sql.NullTime
	if err := s.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.Name,
		&m.Dosage,
		&m.Quantity,
		&m.Refills,
		&m.TimesPerDay,
		&m.LastRefilled,
		&m.ReminderLeadDays,
		&rd,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medications.Snapshot{}, err
	}

	// ojo: las columnas date llegan como time.Time a medianoche
	if rd.Valid {
		t := rd.Time
		m.ReminderDate = &t
	}
	return m, nil
}

// mapMedicationErr traduce el índice único (owner_user_id, lower(name)) a ErrDuplicate.
func mapMedicationErr(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %q", medications.ErrDuplicate, name)
	}
	return err
}

func toNullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
