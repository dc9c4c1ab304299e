package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"med-tracker/internal/domain/medications"
	"med-tracker/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := Migrator(db)
	require.NoError(t, err)
	_, err = m.Up(context.Background())
	require.NoError(t, err)
	return db
}

func TestMedicationsRepo_RoundTripsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewMedicationsRepo(newTestDB(t))

	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	m, err := medications.Build(medications.Params{
		Name: "Lisinopril", Dosage: 2.5, Quantity: 30, Refills: 1, TimesPerDay: 1, ReminderLeadDays: 7,
	}, now)
	require.NoError(t, err)

	s := m.Snapshot()
	s.ID = "m-1"
	s.OwnerUserID = "u-1"
	s.CreatedAt = now
	s.UpdatedAt = now
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, s.Name, got.Name)
	assert.Equal(t, s.Dosage, got.Dosage)
	assert.Equal(t, s.Quantity, got.Quantity)
	assert.True(t, got.LastRefilled.Equal(s.LastRefilled))
	require.NotNil(t, got.ReminderDate)
	assert.True(t, got.ReminderDate.Equal(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got.CreatedAt.Equal(now))

	restored := medications.FromSnapshot(got)
	rd, ok := restored.ReminderDate()
	assert.True(t, ok)
	assert.Equal(t, 2025, rd.Year())
}

func TestMedicationsRepo_UpdateClearsReminder(t *testing.T) {
	ctx := context.Background()
	repo := NewMedicationsRepo(newTestDB(t))

	rd := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	s := medications.Snapshot{
		ID: "m-1", OwnerUserID: "u-1", Name: "A", Quantity: 10,
		LastRefilled: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		ReminderDate: &rd, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, s))

	s.ReminderDate = nil
	s.Quantity = 5
	require.NoError(t, repo.Update(ctx, s))

	got, err := repo.GetByID(ctx, "m-1")
	require.NoError(t, err)
	assert.Nil(t, got.ReminderDate)
	assert.Equal(t, 5, got.Quantity)

	s.ID = "missing"
	assert.ErrorIs(t, repo.Update(ctx, s), medications.ErrNotFound)
}

func TestMedicationsRepo_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMedicationsRepo(newTestDB(t))

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i, owner := range []string{"u-1", "u-1", "u-2"} {
		require.NoError(t, repo.Create(ctx, medications.Snapshot{
			ID: string(rune('a' + i)), OwnerUserID: owner, Name: "med-" + string(rune('a'+i)), LastRefilled: day,
			CreatedAt: base.Add(time.Duration(i) * time.Minute), UpdatedAt: base,
		}))
	}

	list, err := repo.ListByOwner(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), medications.ErrNotFound)

	n, err := repo.DeleteByOwner(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMedicationsRepo_NameUniquePerOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewMedicationsRepo(newTestDB(t))

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	snap := func(id, owner, name string) medications.Snapshot {
		return medications.Snapshot{
			ID: id, OwnerUserID: owner, Name: name, LastRefilled: day,
			CreatedAt: day, UpdatedAt: day,
		}
	}

	require.NoError(t, repo.Create(ctx, snap("m-1", "u-1", "Aspirin")))
	require.NoError(t, repo.Create(ctx, snap("m-2", "u-1", "Ibuprofen")))
	require.NoError(t, repo.Create(ctx, snap("m-3", "u-2", "Aspirin")))

	assert.ErrorIs(t, repo.Create(ctx, snap("m-4", "u-1", "ASPIRIN")), medications.ErrDuplicate)
	assert.ErrorIs(t, repo.Update(ctx, snap("m-2", "u-1", "aspirin")), medications.ErrDuplicate)
	require.NoError(t, repo.Update(ctx, snap("m-1", "u-1", "aspirin")))
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo(newTestDB(t))

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	exp := now.Add(users.ConfirmationTokenTTL)
	u := users.User{
		ID: "u-1", Email: "ana@example.com", PasswordHash: "hash",
		ConfirmationToken: "tok-1", ConfirmationExpiresAt: &exp,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, u))

	dup := u
	dup.ID = "u-2"
	dup.ConfirmationToken = "tok-2"
	assert.ErrorIs(t, repo.Create(ctx, dup), users.ErrDuplicate)

	got, err := repo.GetByConfirmationToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.False(t, got.Enabled)
	require.NotNil(t, got.ConfirmationExpiresAt)
	assert.True(t, got.ConfirmationExpiresAt.Equal(exp))

	got.Enabled = true
	got.ConfirmationToken = ""
	got.ConfirmationExpiresAt = nil
	require.NoError(t, repo.Update(ctx, got))

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, byEmail.Enabled)
	assert.Nil(t, byEmail.ConfirmationExpiresAt)

	_, err = repo.GetByConfirmationToken(ctx, "tok-1")
	assert.ErrorIs(t, err, users.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "u-1"))
	_, err = repo.GetByID(ctx, "u-1")
	assert.ErrorIs(t, err, users.ErrNotFound)
}
