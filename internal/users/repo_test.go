package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A plain ":memory:" DSN gives every pooled connection its own empty
	// database; the insert-race test touches a second connection, so the
	// database must be shared (and uniquely named to isolate tests).
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return conn
}

func TestUpsertByEmailCreatesAndNormalizes(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	user, err := repo.UpsertByEmail(ctx, "Ada Obi", "+2348012345678", " Ada@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	found, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestUpsertByEmailRefreshesContactDetails(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	first, err := repo.UpsertByEmail(ctx, "Ada Obi", "+2348012345678", "ada@example.com")
	require.NoError(t, err)

	second, err := repo.UpsertByEmail(ctx, "Ada O.", "+2348099999999", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada O.", second.FullName)
	assert.Equal(t, "+2348099999999", second.PhoneNumber)

	var count int64
	require.NoError(t, repo.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertByEmailRecoversFromInsertRace(t *testing.T) {
	conn := setupUsersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	// Sneak a winner in between the initial read and the insert, so the
	// insert loses the unique-email race.
	raced := false
	require.NoError(t, conn.Callback().Create().Before("gorm:create").Register("test_insert_race", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		winner := &models.User{FullName: "Winner", PhoneNumber: "+2348000000000", Email: "ada@example.com"}
		require.NoError(t, conn.Session(&gorm.Session{NewDB: true}).Create(winner).Error)
	}))

	user, err := repo.UpsertByEmail(ctx, "Loser", "+2348011111111", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Winner", user.FullName)

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
