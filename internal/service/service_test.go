package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velvetlab/nightwhisper/internal/database"
	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func seedUser(t *testing.T, users *repository.UserRepository, id int64, trialUntil *time.Time) {
	t.Helper()
	require.NoError(t, users.Create(context.Background(), &models.User{
		ID:         id,
		Username:   "tester",
		Language:   "en",
		TrialUntil: trialUntil,
	}))
}
