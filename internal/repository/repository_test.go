package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velvetlab/nightwhisper/internal/database"
	"github.com/velvetlab/nightwhisper/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func seedUser(t *testing.T, repo *UserRepository, id int64) *models.User {
	t.Helper()
	trialUntil := time.Now().UTC().AddDate(0, 0, 3)
	user := &models.User{
		ID:         id,
		Username:   "tester",
		Language:   "en",
		TrialUntil: &trialUntil,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}
